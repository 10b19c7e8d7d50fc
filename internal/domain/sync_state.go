package domain

import "time"

// SyncStage identifies where in the pipeline an active sync currently is.
type SyncStage string

const (
	// SyncStageInitializing indicates the sync has been accepted but no remote call was made yet
	SyncStageInitializing SyncStage = "initializing"
	// SyncStageSyncingCatalog indicates the catalog reconciliation pass is running
	SyncStageSyncingCatalog SyncStage = "syncing_catalog"
	// SyncStageSyncingOrders indicates the paginated order ingestion pass is running
	SyncStageSyncingOrders SyncStage = "syncing_orders"
	// SyncStageCompleted indicates the sync finished successfully
	SyncStageCompleted SyncStage = "completed"
	// SyncStageFailed indicates the sync aborted with an error
	SyncStageFailed SyncStage = "failed"
)

// IsValid returns true if the stage is one of the known stages
func (s SyncStage) IsValid() bool {
	switch s {
	case SyncStageInitializing, SyncStageSyncingCatalog, SyncStageSyncingOrders,
		SyncStageCompleted, SyncStageFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the stage is a final state
func (s SyncStage) IsTerminal() bool {
	return s == SyncStageCompleted || s == SyncStageFailed
}

// String returns the string representation of SyncStage
func (s SyncStage) String() string {
	return string(s)
}

// LocationProgress tracks per-location ingestion counts for a single sync run
type LocationProgress struct {
	OrdersCreated int        `json:"orders_created"`
	OrdersUpdated int        `json:"orders_updated"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

// SyncState is the progress snapshot of one sync run. It is written to both
// the durable integration record and the ephemeral cache after every fetched
// page, so callers can poll it cheaply while the sync is running.
type SyncState struct {
	TaskID          string                       `json:"task_id"`
	Stage           SyncStage                    `json:"stage"`
	Progress        int                          `json:"progress"`
	Active          bool                         `json:"active"`
	StartedAt       time.Time                    `json:"started_at"`
	EndedAt         *time.Time                   `json:"ended_at,omitempty"`
	ItemsProcessed  int                          `json:"items_processed"`
	ItemsCreated    int                          `json:"items_created"`
	ItemsUpdated    int                          `json:"items_updated"`
	OrdersCreated   int                          `json:"orders_created"`
	OrdersUpdated   int                          `json:"orders_updated"`
	PagesProcessed  int                          `json:"pages_processed"`
	LocationsFailed int                          `json:"locations_failed"`
	Error           string                       `json:"error,omitempty"`
	PerLocation     map[string]*LocationProgress `json:"per_location,omitempty"`
}

// Location returns the progress bucket for a location, creating it if needed
func (s *SyncState) Location(locationID string) *LocationProgress {
	if s.PerLocation == nil {
		s.PerLocation = make(map[string]*LocationProgress)
	}
	lp, ok := s.PerLocation[locationID]
	if !ok {
		lp = &LocationProgress{}
		s.PerLocation[locationID] = lp
	}
	return lp
}

// SyncSummary is the durable record of a finished sync run
type SyncSummary struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Summary   string    `json:"summary"`
}

// SyncMetadata is the durable sync status block stored on the integration
// record. ActiveSync holds the most recent run (final state retained as
// history after finalization); LastSuccess and LastFailure are rolling
// summaries of the last run of each outcome.
type SyncMetadata struct {
	ActiveSync  *SyncState   `json:"active_sync,omitempty"`
	LastSuccess *SyncSummary `json:"last_success,omitempty"`
	LastFailure *SyncSummary `json:"last_failure,omitempty"`
}
