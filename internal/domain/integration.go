package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Integration represents a merchant's Square connection: the OAuth credential
// pair, the resolved location set, and the embedded sync status block.
// One row exists per merchant; it is created when OAuth completes and is only
// deleted when the merchant disconnects.
type Integration struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	MerchantID        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"merchant_id"`
	AccessToken       string     `gorm:"type:text;not null" json:"-"`
	RefreshToken      string     `gorm:"type:text" json:"-"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
	PrimaryLocationID string     `gorm:"type:varchar(64)" json:"primary_location_id"`
	LocationIDsJSON   string     `gorm:"type:text;column:location_ids" json:"-"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	SyncActive        bool       `gorm:"not null;default:false" json:"sync_active"`
	SyncMetadataJSON  string     `gorm:"type:text;column:sync_metadata" json:"-"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName returns the database table name
func (Integration) TableName() string {
	return "integrations"
}

// TokenExpired returns true if the access token expiry is known and in the past
func (i *Integration) TokenExpired(now time.Time) bool {
	return i.TokenExpiresAt != nil && i.TokenExpiresAt.Before(now)
}

// LocationIDs returns the cached location id list
func (i *Integration) LocationIDs() []string {
	if i.LocationIDsJSON == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(i.LocationIDsJSON), &ids); err != nil {
		return nil
	}
	return ids
}

// SetLocationIDs stores the location id list and designates the first entry
// as the primary location
func (i *Integration) SetLocationIDs(ids []string) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	i.LocationIDsJSON = string(raw)
	if len(ids) > 0 {
		i.PrimaryLocationID = ids[0]
	}
}

// SyncMetadata returns the parsed sync status block, never nil
func (i *Integration) SyncMetadata() *SyncMetadata {
	meta := &SyncMetadata{}
	if i.SyncMetadataJSON != "" {
		_ = json.Unmarshal([]byte(i.SyncMetadataJSON), meta)
	}
	return meta
}

// SetSyncMetadata serializes the sync status block back onto the record
func (i *Integration) SetSyncMetadata(meta *SyncMetadata) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	i.SyncMetadataJSON = string(raw)
}
