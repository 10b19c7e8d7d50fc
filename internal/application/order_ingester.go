package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/config"
	"savor-core-square-layer/internal/infrastructure/metrics"
	"savor-core-square-layer/internal/infrastructure/square"
	"savor-core-square-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderIngester pulls completed orders from Square into the local store.
// Incremental runs start from the stored watermark minus a safety buffer so
// orders that landed while the previous run was in flight are not missed;
// the preloaded external-id set makes the overlap idempotent.
type OrderIngester struct {
	api      ports.SquareAPI
	tokens   ports.TokenSource
	orders   ports.OrderRepository
	items    ports.ItemRepository
	progress *ProgressStore
	cfg      config.SquareConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOrderIngester creates a new order ingester
func NewOrderIngester(api ports.SquareAPI, tokens ports.TokenSource, orders ports.OrderRepository, items ports.ItemRepository, progress *ProgressStore, cfg config.SquareConfig, logger zerolog.Logger) *OrderIngester {
	return &OrderIngester{
		api:      api,
		tokens:   tokens,
		orders:   orders,
		items:    items,
		progress: progress,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// itemIndex resolves line items to local items, creating placeholder items
// for catalog objects the catalog pass has not seen.
type itemIndex struct {
	byExternalID map[string]*domain.Item
	byName       map[string]*domain.Item
}

// SyncOptions tune one sync run. Full forces a full-window sync even when a
// watermark exists; Days overrides the configured bootstrap window when
// positive.
type SyncOptions struct {
	Full bool
	Days int
}

// SyncOrders ingests orders for every location of the merchant. A single
// failing location is recorded and skipped; the run only fails when no
// location could be synced at all. A duplicate-key violation from the store
// is the exception: the rejected batch was rolled back whole, so continuing
// would silently drop the new orders it carried, and the run fails instead.
func (g *OrderIngester) SyncOrders(ctx context.Context, integ *domain.Integration, locationIDs []string, opts SyncOptions) error {
	now := g.now().UTC()
	begin, fullSync, err := g.syncWindow(ctx, integ.MerchantID, now, opts)
	if err != nil {
		return err
	}

	known, err := g.orders.ExternalIDs(ctx, integ.MerchantID)
	if err != nil {
		return fmt.Errorf("failed to load known order ids: %w", err)
	}
	index, err := g.loadItemIndex(ctx, integ.MerchantID)
	if err != nil {
		return err
	}

	g.logger.Info().
		Str("merchant_id", integ.MerchantID).
		Time("begin", begin).
		Bool("full_sync", fullSync).
		Int("locations", len(locationIDs)).
		Msg("Starting order ingestion")

	var failed int
	total := 0
	for _, locationID := range locationIDs {
		created, err := g.syncLocation(ctx, integ, locationID, begin, now, fullSync, opts.Full, known, index, &total)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateExternalID) {
				// A duplicate past the preloaded dedup set means another
				// writer raced this run. The store rolled the whole batch
				// back, duplicates and new orders alike.
				return fmt.Errorf("order sync aborted: %w", err)
			}
			failed++
			g.logger.Error().Err(err).
				Str("merchant_id", integ.MerchantID).
				Str("location_id", locationID).
				Msg("Location order sync failed")
			g.recordProgress(ctx, integ.MerchantID, func(state *domain.SyncState) {
				state.LocationsFailed++
			})
			continue
		}
		syncedAt := g.now().UTC()
		g.recordProgress(ctx, integ.MerchantID, func(state *domain.SyncState) {
			loc := state.Location(locationID)
			loc.OrdersCreated += created
			loc.LastSyncedAt = &syncedAt
			state.OrdersCreated += created
		})
	}

	if len(locationIDs) > 0 && failed == len(locationIDs) {
		return fmt.Errorf("order sync failed for all %d locations", len(locationIDs))
	}
	return nil
}

// syncWindow derives the ingestion start. With prior orders the watermark is
// the newest stored order date minus the overlap buffer; a first sync (or a
// forced full run) reaches back the configured number of days.
func (g *OrderIngester) syncWindow(ctx context.Context, merchantID string, now time.Time, opts SyncOptions) (time.Time, bool, error) {
	days := g.cfg.DefaultSyncDays
	if opts.Days > 0 {
		days = opts.Days
	}
	if opts.Full {
		return now.AddDate(0, 0, -days), true, nil
	}

	maxDate, err := g.orders.MaxOrderDate(ctx, merchantID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to resolve order watermark: %w", err)
	}
	if maxDate != nil {
		return maxDate.Add(-g.cfg.IncrementalBuffer), false, nil
	}
	return now.AddDate(0, 0, -days), true, nil
}

func (g *OrderIngester) syncLocation(ctx context.Context, integ *domain.Integration, locationID string, begin, now time.Time, fullSync, unbounded bool, known map[string]struct{}, index *itemIndex, total *int) (int, error) {
	created := 0
	cursor := ""
	// The result ceiling does not apply to a forced full sync.
	for page := 0; page < g.cfg.MaxPages && (unbounded || *total < g.cfg.MaxResults); page++ {
		query := square.OrderQuery{
			Begin:    begin,
			States:   []string{square.OrderStateCompleted},
			PageSize: g.cfg.PageSize,
			Cursor:   cursor,
		}

		var result *square.OrderPage
		err := g.tokens.Do(ctx, integ, func(accessToken string) error {
			var apiErr error
			result, apiErr = g.api.SearchOrders(ctx, accessToken, locationID, query)
			return apiErr
		})
		if err != nil {
			return created, fmt.Errorf("failed to search orders: %w", err)
		}
		metrics.PagesFetched.Inc()

		var batch []*domain.Order
		var newest time.Time
		for _, remote := range result.Orders {
			*total++
			if remote.CreatedAt.After(newest) {
				newest = remote.CreatedAt
			}
			if _, seen := known[remote.ID]; seen {
				continue
			}
			order, err := g.buildOrder(ctx, integ.MerchantID, locationID, remote, index)
			if err != nil {
				return created, err
			}
			batch = append(batch, order)
			known[remote.ID] = struct{}{}
		}

		if len(batch) > 0 {
			if err := g.orders.CreateBatch(ctx, batch); err != nil {
				return created, fmt.Errorf("failed to store orders: %w", err)
			}
			created += len(batch)
			metrics.OrdersCreated.Add(float64(len(batch)))
		}

		progress := 0
		if !newest.IsZero() {
			progress = ProgressEstimate(begin, newest, now, fullSync)
		}
		g.recordProgress(ctx, integ.MerchantID, func(state *domain.SyncState) {
			state.PagesProcessed++
			if progress > 0 {
				state.Progress = progress
			}
		})

		cursor = result.Cursor
		if cursor == "" {
			break
		}
	}
	return created, nil
}

// buildOrder maps a remote order onto a local one. The total is recomputed
// from line items rather than trusted from the remote payload, so local
// totals and line items always agree.
func (g *OrderIngester) buildOrder(ctx context.Context, merchantID, locationID string, remote square.Order, index *itemIndex) (*domain.Order, error) {
	order := &domain.Order{
		MerchantID: merchantID,
		ExternalID: remote.ID,
		LocationID: locationID,
		OrderDate:  remote.CreatedAt,
		Total:      decimal.Zero,
	}

	for _, li := range remote.LineItems {
		item, err := g.resolveItem(ctx, merchantID, li, index)
		if err != nil {
			return nil, err
		}

		quantity, err := decimal.NewFromString(li.Quantity)
		if err != nil || quantity.IsZero() {
			quantity = decimal.NewFromInt(1)
		}
		unitPrice := decimal.Zero
		if li.BasePriceMoney != nil {
			unitPrice = li.BasePriceMoney.Decimal()
		}

		orderItem := domain.OrderItem{
			ItemID:    item.ID,
			Name:      li.Name,
			Quantity:  quantity,
			UnitPrice: unitPrice,
		}
		order.Total = order.Total.Add(orderItem.LineTotal())
		order.Items = append(order.Items, orderItem)
	}
	return order, nil
}

// resolveItem finds the local item backing a line item, creating a
// placeholder when the catalog pass never produced one (for example an
// ad-hoc line rung up without a catalog entry).
func (g *OrderIngester) resolveItem(ctx context.Context, merchantID string, li square.OrderLineItem, index *itemIndex) (*domain.Item, error) {
	if li.CatalogObjectID != "" {
		if item, ok := index.byExternalID[li.CatalogObjectID]; ok {
			return item, nil
		}
	}
	if item, ok := index.byName[strings.ToLower(li.Name)]; ok {
		return item, nil
	}

	price := decimal.Zero
	if li.BasePriceMoney != nil {
		price = li.BasePriceMoney.Decimal()
	}
	item := &domain.Item{
		MerchantID:   merchantID,
		Name:         li.Name,
		Category:     importedCategoryName,
		CurrentPrice: price,
	}
	if li.CatalogObjectID != "" {
		externalID := li.CatalogObjectID
		item.ExternalID = &externalID
	}

	if err := g.items.CreateBatch(ctx, []*domain.Item{item}); err != nil {
		return nil, fmt.Errorf("failed to create item for line %q: %w", li.Name, err)
	}
	if item.ExternalID != nil {
		index.byExternalID[*item.ExternalID] = item
	}
	index.byName[strings.ToLower(item.Name)] = item
	metrics.ItemsCreated.Inc()
	return item, nil
}

func (g *OrderIngester) loadItemIndex(ctx context.Context, merchantID string) (*itemIndex, error) {
	items, err := g.items.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load local items: %w", err)
	}
	index := &itemIndex{
		byExternalID: make(map[string]*domain.Item, len(items)),
		byName:       make(map[string]*domain.Item, len(items)),
	}
	for i := range items {
		item := &items[i]
		if item.ExternalID != nil && *item.ExternalID != "" {
			index.byExternalID[*item.ExternalID] = item
		}
		index.byName[strings.ToLower(item.Name)] = item
	}
	return index, nil
}

func (g *OrderIngester) recordProgress(ctx context.Context, merchantID string, mutate func(*domain.SyncState)) {
	if g.progress == nil {
		return
	}
	if err := g.progress.Update(ctx, merchantID, mutate); err != nil {
		g.logger.Warn().Err(err).Str("merchant_id", merchantID).Msg("Failed to record order progress")
	}
}
