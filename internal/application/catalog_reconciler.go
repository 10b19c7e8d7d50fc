package application

import (
	"context"
	"fmt"
	"strings"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/metrics"
	"savor-core-square-layer/internal/infrastructure/square"
	"savor-core-square-layer/internal/ports"

	"github.com/rs/zerolog"
)

const importedCategoryName = "From Square"
const priceChangeReason = "Updated from Square"

// CatalogReconciler mirrors the merchant's Square catalog into local items.
// Matching is two-phase: first by the stored external id, then by
// case-insensitive name for items created locally before the integration was
// connected. Every price change is recorded in the append-only price history.
type CatalogReconciler struct {
	api          ports.SquareAPI
	tokens       ports.TokenSource
	items        ports.ItemRepository
	priceHistory ports.PriceHistoryRepository
	progress     *ProgressStore
	logger       zerolog.Logger
}

// NewCatalogReconciler creates a new catalog reconciler
func NewCatalogReconciler(api ports.SquareAPI, tokens ports.TokenSource, items ports.ItemRepository, priceHistory ports.PriceHistoryRepository, progress *ProgressStore, logger zerolog.Logger) *CatalogReconciler {
	return &CatalogReconciler{
		api:          api,
		tokens:       tokens,
		items:        items,
		priceHistory: priceHistory,
		progress:     progress,
		logger:       logger,
	}
}

// SyncCatalog reconciles the remote catalog against local items for one
// merchant. Remote items with no name or no priced variation are skipped
// entirely; such an entry cannot be sold and has nothing to reconcile.
func (c *CatalogReconciler) SyncCatalog(ctx context.Context, integ *domain.Integration) error {
	var objects []square.CatalogObject
	err := c.tokens.Do(ctx, integ, func(accessToken string) error {
		var apiErr error
		objects, apiErr = c.api.ListCatalog(ctx, accessToken)
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("failed to list catalog: %w", err)
	}

	existing, err := c.items.ListByMerchant(ctx, integ.MerchantID)
	if err != nil {
		return fmt.Errorf("failed to load local items: %w", err)
	}

	byExternalID := make(map[string]*domain.Item, len(existing))
	byName := make(map[string]*domain.Item, len(existing))
	for i := range existing {
		item := &existing[i]
		if item.ExternalID != nil && *item.ExternalID != "" {
			byExternalID[*item.ExternalID] = item
		}
		byName[strings.ToLower(item.Name)] = item
	}

	var (
		toCreate  []*domain.Item
		toRecord  []*domain.PriceHistory
		processed int
		created   int
		updated   int
		skipped   int
	)

	for _, obj := range objects {
		if obj.Type != square.CatalogTypeItem || obj.ItemData == nil {
			continue
		}
		processed++

		if obj.ItemData.Name == "" {
			skipped++
			c.logger.Debug().
				Str("merchant_id", integ.MerchantID).
				Str("catalog_object_id", obj.ID).
				Msg("Skipping catalog item without name")
			continue
		}

		variation := firstPricedVariation(obj)
		if variation == nil {
			skipped++
			c.logger.Debug().
				Str("merchant_id", integ.MerchantID).
				Str("catalog_object_id", obj.ID).
				Str("name", obj.ItemData.Name).
				Msg("Skipping catalog item without priced variation")
			continue
		}
		price := variation.ItemVariationData.PriceMoney.Decimal()

		item := byExternalID[variation.ID]
		if item == nil {
			item = byExternalID[obj.ID]
		}
		if item == nil {
			item = byName[strings.ToLower(obj.ItemData.Name)]
		}

		if item == nil {
			externalID := variation.ID
			toCreate = append(toCreate, &domain.Item{
				MerchantID:   integ.MerchantID,
				ExternalID:   &externalID,
				Name:         obj.ItemData.Name,
				Description:  obj.ItemData.Description,
				Category:     importedCategoryName,
				CurrentPrice: price,
			})
			created++
			continue
		}

		changed := false
		if item.ExternalID == nil || *item.ExternalID != variation.ID {
			externalID := variation.ID
			item.ExternalID = &externalID
			changed = true
		}
		if item.Description != obj.ItemData.Description {
			item.Description = obj.ItemData.Description
			changed = true
		}
		if !item.CurrentPrice.Equal(price) {
			toRecord = append(toRecord, &domain.PriceHistory{
				ItemID:        item.ID,
				PreviousPrice: item.CurrentPrice,
				NewPrice:      price,
				Reason:        priceChangeReason,
			})
			item.CurrentPrice = price
			changed = true
		}
		if changed {
			if err := c.items.Update(ctx, item); err != nil {
				return fmt.Errorf("failed to update item %s: %w", item.Name, err)
			}
			updated++
		}
	}

	if len(toCreate) > 0 {
		if err := c.items.CreateBatch(ctx, toCreate); err != nil {
			return fmt.Errorf("failed to create items: %w", err)
		}
		metrics.ItemsCreated.Add(float64(len(toCreate)))
	}
	if len(toRecord) > 0 {
		if err := c.priceHistory.CreateBatch(ctx, toRecord); err != nil {
			return fmt.Errorf("failed to record price history: %w", err)
		}
	}

	if c.progress != nil {
		if err := c.progress.Update(ctx, integ.MerchantID, func(state *domain.SyncState) {
			state.ItemsProcessed = processed
			state.ItemsCreated = created
			state.ItemsUpdated = updated
		}); err != nil {
			c.logger.Warn().Err(err).Str("merchant_id", integ.MerchantID).Msg("Failed to record catalog progress")
		}
	}

	c.logger.Info().
		Str("merchant_id", integ.MerchantID).
		Int("processed", processed).
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Msg("Catalog sync completed")
	return nil
}

// firstPricedVariation returns the first variation carrying a price, or nil
// when the item has none.
func firstPricedVariation(obj square.CatalogObject) *square.CatalogObject {
	for i := range obj.ItemData.Variations {
		v := &obj.ItemData.Variations[i]
		if v.ItemVariationData != nil && v.ItemVariationData.PriceMoney != nil {
			return v
		}
	}
	return nil
}
