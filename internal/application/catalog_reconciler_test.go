package application

import (
	"context"
	"testing"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/square"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogItem(objectID, variationID, name string, priceCents int64) square.CatalogObject {
	return square.CatalogObject{
		Type: square.CatalogTypeItem,
		ID:   objectID,
		ItemData: &square.CatalogItemData{
			Name: name,
			Variations: []square.CatalogObject{
				{
					Type: square.CatalogTypeItemVariation,
					ID:   variationID,
					ItemVariationData: &square.CatalogItemVariationData{
						ItemID:     objectID,
						PriceMoney: &square.Money{Amount: priceCents, Currency: "USD"},
					},
				},
			},
		},
	}
}

func unpricedCatalogItem(objectID, variationID, name string) square.CatalogObject {
	return square.CatalogObject{
		Type: square.CatalogTypeItem,
		ID:   objectID,
		ItemData: &square.CatalogItemData{
			Name: name,
			Variations: []square.CatalogObject{
				{
					Type:              square.CatalogTypeItemVariation,
					ID:                variationID,
					ItemVariationData: &square.CatalogItemVariationData{ItemID: objectID},
				},
			},
		},
	}
}

func newCatalogReconciler(api *fakeSquareAPI, items *fakeItemRepo, history *fakePriceHistoryRepo) *CatalogReconciler {
	return NewCatalogReconciler(api, &fakeTokenSource{token: "tok"}, items, history, nil, testLogger())
}

func TestSyncCatalogSkipsItemsWithoutPrice(t *testing.T) {
	api := &fakeSquareAPI{
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{
				catalogItem("OBJ-1", "VAR-1", "Latte", 450),
				unpricedCatalogItem("OBJ-2", "VAR-2", "Water"),
				catalogItem("OBJ-3", "VAR-3", "Croissant", 325),
			}, nil
		},
	}
	items := newFakeItemRepo()
	history := &fakePriceHistoryRepo{}
	reconciler := newCatalogReconciler(api, items, history)

	err := reconciler.SyncCatalog(context.Background(), &domain.Integration{MerchantID: "M1"})
	require.NoError(t, err)

	assert.Equal(t, 2, items.count())
	assert.NotNil(t, items.byName("Latte"))
	assert.NotNil(t, items.byName("Croissant"))
	assert.Nil(t, items.byName("Water"))
}

func TestSyncCatalogSkipsNamelessEntries(t *testing.T) {
	api := &fakeSquareAPI{
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{
				catalogItem("OBJ-1", "VAR-1", "", 450),
				catalogItem("OBJ-2", "VAR-2", "Latte", 450),
			}, nil
		},
	}
	items := newFakeItemRepo()
	reconciler := newCatalogReconciler(api, items, &fakePriceHistoryRepo{})

	err := reconciler.SyncCatalog(context.Background(), &domain.Integration{MerchantID: "M1"})
	require.NoError(t, err)

	// A priced but nameless entry must not create an empty-named item
	assert.Equal(t, 1, items.count())
	assert.Nil(t, items.byName(""))
	assert.NotNil(t, items.byName("Latte"))
}

func TestSyncCatalogCreatesItemsWithImportDefaults(t *testing.T) {
	api := &fakeSquareAPI{
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{catalogItem("OBJ-1", "VAR-1", "Latte", 450)}, nil
		},
	}
	items := newFakeItemRepo()
	reconciler := newCatalogReconciler(api, items, &fakePriceHistoryRepo{})

	err := reconciler.SyncCatalog(context.Background(), &domain.Integration{MerchantID: "M1"})
	require.NoError(t, err)

	created := items.byName("Latte")
	require.NotNil(t, created)
	assert.Equal(t, "M1", created.MerchantID)
	assert.Equal(t, "From Square", created.Category)
	require.NotNil(t, created.ExternalID)
	assert.Equal(t, "VAR-1", *created.ExternalID)
	assert.True(t, created.CurrentPrice.Equal(decimal.RequireFromString("4.50")))
}

func TestSyncCatalogRecordsPriceChange(t *testing.T) {
	externalID := "VAR-1"
	existing := &domain.Item{
		MerchantID:   "M1",
		ExternalID:   &externalID,
		Name:         "Latte",
		CurrentPrice: decimal.RequireFromString("4.50"),
	}
	api := &fakeSquareAPI{
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{catalogItem("OBJ-1", "VAR-1", "Latte", 525)}, nil
		},
	}
	items := newFakeItemRepo(existing)
	history := &fakePriceHistoryRepo{}
	reconciler := newCatalogReconciler(api, items, history)

	err := reconciler.SyncCatalog(context.Background(), &domain.Integration{MerchantID: "M1"})
	require.NoError(t, err)

	assert.Equal(t, 1, items.count())
	updated := items.byName("Latte")
	assert.True(t, updated.CurrentPrice.Equal(decimal.RequireFromString("5.25")))

	require.Len(t, history.rows, 1)
	row := history.rows[0]
	assert.Equal(t, existing.ID, row.ItemID)
	assert.True(t, row.PreviousPrice.Equal(decimal.RequireFromString("4.50")))
	assert.True(t, row.NewPrice.Equal(decimal.RequireFromString("5.25")))
	assert.Equal(t, "Updated from Square", row.Reason)
}

func TestSyncCatalogUnchangedPriceLeavesNoHistory(t *testing.T) {
	externalID := "VAR-1"
	existing := &domain.Item{
		MerchantID:   "M1",
		ExternalID:   &externalID,
		Name:         "Latte",
		CurrentPrice: decimal.RequireFromString("4.50"),
	}
	api := &fakeSquareAPI{
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{catalogItem("OBJ-1", "VAR-1", "Latte", 450)}, nil
		},
	}
	items := newFakeItemRepo(existing)
	history := &fakePriceHistoryRepo{}
	reconciler := newCatalogReconciler(api, items, history)

	err := reconciler.SyncCatalog(context.Background(), &domain.Integration{MerchantID: "M1"})
	require.NoError(t, err)

	assert.Empty(t, history.rows)
	assert.Equal(t, 1, items.count())
}

func TestSyncCatalogRefreshesDescription(t *testing.T) {
	externalID := "VAR-1"
	existing := &domain.Item{
		MerchantID:   "M1",
		ExternalID:   &externalID,
		Name:         "Latte",
		Description:  "Old blurb",
		CurrentPrice: decimal.RequireFromString("4.50"),
	}
	remote := catalogItem("OBJ-1", "VAR-1", "Latte", 450)
	remote.ItemData.Description = "Double shot with steamed milk"
	api := &fakeSquareAPI{
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{remote}, nil
		},
	}
	items := newFakeItemRepo(existing)
	history := &fakePriceHistoryRepo{}
	reconciler := newCatalogReconciler(api, items, history)

	err := reconciler.SyncCatalog(context.Background(), &domain.Integration{MerchantID: "M1"})
	require.NoError(t, err)

	updated := items.byName("Latte")
	require.NotNil(t, updated)
	assert.Equal(t, "Double shot with steamed milk", updated.Description)
	assert.Empty(t, history.rows, "a description change alone records no price history")
}

func TestSyncCatalogAdoptsExternalIDForNameMatch(t *testing.T) {
	// Item created locally before the integration existed: no external id
	existing := &domain.Item{
		MerchantID:   "M1",
		Name:         "Latte",
		CurrentPrice: decimal.RequireFromString("4.50"),
	}
	api := &fakeSquareAPI{
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{catalogItem("OBJ-1", "VAR-1", "LATTE", 450)}, nil
		},
	}
	items := newFakeItemRepo(existing)
	reconciler := newCatalogReconciler(api, items, &fakePriceHistoryRepo{})

	err := reconciler.SyncCatalog(context.Background(), &domain.Integration{MerchantID: "M1"})
	require.NoError(t, err)

	assert.Equal(t, 1, items.count())
	matched := items.byName("Latte")
	require.NotNil(t, matched.ExternalID)
	assert.Equal(t, "VAR-1", *matched.ExternalID)
}
