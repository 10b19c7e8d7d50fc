package application

import (
	"context"
	"testing"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/cache"
	"savor-core-square-layer/internal/infrastructure/square"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	service *SyncService
	repo    *fakeIntegrationRepo
	items   *fakeItemRepo
	orders  *fakeOrderRepo
}

func newSyncFixture(t *testing.T, api *fakeSquareAPI) *syncFixture {
	t.Helper()
	repo := newFakeIntegrationRepo(&domain.Integration{MerchantID: "M1", AccessToken: "tok"})
	items := newFakeItemRepo()
	orders := newFakeOrderRepo()
	history := &fakePriceHistoryRepo{}
	progressCache := cache.NewMemoryProgressCache()
	tokens := &fakeTokenSource{token: "tok"}
	logger := testLogger()

	progress := NewProgressStore(repo, progressCache, logger)
	locations := NewLocationRegistry(api, tokens, repo, logger)
	catalog := NewCatalogReconciler(api, tokens, items, history, progress, logger)
	ingester := NewOrderIngester(api, tokens, orders, items, progress, testSquareConfig(), logger)
	service := NewSyncService(repo, tokens, locations, catalog, ingester, progress, progressCache, logger)

	return &syncFixture{service: service, repo: repo, items: items, orders: orders}
}

func (f *syncFixture) waitForCompletion(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !f.repo.leased("M1")
	}, 2*time.Second, 5*time.Millisecond, "sync did not finalize")
}

func happyPathAPI() *fakeSquareAPI {
	now := time.Now().UTC()
	return &fakeSquareAPI{
		listLocations: func(context.Context, string) ([]square.Location, error) {
			return []square.Location{{ID: "L1", Name: "Main"}}, nil
		},
		listCatalog: func(context.Context, string) ([]square.CatalogObject, error) {
			return []square.CatalogObject{catalogItem("OBJ-1", "VAR-1", "Latte", 450)}, nil
		},
		searchOrders: func(_ context.Context, _, _ string, _ square.OrderQuery) (*square.OrderPage, error) {
			return &square.OrderPage{Orders: []square.Order{
				remoteOrder("ORD-1", now.Add(-time.Hour), line("VAR-1", "Latte", "2", 450)),
			}}, nil
		},
	}
}

func TestTriggerRunsFullPipeline(t *testing.T) {
	f := newSyncFixture(t, happyPathAPI())
	ctx := context.Background()

	taskID, err := f.service.Trigger(ctx, "M1", SyncOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)

	f.waitForCompletion(t)

	state, err := f.service.Status(ctx, "M1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, domain.SyncStageCompleted, state.Stage)
	assert.Equal(t, 100, state.Progress)
	assert.Equal(t, 1, state.ItemsCreated)
	assert.Equal(t, 1, state.OrdersCreated)

	assert.Equal(t, 1, f.items.count())
	assert.Len(t, f.orders.orders, 1)

	integ, err := f.repo.FindByMerchantID(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, "L1", integ.PrimaryLocationID)
	assert.NotNil(t, integ.LastSyncAt)
}

func TestTriggerUnknownMerchant(t *testing.T) {
	f := newSyncFixture(t, happyPathAPI())

	_, err := f.service.Trigger(context.Background(), "nobody", SyncOptions{})
	require.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}

func TestTriggerRejectsConcurrentSync(t *testing.T) {
	release := make(chan struct{})
	api := happyPathAPI()
	blocking := api.listLocations
	api.listLocations = func(ctx context.Context, token string) ([]square.Location, error) {
		<-release
		return blocking(ctx, token)
	}
	f := newSyncFixture(t, api)
	ctx := context.Background()

	first, err := f.service.Trigger(ctx, "M1", SyncOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	// Second trigger while the first holds the lease
	_, err = f.service.Trigger(ctx, "M1", SyncOptions{})
	require.ErrorIs(t, err, domain.ErrSyncAlreadyRunning)

	close(release)
	f.waitForCompletion(t)

	// Lease released: a new trigger is accepted again
	_, err = f.service.Trigger(ctx, "M1", SyncOptions{})
	require.NoError(t, err)
	f.waitForCompletion(t)
}

func TestTriggerSkipsLocationLookupWhenStored(t *testing.T) {
	api := happyPathAPI()
	calls := 0
	api.listLocations = func(context.Context, string) ([]square.Location, error) {
		calls++
		return []square.Location{{ID: "L1", Name: "Main"}}, nil
	}
	f := newSyncFixture(t, api)
	ctx := context.Background()

	integ, err := f.repo.FindByMerchantID(ctx, "M1")
	require.NoError(t, err)
	integ.SetLocationIDs([]string{"L1"})
	require.NoError(t, f.repo.UpdateLocations(ctx, integ))

	_, err = f.service.Trigger(ctx, "M1", SyncOptions{})
	require.NoError(t, err)
	f.waitForCompletion(t)

	state, err := f.service.Status(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStageCompleted, state.Stage)
	assert.Zero(t, calls, "stored locations must be used without a remote lookup")
}

func TestSyncFailsWithoutLocations(t *testing.T) {
	api := happyPathAPI()
	api.listLocations = func(context.Context, string) ([]square.Location, error) {
		return nil, nil
	}
	f := newSyncFixture(t, api)
	ctx := context.Background()

	_, err := f.service.Trigger(ctx, "M1", SyncOptions{})
	require.NoError(t, err, "trigger acknowledges before the pipeline runs")

	f.waitForCompletion(t)

	state, err := f.service.Status(ctx, "M1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, domain.SyncStageFailed, state.Stage)
	assert.Contains(t, state.Error, "no location_id available")

	integ, err := f.repo.FindByMerchantID(ctx, "M1")
	require.NoError(t, err)
	assert.Nil(t, integ.LastSyncAt)
}

func TestStatusUnknownMerchant(t *testing.T) {
	f := newSyncFixture(t, happyPathAPI())
	_, err := f.service.Status(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}

func TestDisconnectRemovesIntegration(t *testing.T) {
	f := newSyncFixture(t, happyPathAPI())
	ctx := context.Background()

	require.NoError(t, f.service.Disconnect(ctx, "M1"))

	_, err := f.repo.FindByMerchantID(ctx, "M1")
	require.ErrorIs(t, err, domain.ErrIntegrationNotFound)

	err = f.service.Disconnect(ctx, "M1")
	require.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}
