package application

import (
	"context"
	"sync"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/square"
	"savor-core-square-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeIntegrationRepo is an in-memory ports.IntegrationRepository
type fakeIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[string]*domain.Integration
	metaWrites   int
	lastMeta     *domain.SyncMetadata
	lastSyncAt   *time.Time
}

var _ ports.IntegrationRepository = (*fakeIntegrationRepo)(nil)

func newFakeIntegrationRepo(integrations ...*domain.Integration) *fakeIntegrationRepo {
	repo := &fakeIntegrationRepo{integrations: make(map[string]*domain.Integration)}
	for _, integ := range integrations {
		repo.integrations[integ.MerchantID] = integ
	}
	return repo
}

func (r *fakeIntegrationRepo) Create(_ context.Context, integration *domain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[integration.MerchantID] = integration
	return nil
}

func (r *fakeIntegrationRepo) FindByMerchantID(_ context.Context, merchantID string) (*domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	integ, ok := r.integrations[merchantID]
	if !ok {
		return nil, domain.ErrIntegrationNotFound
	}
	copied := *integ
	return &copied, nil
}

func (r *fakeIntegrationRepo) List(_ context.Context) ([]domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Integration, 0, len(r.integrations))
	for _, integ := range r.integrations {
		out = append(out, *integ)
	}
	return out, nil
}

func (r *fakeIntegrationRepo) UpdateTokens(_ context.Context, integration *domain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.integrations[integration.MerchantID]; ok {
		stored.AccessToken = integration.AccessToken
		stored.RefreshToken = integration.RefreshToken
		stored.TokenExpiresAt = integration.TokenExpiresAt
	}
	return nil
}

func (r *fakeIntegrationRepo) UpdateLocations(_ context.Context, integration *domain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.integrations[integration.MerchantID]; ok {
		stored.LocationIDsJSON = integration.LocationIDsJSON
		stored.PrimaryLocationID = integration.PrimaryLocationID
	}
	return nil
}

func (r *fakeIntegrationRepo) UpdateSyncMetadata(_ context.Context, merchantID string, meta *domain.SyncMetadata, lastSyncAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metaWrites++
	r.lastMeta = meta
	if stored, ok := r.integrations[merchantID]; ok {
		stored.SetSyncMetadata(meta)
		if lastSyncAt != nil {
			stored.LastSyncAt = lastSyncAt
			r.lastSyncAt = lastSyncAt
		}
	}
	return nil
}

func (r *fakeIntegrationRepo) AcquireSyncLease(_ context.Context, merchantID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.integrations[merchantID]
	if !ok || stored.SyncActive {
		return false, nil
	}
	stored.SyncActive = true
	return true, nil
}

func (r *fakeIntegrationRepo) ReleaseSyncLease(_ context.Context, merchantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.integrations[merchantID]; ok {
		stored.SyncActive = false
	}
	return nil
}

func (r *fakeIntegrationRepo) Delete(_ context.Context, merchantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.integrations, merchantID)
	return nil
}

func (r *fakeIntegrationRepo) leased(merchantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.integrations[merchantID]
	return ok && stored.SyncActive
}

// fakeItemRepo is an in-memory ports.ItemRepository
type fakeItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Item
}

var _ ports.ItemRepository = (*fakeItemRepo)(nil)

func newFakeItemRepo(items ...*domain.Item) *fakeItemRepo {
	repo := &fakeItemRepo{items: make(map[uuid.UUID]*domain.Item)}
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		repo.items[item.ID] = item
	}
	return repo
}

func (r *fakeItemRepo) ListByMerchant(_ context.Context, merchantID string) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Item
	for _, item := range r.items {
		if item.MerchantID == merchantID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) CreateBatch(_ context.Context, items []*domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		copied := *item
		r.items[item.ID] = &copied
	}
	return nil
}

func (r *fakeItemRepo) Update(_ context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *fakeItemRepo) byName(name string) *domain.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Name == name {
			return item
		}
	}
	return nil
}

func (r *fakeItemRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// fakeOrderRepo is an in-memory ports.OrderRepository
type fakeOrderRepo struct {
	mu         sync.Mutex
	maxDate    *time.Time
	known      map[string]struct{}
	orders     []*domain.Order
	createErrs []error
}

var _ ports.OrderRepository = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{known: make(map[string]struct{})}
}

func (r *fakeOrderRepo) MaxOrderDate(_ context.Context, _ string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxDate, nil
}

func (r *fakeOrderRepo) ExternalIDs(_ context.Context, _ string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.known))
	for id := range r.known {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *fakeOrderRepo) CreateBatch(_ context.Context, orders []*domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, order := range orders {
		if order.ID == uuid.Nil {
			order.ID = uuid.New()
		}
		r.orders = append(r.orders, order)
		r.known[order.ExternalID] = struct{}{}
	}
	return nil
}

func (r *fakeOrderRepo) CountByMerchant(_ context.Context, merchantID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, order := range r.orders {
		if order.MerchantID == merchantID {
			n++
		}
	}
	return n, nil
}

// fakePriceHistoryRepo is an in-memory ports.PriceHistoryRepository
type fakePriceHistoryRepo struct {
	mu   sync.Mutex
	rows []*domain.PriceHistory
}

var _ ports.PriceHistoryRepository = (*fakePriceHistoryRepo)(nil)

func (r *fakePriceHistoryRepo) CreateBatch(_ context.Context, rows []*domain.PriceHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *fakePriceHistoryRepo) ListByItem(_ context.Context, itemID uuid.UUID) ([]domain.PriceHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PriceHistory
	for _, row := range r.rows {
		if row.ItemID == itemID {
			out = append(out, *row)
		}
	}
	return out, nil
}

// fakeSquareAPI is a scriptable ports.SquareAPI
type fakeSquareAPI struct {
	obtainToken   func(ctx context.Context, grant square.TokenRequest) (*square.TokenResponse, error)
	listLocations func(ctx context.Context, accessToken string) ([]square.Location, error)
	listCatalog   func(ctx context.Context, accessToken string) ([]square.CatalogObject, error)
	searchOrders  func(ctx context.Context, accessToken, locationID string, q square.OrderQuery) (*square.OrderPage, error)
}

var _ ports.SquareAPI = (*fakeSquareAPI)(nil)

func (f *fakeSquareAPI) ObtainToken(ctx context.Context, grant square.TokenRequest) (*square.TokenResponse, error) {
	if f.obtainToken == nil {
		return &square.TokenResponse{}, nil
	}
	return f.obtainToken(ctx, grant)
}

func (f *fakeSquareAPI) ListLocations(ctx context.Context, accessToken string) ([]square.Location, error) {
	if f.listLocations == nil {
		return nil, nil
	}
	return f.listLocations(ctx, accessToken)
}

func (f *fakeSquareAPI) ListCatalog(ctx context.Context, accessToken string) ([]square.CatalogObject, error) {
	if f.listCatalog == nil {
		return nil, nil
	}
	return f.listCatalog(ctx, accessToken)
}

func (f *fakeSquareAPI) SearchOrders(ctx context.Context, accessToken, locationID string, q square.OrderQuery) (*square.OrderPage, error) {
	if f.searchOrders == nil {
		return &square.OrderPage{}, nil
	}
	return f.searchOrders(ctx, accessToken, locationID, q)
}

// fakeTokenSource hands out a static token without refresh behavior
type fakeTokenSource struct {
	token          string
	ensureValidErr error
	ensureCalls    int
}

var _ ports.TokenSource = (*fakeTokenSource)(nil)

func (f *fakeTokenSource) EnsureValid(_ context.Context, _ *domain.Integration) (string, error) {
	f.ensureCalls++
	if f.ensureValidErr != nil {
		return "", f.ensureValidErr
	}
	return f.token, nil
}

func (f *fakeTokenSource) Do(ctx context.Context, integ *domain.Integration, call func(accessToken string) error) error {
	if f.ensureValidErr != nil {
		return f.ensureValidErr
	}
	return call(f.token)
}
