package ports

import (
	"context"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/square"
)

// SquareAPI defines the interface for the Square API operations the sync
// engine consumes
type SquareAPI interface {
	// ObtainToken performs an OAuth token grant (authorization_code or refresh_token)
	ObtainToken(ctx context.Context, grant square.TokenRequest) (*square.TokenResponse, error)

	// ListLocations returns all of the merchant's locations
	ListLocations(ctx context.Context, accessToken string) ([]square.Location, error)

	// ListCatalog returns the merchant's full catalog of ITEM objects
	ListCatalog(ctx context.Context, accessToken string) ([]square.CatalogObject, error)

	// SearchOrders fetches one cursor page of orders for a location
	SearchOrders(ctx context.Context, accessToken, locationID string, q square.OrderQuery) (*square.OrderPage, error)
}

// TokenSource supplies valid access tokens for a merchant integration and
// wraps API calls with the refresh-once-and-retry contract.
type TokenSource interface {
	// EnsureValid returns a usable access token, refreshing an expired one
	// first when a refresh token is available
	EnsureValid(ctx context.Context, integration *domain.Integration) (string, error)

	// Do runs call with a valid token. On an authentication failure it
	// performs exactly one refresh and one retry; a second failure returns
	// an error wrapping domain.ErrAuthenticationFailed.
	Do(ctx context.Context, integration *domain.Integration, call func(accessToken string) error) error
}
