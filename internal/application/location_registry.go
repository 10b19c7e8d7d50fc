package application

import (
	"context"
	"fmt"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/ports"

	"github.com/rs/zerolog"
)

// LocationRegistry resolves and persists the set of Square locations a
// merchant's orders are attributed to. The list stored on the integration
// record is authoritative once populated; the remote API is consulted only
// when no locations are stored yet.
type LocationRegistry struct {
	api          ports.SquareAPI
	tokens       ports.TokenSource
	integrations ports.IntegrationRepository
	logger       zerolog.Logger
}

// NewLocationRegistry creates a new location registry
func NewLocationRegistry(api ports.SquareAPI, tokens ports.TokenSource, integrations ports.IntegrationRepository, logger zerolog.Logger) *LocationRegistry {
	return &LocationRegistry{
		api:          api,
		tokens:       tokens,
		integrations: integrations,
		logger:       logger,
	}
}

// Refresh fetches the merchant's locations from Square, persists the full
// id list on the integration record and returns it. The first location
// returned by the API becomes the primary. Returns
// domain.ErrNoLocationAvailable when the merchant has no locations.
func (r *LocationRegistry) Refresh(ctx context.Context, integ *domain.Integration) ([]string, error) {
	var ids []string
	err := r.tokens.Do(ctx, integ, func(accessToken string) error {
		locations, err := r.api.ListLocations(ctx, accessToken)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, loc := range locations {
			ids = append(ids, loc.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	if len(ids) == 0 {
		return nil, domain.ErrNoLocationAvailable
	}

	integ.SetLocationIDs(ids)
	if err := r.integrations.UpdateLocations(ctx, integ); err != nil {
		return nil, fmt.Errorf("failed to persist location ids: %w", err)
	}

	r.logger.Debug().
		Str("merchant_id", integ.MerchantID).
		Int("location_count", len(ids)).
		Str("primary_location_id", ids[0]).
		Msg("Refreshed merchant locations")
	return ids, nil
}

// Resolve returns the cached location ids from the integration record,
// refreshing from the API only when none are stored yet.
func (r *LocationRegistry) Resolve(ctx context.Context, integ *domain.Integration) ([]string, error) {
	if ids := integ.LocationIDs(); len(ids) > 0 {
		return ids, nil
	}
	return r.Refresh(ctx, integ)
}
