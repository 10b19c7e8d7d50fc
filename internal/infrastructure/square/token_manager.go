package square

import (
	"context"
	"errors"
	"fmt"
	"time"

	"savor-core-square-layer/internal/domain"
	"savor-core-square-layer/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// tokenState models the credential lifecycle explicitly so the
// refresh-at-most-once contract is structural rather than relying on
// catching a particular error twice.
type tokenState int

const (
	tokenValid tokenState = iota
	tokenExpired
	tokenRefreshing
	tokenFailed
)

// TokenStore persists rotated tokens back onto the integration record
type TokenStore interface {
	UpdateTokens(ctx context.Context, integration *domain.Integration) error
}

// TokenManager owns the access/refresh-token lifecycle for merchant
// integrations and wraps Square calls with the refresh-once-and-retry
// contract.
type TokenManager struct {
	api    *Client
	store  TokenStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(api *Client, store TokenStore, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		api:    api,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureValid returns a usable access token for the integration. When the
// stored expiry is in the past and a refresh token exists, it performs a
// refresh-token grant and persists the rotated pair first. A failed refresh
// leaves the stored token untouched and returns it anyway: the token may
// still be accepted, and Do recovers if it is not.
func (tm *TokenManager) EnsureValid(ctx context.Context, integ *domain.Integration) (string, error) {
	state := tokenValid
	if integ.TokenExpired(tm.now()) && integ.RefreshToken != "" {
		state = tokenExpired
	}
	if state == tokenExpired {
		if err := tm.refresh(ctx, integ); err != nil {
			tm.logger.Warn().Err(err).
				Str("merchant_id", integ.MerchantID).
				Msg("Token refresh failed, proceeding with stored token")
		}
	}
	return integ.AccessToken, nil
}

// Do runs call with a valid access token. On an authentication failure the
// state machine transitions Valid -> Expired -> Refreshing and the original
// call is retried exactly once with the fresh token; a second authentication
// failure transitions to Failed and surfaces domain.ErrAuthenticationFailed.
func (tm *TokenManager) Do(ctx context.Context, integ *domain.Integration, call func(accessToken string) error) error {
	if _, err := tm.EnsureValid(ctx, integ); err != nil {
		return err
	}

	state := tokenValid
	refreshed := false
	for {
		switch state {
		case tokenValid:
			err := call(integ.AccessToken)
			if err == nil {
				return nil
			}
			if !errors.Is(err, domain.ErrAuthenticationFailed) {
				return err
			}
			state = tokenExpired
		case tokenExpired:
			// a single refresh attempt per Do invocation
			if refreshed || integ.RefreshToken == "" {
				state = tokenFailed
				continue
			}
			state = tokenRefreshing
		case tokenRefreshing:
			refreshed = true
			if err := tm.refresh(ctx, integ); err != nil {
				tm.logger.Warn().Err(err).
					Str("merchant_id", integ.MerchantID).
					Msg("Token refresh after rejection failed")
				state = tokenFailed
				continue
			}
			state = tokenValid
		case tokenFailed:
			return fmt.Errorf("access token rejected: %w", domain.ErrAuthenticationFailed)
		}
	}
}

// refresh performs a refresh-token grant and persists the rotated pair.
// The stored tokens are only overwritten after the grant succeeds.
func (tm *TokenManager) refresh(ctx context.Context, integ *domain.Integration) error {
	resp, err := tm.api.ObtainToken(ctx, TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		RefreshToken: integ.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenRefreshFailed, err)
	}

	integ.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		integ.RefreshToken = resp.RefreshToken
	}
	if !resp.ExpiresAt.IsZero() {
		expiresAt := resp.ExpiresAt
		integ.TokenExpiresAt = &expiresAt
	}

	if err := tm.store.UpdateTokens(ctx, integ); err != nil {
		return fmt.Errorf("failed to persist rotated tokens: %w", err)
	}

	metrics.TokenRefreshes.Inc()
	tm.logger.Info().
		Str("merchant_id", integ.MerchantID).
		Time("expires_at", resp.ExpiresAt).
		Msg("Access token refreshed")
	return nil
}
