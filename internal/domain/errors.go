package domain

import "errors"

var (
	// Authentication errors
	ErrAuthenticationFailed = errors.New("square: authentication failed")
	ErrTokenRefreshFailed   = errors.New("square: token refresh failed")

	// Location errors
	ErrNoLocationAvailable = errors.New("square: no location_id available")

	// Transport errors
	ErrRateLimited = errors.New("square: rate limited")

	// Integration errors
	ErrIntegrationNotFound = errors.New("square: integration not found")
	ErrSyncAlreadyRunning  = errors.New("square: a sync is already running for this merchant")

	// Persistence errors
	ErrDuplicateExternalID = errors.New("square: duplicate external id")
)
