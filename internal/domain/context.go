package domain

import "context"

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const merchantIDKey contextKey = "merchant_id"

// WithMerchantID stores the authenticated merchant id in the context
func WithMerchantID(ctx context.Context, merchantID string) context.Context {
	return context.WithValue(ctx, merchantIDKey, merchantID)
}

// MerchantIDFromContext returns the authenticated merchant id, or "" when absent
func MerchantIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(merchantIDKey).(string); ok {
		return v
	}
	return ""
}
