package api

import (
	"net/http"
	"strings"

	"savor-core-square-layer/internal/domain"

	"github.com/rs/zerolog"
)

// MerchantIDMiddleware extracts the merchant identity from the
// X-Merchant-ID header and stores it in the request context. Public routes
// (health, metrics, swagger) are skipped.
func MerchantIDMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/swagger/") {
				next.ServeHTTP(w, r)
				return
			}

			merchantID := r.Header.Get("X-Merchant-ID")
			if merchantID == "" {
				logger.Warn().Str("path", path).Msg("Request missing X-Merchant-ID header")
				writeError(w, http.StatusBadRequest, "X-Merchant-ID header is required")
				return
			}

			ctx := domain.WithMerchantID(r.Context(), merchantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
