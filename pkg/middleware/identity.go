package middleware

import (
	"net/http"

	"recohub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity middleware trusts the X-User-ID header set by the upstream edge.
// Session validation happens there; this service only needs a stable user id.
func Identity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get("X-User-ID")
			if rawID == "" {
				utils.ResponseUnauthorized(w, "Missing user identity")
				return
			}

			userID, err := uuid.Parse(rawID)
			if err != nil {
				logger.Warn("Malformed user identity header",
					zap.String("user_id", rawID),
					zap.Error(err))
				utils.ResponseUnauthorized(w, "Invalid user identity")
				return
			}

			ctx := utils.SetUserContext(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
