package middleware

import (
	"net/http"
	"strings"

	"github.com/reelnest/backend/internal/auth"
	"github.com/reelnest/backend/internal/logging"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved user id on the request context for downstream handlers.
func RequireUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "No token provided")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("rejected bearer token", "error", err)
				writeError(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
