package middleware

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/reelnest/backend/internal/logging"
)

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.FromContext(r.Context()).Error("encode middleware response", "status", status, "error", err)
	}
}
