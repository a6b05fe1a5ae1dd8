package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mnemocard/mnemocard/internal/api/recovery"
)

// NewRouter wires the webhook and health routes.
func NewRouter(webhookPath string, webhook *WebhookHandler, health *HealthHandler, log zerolog.Logger) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)
	root.Use(requestID(log))

	root.HandleFunc(webhookPath, webhook.Receive).Methods("POST")

	root.HandleFunc("/api/health", health.CheckHealth).Methods("GET")
	root.HandleFunc("/api/health/db", health.CheckStorageHealth).Methods("GET")

	return root
}

// requestID tags every request with an id so log lines from one update
// can be correlated.
func requestID(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			log.Debug().Str("request_id", id).Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
