package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/erp-gateway/internal/apikey"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// APIKeyHeader carries the caller's API key
const APIKeyHeader = "X-API-KEY"

// AuthMiddleware rejects requests without a known API key.
// Paths listed in openPaths are served without a key.
func AuthMiddleware(store apikey.Store, openPaths []string, log *logrus.Logger) mux.MiddlewareFunc {
	open := make(map[string]struct{}, len(openPaths))
	for _, p := range openPaths {
		open[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := open[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				unauthorized(w)
				return
			}
			ok, err := store.Verify(r.Context(), key)
			if err != nil {
				log.WithError(err).WithField("request_id", RequestID(r.Context())).Error("API key lookup failed")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Internal Server Error"})
				return
			}
			if !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Unauthorized"})
}
