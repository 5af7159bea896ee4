package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/scriptgate/scriptgate/internal/auth"
)

// AdminAuthConfig holds configuration for the admin token gate.
type AdminAuthConfig struct {
	Logger *slog.Logger
	// TokenHash is the Argon2id hash of the admin token. When empty the
	// gate is disabled and requests pass through unchecked.
	TokenHash string
}

// AdminAuth returns middleware that requires a bearer token matching the
// configured hash. Applied to destructive panel routes and the metrics
// snapshot.
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.TokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeAdminAuthError(w, http.StatusUnauthorized, "admin token required")
				return
			}

			ok, err := auth.VerifyToken(token, cfg.TokenHash)
			if err != nil {
				cfg.Logger.Error("admin token verification failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAdminAuthError(w, http.StatusInternalServerError, "token verification failed")
				return
			}
			if !ok {
				cfg.Logger.Warn("admin token rejected",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeAdminAuthError(w, http.StatusForbidden, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeAdminAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
