package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/scriptgate/scriptgate/internal/service"
)

// RawHandler serves script payloads to connected clients.
// Responses are text/plain: either the script code, or a kick payload the
// client executes to disconnect the excluded user.
type RawHandler struct {
	logger  *slog.Logger
	service *service.EntitlementService
}

// NewRawHandler creates a new RawHandler.
func NewRawHandler(svc *service.EntitlementService, logger *slog.Logger) *RawHandler {
	return &RawHandler{
		logger:  logger,
		service: svc,
	}
}

// Raw handles GET /raw/{id}?key=...&userId=...
func (h *RawHandler) Raw(w http.ResponseWriter, r *http.Request) {
	scriptID := r.PathValue("id")
	keyID := r.URL.Query().Get("key")
	userID := r.URL.Query().Get("userId")

	result, err := h.service.ResolveAccess(r.Context(), scriptID, keyID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScriptNotFound):
			http.Error(w, "Script not found", http.StatusNotFound)
		case errors.Is(err, service.ErrForbidden):
			http.Error(w, "Unauthorized", http.StatusForbidden)
		default:
			h.logger.Error("failed to resolve access",
				slog.String("error", err.Error()),
				slog.String("script_id", scriptID),
			)
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if result.Kicked {
		h.logger.Info("access kicked",
			slog.String("script_id", scriptID),
			slog.String("user_id", userID),
		)
		_, _ = w.Write([]byte(result.KickPayload))
		return
	}

	_, _ = w.Write([]byte(result.Code))
}
