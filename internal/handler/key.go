package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/scriptgate/scriptgate/internal/handler/dto"
	"github.com/scriptgate/scriptgate/internal/service"
)

// KeyHandler handles key issuance and validation endpoints.
type KeyHandler struct {
	logger  *slog.Logger
	service *service.EntitlementService
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(svc *service.EntitlementService, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		logger:  logger,
		service: svc,
	}
}

// FreeKey handles POST /api/free-key
func (h *KeyHandler) FreeKey(w http.ResponseWriter, r *http.Request) {
	var req dto.FreeKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	key, err := h.service.IssueFreeKey(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "User ID is required.")
		case errors.Is(err, service.ErrDuplicateKey):
			writeError(w, http.StatusForbidden, "You have already received a key.")
		default:
			h.logger.Error("failed to issue free key", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to issue key.")
		}
		return
	}

	h.logger.Info("free key issued",
		slog.String("user_id", key.UserID),
		slog.String("plan", h.service.FreePlan()),
	)

	writeJSON(w, http.StatusOK, dto.FreeKeyResponse{
		Key:       key.ID,
		ExpiresAt: key.ExpiresAt,
		Plan:      h.service.FreePlan(),
	})
}

// CheckKey handles POST /api/check-key
func (h *KeyHandler) CheckKey(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	key, err := h.service.ValidateKey(r.Context(), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields), errors.Is(err, service.ErrKeyInvalid):
			writeError(w, http.StatusUnauthorized, "Invalid or expired key.")
		default:
			h.logger.Error("failed to validate key", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to validate key.")
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.CheckKeyResponse{
		Status: "valid",
		Plan:   key.Plan(),
	})
}
