package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/scriptgate/scriptgate/internal/handler/dto"
	"github.com/scriptgate/scriptgate/internal/model"
	"github.com/scriptgate/scriptgate/internal/service"
)

// ScriptHandler handles script management and list editing endpoints.
type ScriptHandler struct {
	logger  *slog.Logger
	service *service.EntitlementService
}

// NewScriptHandler creates a new ScriptHandler.
func NewScriptHandler(svc *service.EntitlementService, logger *slog.Logger) *ScriptHandler {
	return &ScriptHandler{
		logger:  logger,
		service: svc,
	}
}

// Create handles POST /api/scripts
func (h *ScriptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	script, err := h.service.CreateScript(r.Context(), service.CreateScriptInput{
		Code:   req.Code,
		IsPaid: req.IsPaid,
		KeyID:  req.Key,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "Code and API key are required.")
		case errors.Is(err, service.ErrKeyInvalid):
			writeError(w, http.StatusUnauthorized, "Invalid or expired key.")
		default:
			h.logger.Error("failed to create script", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to create script.")
		}
		return
	}

	h.logger.Info("script created",
		slog.String("script_id", script.ID),
		slog.String("owner_user_id", script.OwnerUserID),
		slog.Bool("is_paid", script.IsPaid),
	)

	writeJSON(w, http.StatusOK, dto.CreateScriptResponse{
		ID:  script.ID,
		Key: script.OwnerKeyID,
	})
}

// List handles GET /api/scripts
func (h *ScriptHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListScripts(r.Context())
	if err != nil {
		h.logger.Error("failed to list scripts", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to list scripts.")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// Delete handles DELETE /api/scripts/{id}
func (h *ScriptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.service.DeleteScript(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrScriptNotFound):
			writeError(w, http.StatusNotFound, "Script not found.")
		default:
			h.logger.Error("failed to delete script", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to delete script.")
		}
		return
	}

	h.logger.Info("script deleted", slog.String("script_id", id))
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Script deleted."})
}

// GetLists handles GET /api/users/{id}
func (h *ScriptHandler) GetLists(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	lists, err := h.service.GetLists(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScriptNotFound):
			writeError(w, http.StatusNotFound, "Script not found.")
		default:
			h.logger.Error("failed to get lists", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Failed to get lists.")
		}
		return
	}

	writeJSON(w, http.StatusOK, lists)
}

// AddToList handles POST /api/users/{id}/{listType}
func (h *ScriptHandler) AddToList(w http.ResponseWriter, r *http.Request) {
	h.editList(w, r, h.service.AddToList, "added to")
}

// RemoveFromList handles DELETE /api/users/{id}/{listType}
func (h *ScriptHandler) RemoveFromList(w http.ResponseWriter, r *http.Request) {
	h.editList(w, r, h.service.RemoveFromList, "removed from")
}

// editList is the shared body of the two list mutation endpoints.
// An unknown list kind and a missing script collapse to the same 404, as
// the original API did.
func (h *ScriptHandler) editList(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id string, kind model.ListKind, userID string) error,
	verb string,
) {
	id := r.PathValue("id")

	kind, err := model.ParseListKind(r.PathValue("listType"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Invalid script or list type.")
		return
	}

	var req dto.ListEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := op(r.Context(), id, kind, req.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "User ID is required.")
		case errors.Is(err, service.ErrScriptNotFound):
			writeError(w, http.StatusNotFound, "Invalid script or list type.")
		default:
			h.logger.Error("failed to edit list",
				slog.String("error", err.Error()),
				slog.String("script_id", id),
				slog.String("list", kind.String()),
			)
			writeError(w, http.StatusInternalServerError, "Failed to update list.")
		}
		return
	}

	h.logger.Info("list updated",
		slog.String("script_id", id),
		slog.String("list", kind.String()),
		slog.String("user_id", req.UserID),
	)
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User " + verb + " " + kind.String() + "."})
}
