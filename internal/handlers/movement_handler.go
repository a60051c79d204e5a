package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bancoatlas/backoffice/internal/middleware"
	"github.com/bancoatlas/backoffice/internal/models"
	"github.com/bancoatlas/backoffice/internal/services"
)

type MovementHandler struct {
	log *services.MovementLog
}

func NewMovementHandler(log *services.MovementLog) *MovementHandler {
	return &MovementHandler{log: log}
}

// GetMovement retrieves one movement by guid
// @Summary Get movement
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param movementId path string true "Movement guid"
// @Success 200 {object} models.Movement
// @Failure 404 {object} services.ErrorResponse
// @Router /movements/{movementId} [get]
func (h *MovementHandler) GetMovement(w http.ResponseWriter, r *http.Request) {
	movement, err := h.log.GetByGUID(r.Context(), chi.URLParam(r, "movementId"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}
	if movement == nil {
		services.SendErrorResponse(w, "Movement not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movement)
}

// GetMovements lists the caller's movements, or every movement when the
// back-office all flag is set
// @Summary List movements
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param all query bool false "List all clients' movements"
// @Success 200 {object} object{movements=[]models.Movement,count=int}
// @Router /movements [get]
func (h *MovementHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var movements []models.Movement
	var err error
	if r.URL.Query().Get("all") == "true" {
		movements, err = h.log.GetAll(r.Context())
	} else {
		movements, err = h.log.GetByClient(r.Context(), principal.ClientGUID)
	}
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch movements", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"movements": movements,
		"count":     len(movements),
	})
}
