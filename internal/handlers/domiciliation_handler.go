package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bancoatlas/backoffice/internal/middleware"
	"github.com/bancoatlas/backoffice/internal/models"
	"github.com/bancoatlas/backoffice/internal/services"
)

type DomiciliationHandler struct {
	service   *services.DomiciliationService
	validator *services.ValidationHelper
}

func NewDomiciliationHandler(service *services.DomiciliationService) *DomiciliationHandler {
	return &DomiciliationHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateDomiciliation creates a mandate and charges its first installment
// @Summary Create domiciliation
// @Tags domiciliations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateDomiciliationRequest true "Mandate request"
// @Success 201 {object} models.Domiciliation
// @Router /domiciliations [post]
func (h *DomiciliationHandler) CreateDomiciliation(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.CreateDomiciliationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	mandate, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(mandate)
}

// DeactivateDomiciliation deactivates any mandate (back-office operation)
// @Summary Deactivate domiciliation
// @Tags domiciliations
// @Produce json
// @Security BearerAuth
// @Param mandateId path string true "Mandate guid"
// @Success 200 {object} models.Domiciliation
// @Router /domiciliations/{mandateId}/deactivate [post]
func (h *DomiciliationHandler) DeactivateDomiciliation(w http.ResponseWriter, r *http.Request) {
	mandate, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "mandateId"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mandate)
}

// DeactivateOwnDomiciliation deactivates a mandate owned by the caller
// @Summary Deactivate own domiciliation
// @Tags domiciliations
// @Produce json
// @Security BearerAuth
// @Param mandateId path string true "Mandate guid"
// @Success 200 {object} models.Domiciliation
// @Router /domiciliations/own/{mandateId}/deactivate [post]
func (h *DomiciliationHandler) DeactivateOwnDomiciliation(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	mandate, err := h.service.DeactivateOwn(r.Context(), principal, chi.URLParam(r, "mandateId"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mandate)
}
