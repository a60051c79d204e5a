package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bancoatlas/backoffice/internal/middleware"
	"github.com/bancoatlas/backoffice/internal/models"
	"github.com/bancoatlas/backoffice/internal/services"
)

type TransferHandler struct {
	service   *services.TransferService
	validator *services.ValidationHelper
}

func NewTransferHandler(service *services.TransferService) *TransferHandler {
	return &TransferHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateTransfer settles a transfer from the caller's account
// @Summary Create transfer
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTransferRequest true "Transfer request"
// @Success 201 {object} services.TransferResult
// @Router /transfers [post]
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.CreateTransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.CreateTransfer(r.Context(), principal, req)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// RevokeTransfer reverses a settled transfer by its credit-leg movement
// @Summary Revoke transfer
// @Tags transfers
// @Produce json
// @Security BearerAuth
// @Param movementId path string true "Credit-leg movement guid"
// @Success 200 {object} services.TransferResult
// @Router /transfers/{movementId}/revoke [post]
func (h *TransferHandler) RevokeTransfer(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	movementID := chi.URLParam(r, "movementId")
	result, err := h.service.RevokeTransfer(r.Context(), principal, movementID)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// decodeBody applies the shared body-decoding policy: size cap, unknown
// fields rejected, exactly one JSON object.
func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}
