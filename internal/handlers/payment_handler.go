package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bancoatlas/backoffice/internal/models"
	"github.com/bancoatlas/backoffice/internal/services"
)

type PaymentHandler struct {
	service   *services.PaymentService
	validator *services.ValidationHelper
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreatePayrollIncome books a salary deposit against a client account
// @Summary Create payroll income
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreatePayrollIncomeRequest true "Payroll deposit"
// @Success 201 {object} models.Movement
// @Router /payments/payroll [post]
func (h *PaymentHandler) CreatePayrollIncome(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePayrollIncomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	movement, err := h.service.CreatePayrollIncome(r.Context(), req)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(movement)
}

// CreateCardPayment books a merchant charge against the card's account
// @Summary Create card payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCardPaymentRequest true "Card charge"
// @Success 201 {object} models.Movement
// @Router /payments/card [post]
func (h *PaymentHandler) CreateCardPayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCardPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	movement, err := h.service.CreateCardPayment(r.Context(), req)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), services.StatusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(movement)
}
