package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bancoatlas/backoffice/internal/cache"
	"github.com/bancoatlas/backoffice/internal/models"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(validationErr, &verrs) {
			for _, err := range verrs {
				errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
			}
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// StatusForError maps an engine error to the HTTP status the thin layer
// responds with. Unrecognized errors are internal failures.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrClientNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrCardNotFound),
		errors.Is(err, ErrMovementNotFound),
		errors.Is(err, ErrMandateNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccountNotOwned),
		errors.Is(err, ErrMovementNotOwned),
		errors.Is(err, ErrMandateNotOwned),
		errors.Is(err, ErrAccountMismatch):
		return http.StatusForbidden
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSameAccountTransfer),
		errors.Is(err, models.ErrInvalidPeriodicity),
		errors.Is(err, models.ErrMalformedMovement):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyRevoked),
		errors.Is(err, ErrNotARecipientTransfer):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTransactionFailed), errors.Is(err, cache.ErrDecode):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
