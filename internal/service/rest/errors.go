package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// errorResponse — единый формат ошибки API.
type errorResponse struct {
	Error string `json:"error"`
}

// Ошибки валидации входных данных транслируются в 400.
var validationErrors = []error{
	domain.ErrInvalidAmount,
	domain.ErrInvalidCurrency,
	domain.ErrCurrencyMismatch,
	domain.ErrInvalidCreditLimit,
	domain.ErrInvalidPercentage,
	domain.ErrInvalidOrderID,
	domain.ErrInvalidPurchaseAmount,
	domain.ErrInvalidPurchaseDate,
	domain.ErrInvalidEmail,
	domain.ErrInvalidAddress,
	domain.ErrInvalidCountry,
	domain.ErrInvalidPersonalInfo,
	domain.ErrEmptyReason,
	domain.ErrTrackingRequired,
	domain.ErrEmptyOrder,
	domain.ErrInvalidDiscount,
	domain.ErrDiscountNotResolved,
	domain.ErrInvalidAuditEntry,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor отображает доменную ошибку в HTTP-статус:
// валидация 400, нарушение бизнес-правила 422, не найдено 404,
// занятый email и конфликт версий 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyTaken):
		return http.StatusConflict
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsVersionConflict(err):
		return http.StatusConflict
	case domain.IsBusinessRuleViolation(err):
		return http.StatusUnprocessableEntity
	case isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
