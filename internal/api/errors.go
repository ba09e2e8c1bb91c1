package api

import (
	"errors"
	"net/http"

	apperrors "sjsage522/pricecompare/pkg/errors"
	"sjsage522/pricecompare/services/tracker"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Details []string `json:"details,omitempty"`
}

// statusFor maps an error onto an HTTP status
func statusFor(err error) int {
	var validationErr *tracker.ValidationError
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	}

	switch apperrors.KindOf(err) {
	case apperrors.ErrorTypeNoPriceFound, apperrors.ErrorTypeUnparseablePrice, apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeSourceUnreachable:
		return http.StatusBadGateway
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
