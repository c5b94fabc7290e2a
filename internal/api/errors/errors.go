// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/remiblancher/provider-conformance/internal/api/dto"
	"github.com/remiblancher/provider-conformance/internal/api/service"
	"github.com/remiblancher/provider-conformance/internal/cipher"
	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
	"github.com/remiblancher/provider-conformance/internal/sealed"
)

// Error codes for API responses.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeNoSuchAlgorithm  = "NO_SUCH_ALGORITHM"
	CodeNoSuchProvider   = "NO_SUCH_PROVIDER"
	CodeInvalidKey       = "INVALID_KEY"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeCryptoError      = "CRYPTO_ERROR"
	CodeIllegalState     = "ILLEGAL_STATE"
	CodeIntegrity        = "INTEGRITY_ERROR"
	CodeCanceled         = "CANCELED"
	CodeInternal         = "INTERNAL_ERROR"
)

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeInvalidRequest,
			Message: err.Error(),
		}
	case errors.Is(err, provider.ErrNoSuchProvider):
		return http.StatusNotFound, withContext(err, &dto.APIError{
			Code:    CodeNoSuchProvider,
			Message: err.Error(),
		})
	case errors.Is(err, provider.ErrNoSuchAlgorithm):
		return http.StatusNotFound, withContext(err, &dto.APIError{
			Code:    CodeNoSuchAlgorithm,
			Message: err.Error(),
		})
	case errors.Is(err, crypto.ErrInvalidKey):
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeInvalidKey,
			Message: err.Error(),
		}
	case errors.Is(err, crypto.ErrInvalidParameter):
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeInvalidParameter,
			Message: err.Error(),
		}
	case errors.Is(err, sealed.ErrIntegrity):
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeIntegrity,
			Message: err.Error(),
		}
	case errors.Is(err, crypto.ErrPadding),
		errors.Is(err, crypto.ErrIllegalBlockSize),
		errors.Is(err, crypto.ErrUnsupportedOperation):
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeCryptoError,
			Message: err.Error(),
		}
	case errors.Is(err, cipher.ErrIllegalState):
		return http.StatusConflict, &dto.APIError{
			Code:    CodeIllegalState,
			Message: err.Error(),
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, &dto.APIError{
			Code:    CodeCanceled,
			Message: err.Error(),
		}
	}

	// Default internal error
	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

// withContext adds the operation context of a *provider.Error.
func withContext(err error, apiErr *dto.APIError) *dto.APIError {
	var pErr *provider.Error
	if errors.As(err, &pErr) {
		apiErr.Details = map[string]string{"operation": pErr.Op}
		if pErr.Provider != "" {
			apiErr.Details["provider"] = pErr.Provider
		}
		if pErr.Algorithm != "" {
			apiErr.Details["algorithm"] = pErr.Algorithm
		}
	}
	return apiErr
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

// NewNotFound creates a not found error.
func NewNotFound(resource, id string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeNotFound,
		Message: resource + " not found",
		Details: map[string]string{"id": id},
	}
}
