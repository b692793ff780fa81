package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"not found maps to 404", ErrCodeNotFound, http.StatusNotFound},
		{"validation maps to 400", ErrCodeValidation, http.StatusBadRequest},
		{"amount range maps to 400", ErrCodeValidationRange, http.StatusBadRequest},
		{"invalid state maps to 422", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"business rule maps to 422", ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{"no account available maps to 422", ErrCodeNoAccountAvailable, http.StatusUnprocessableEntity},
		{"concurrency conflict maps to 409", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"lock held maps to 409", ErrCodeLockHeld, http.StatusConflict},
		{"internal maps to 500", ErrCodeInternal, http.StatusInternalServerError},
		{"unknown code defaults to 500", "ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"domain not found", "NOT_FOUND", ErrCodeNotFound},
		{"domain invalid state", "INVALID_STATE", ErrCodeInvalidState},
		{"domain invalid transition", "INVALID_TRANSITION", ErrCodeInvalidState},
		{"domain invalid utr", "INVALID_UTR", ErrCodeValidationFormat},
		{"domain invalid amount", "INVALID_AMOUNT", ErrCodeValidationRange},
		{"domain lock held", "LOCK_HELD", ErrCodeLockHeld},
		{"merchant disabled", "MERCHANT_DISABLED", ErrCodeBusinessRule},
		{"already settled", "ALREADY_SETTLED", ErrCodeInvalidState},
		{"already standardized", ErrCodeNotFound, ErrCodeNotFound},
		{"unknown passes through", "SOME_CUSTOM_CODE", "SOME_CUSTOM_CODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.code))
		})
	}
}

func TestDomainErrorCodeMapping_TargetsAreMapped(t *testing.T) {
	// Every normalized code must have an HTTP status, otherwise a mapped
	// domain error would still fall back to 500.
	for domainCode, normalized := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[normalized]
		assert.True(t, ok, "domain code %s maps to %s which has no HTTP status", domainCode, normalized)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "PayIn not found", "req-123")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "PayIn not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.Nil(t, resp.Data)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "must be positive"},
		{Field: "utr", Message: "must be alphanumeric"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-456", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}
