package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeSessionBusy, "transition in progress")

	assert.Equal(t, ErrCodeSessionBusy, err.Code)
	assert.Equal(t, "transition in progress", err.Message)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "[SES_003] transition in progress", err.Error())
}

func TestError_WithDetail(t *testing.T) {
	err := New(ErrCodeMoleculeInvalidSMILES, "invalid SMILES").WithDetail("attempt=2")

	assert.Equal(t, "[MOL_001] invalid SMILES: attempt=2", err.Error())

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "query failed"))
	})

	t.Run("wraps cause and supports errors.Is", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := Wrap(cause, ErrCodeDatabaseError, "query failed")

		require.NotNil(t, err)
		assert.True(t, stderrors.Is(err, cause))
		assert.Equal(t, ErrCodeDatabaseError, err.Code)
	})

	t.Run("unknown code preserves original classification", func(t *testing.T) {
		inner := New(ErrCodeProviderTimeout, "deadline exceeded")
		wrapped := Wrap(inner, ErrCodeUnknown, "structure generation failed")

		assert.Equal(t, ErrCodeProviderTimeout, wrapped.Code)
	})
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeSessionBusy, "busy")
	outer := fmt.Errorf("handler: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeSessionBusy))
	assert.False(t, IsCode(outer, ErrCodeSessionNotFound))
	assert.False(t, IsCode(nil, ErrCodeSessionBusy))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeNotFound, "missing")))
	assert.True(t, IsNotFound(New(ErrCodeSessionNotFound, "missing session")))
	assert.False(t, IsNotFound(New(ErrCodeConflict, "conflict")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(New(ErrCodeSessionBusy, "busy")))
	assert.True(t, IsConflict(Conflict("double submit")))
	assert.False(t, IsConflict(New(ErrCodeTimeout, "slow")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeProviderEmptyOutput, GetCode(New(ErrCodeProviderEmptyOutput, "empty")))
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeSessionBusy, http.StatusConflict},
		{ErrCodeIncompleteSession, http.StatusConflict},
		{ErrCodeStructureGenerationExhausted, http.StatusUnprocessableEntity},
		{ErrCodeValidatorUnavailable, http.StatusServiceUnavailable},
		{ErrCodeProviderTimeout, http.StatusGatewayTimeout},
		{ErrCodeSourceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeUploadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrorCode("BOGUS_999"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusForCode(tt.code), string(tt.code))
	}
}

func TestClientServerErrorClassification(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsServerError(ErrCodeAssemblyFailed))
	assert.False(t, IsClientError(ErrCodeInternal))
	assert.False(t, IsServerError(ErrCodeSessionBusy))
}
