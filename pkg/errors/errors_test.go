package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewRemoteCallError("gemini call failed", errors.New("quota exceeded"))
	assert.Equal(t, "REMOTE_CALL: gemini call failed: quota exceeded", err.Error())

	plain := NewValidationError("priority is empty")
	assert.Equal(t, "VALIDATION: priority is empty", plain.Error())
}

func TestIsType_WalksWrappedChain(t *testing.T) {
	cause := NewIndexUnavailableError("query failed", errors.New("connection refused"))
	wrapped := fmt.Errorf("retrieve context: %w", cause)

	assert.True(t, IsType(wrapped, ErrorTypeIndexUnavailable))
	assert.False(t, IsType(wrapped, ErrorTypeRemoteCall))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeInternal))
}

func TestTypeOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, ErrorTypeMalformedResponse, TypeOf(NewMalformedResponseError("empty reply")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("boom")))
}
