package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"invalid", Invalid("bad input"), KindInvalid},
		{"not found", NotFound("User not found!"), KindNotFound},
		{"unavailable", Unavailable("provider down", errors.New("timeout")), KindUnavailable},
		{"conflict", Conflict("This information already exists."), KindConflict},
		{"partial", Partial("some items failed"), KindPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.True(t, IsKind(tt.err, tt.kind))
		})
	}
}

func TestKindOf_WrappedAndForeignErrors(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", NotFound("User not found!"))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestError_UnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("provider down", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "provider down")
	assert.Contains(t, err.Error(), "connection refused")
}
