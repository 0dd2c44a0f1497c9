package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "basic error",
			appError: ConfigError("JWT_SECRET is required"),
			want:     "config: JWT_SECRET is required",
		},
		{
			name:     "error with code",
			appError: AuthError("invalid nonce").WithCode("NONCE"),
			want:     "authentication: invalid nonce: code=NONCE",
		},
		{
			name:     "error with cause",
			appError: ConnectionError("request failed", errors.New("dial tcp: refused")),
			want:     "connection: request failed: cause=dial tcp: refused",
		},
		{
			name: "context keys are sorted",
			appError: ValidationError("bad list").
				WithContext("provider", "mailchimp").
				WithContext("list", "abc"),
			want: "validation: bad list: context={list=abc, provider=mailchimp}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.appError.Error())
		})
	}
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, "subscriber not found", NotFoundError("subscriber").Message)
	assert.Equal(t, "timeout during provider lookup", TimeoutError("provider lookup").Message)
	assert.Equal(t, "rate limit exceeded for gate", RateLimitError("gate").Message)

	cause := errors.New("boom")
	internal := InternalError("failed", cause)
	assert.Equal(t, ErrTypeInternal, internal.Type)
	assert.Same(t, cause, internal.Unwrap())
}

func TestProviderError(t *testing.T) {
	err := ProviderError("mailchimp", "Resource Not Found", nil)

	assert.Equal(t, ErrTypeProvider, err.Type)
	assert.Equal(t, "mailchimp", err.Context["provider"])
	assert.Equal(t, "Resource Not Found", Message(err, "fallback"))
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("check: %w", ValidationError("email is required"))

	assert.True(t, IsType(ConfigError("x"), ErrTypeConfig))
	assert.False(t, IsType(ConfigError("x"), ErrTypeAuth))
	assert.True(t, IsType(wrapped, ErrTypeValidation))
	assert.False(t, IsType(errors.New("plain"), ErrTypeValidation))
	assert.False(t, IsType(nil, ErrTypeValidation))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeConfig, GetType(ConfigError("x")))
	assert.Equal(t, ErrTypeProvider, GetType(fmt.Errorf("wrap: %w", ProviderError("p", "m", nil))))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
	assert.Equal(t, ErrorType(""), GetType(nil))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("raw"), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
	assert.Equal(t, "email is required", Message(ValidationError("email is required"), "fallback"))
}

func TestErrorChaining(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := InternalError("wrapped error", originalErr)

	assert.True(t, errors.Is(wrappedErr, originalErr))

	var appErr *AppError
	require.True(t, errors.As(wrappedErr, &appErr))
	assert.Equal(t, ErrTypeInternal, appErr.Type)
}
