package maestro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientErrorDetails(t *testing.T) {
	err := NewUploadError("upload failed").AddDetail("status_code", 503)

	v, ok := err.GetDetail("status_code")
	require.True(t, ok)
	assert.Equal(t, 503, v)

	_, ok = err.GetDetail("missing")
	assert.False(t, ok)
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	wrapped := WrapError(cause, ErrCodeConnectionFailed)

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeConnectionFailed, wrapped.Code)
	assert.ErrorIs(t, wrapped, cause)

	assert.Nil(t, WrapError(nil, ErrCodeUnknown))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewConnectionError("x")))
	assert.True(t, IsRetryableError(NewUploadError("x")))
	assert.False(t, IsRetryableError(NewDecodeError("x")))
	assert.False(t, IsRetryableError(NewWidgetError("x")))
	assert.False(t, IsRetryableError(nil))
}

func TestIsErrorCode(t *testing.T) {
	err := NewSendRejectedError("busy")
	assert.True(t, IsErrorCode(err, ErrCodeSendRejected))
	assert.False(t, IsErrorCode(err, ErrCodeDecode))
	assert.False(t, IsErrorCode(nil, ErrCodeDecode))
}
