package maestro

import (
	"fmt"
	"strings"
	"time"
)

// Error codes as constants
const (
	ErrCodeConnectionFailed = "CONNECTION_FAILED"
	ErrCodeReconnectFailed  = "RECONNECT_FAILED"
	ErrCodeSendRejected     = "SEND_REJECTED"
	ErrCodeDecode           = "DECODE_ERROR"
	ErrCodeAudioDevice      = "AUDIO_DEVICE_ERROR"
	ErrCodePlayback         = "PLAYBACK_ERROR"
	ErrCodeCapture          = "CAPTURE_ERROR"
	ErrCodeUpload           = "UPLOAD_ERROR"
	ErrCodeWidget           = "WIDGET_ERROR"
	ErrCodeWebSocket        = "WEBSOCKET_ERROR"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeUnknown          = "UNKNOWN_ERROR"
)

// ClientError represents an error with a machine-readable code and
// optional context details.
type ClientError struct {
	Message   string
	Code      string
	Timestamp time.Time
	Details   map[string]interface{}
	err       error
}

func (e *ClientError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if len(e.Details) > 0 {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s (%s):", e.Message, e.Code))
		for k, v := range e.Details {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
		return sb.String()
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *ClientError) Unwrap() error {
	return e.err
}

func NewClientError(message, code string) *ClientError {
	return &ClientError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// AddDetail attaches a key/value pair to the error and returns it for chaining.
func (e *ClientError) AddDetail(key string, value interface{}) *ClientError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *ClientError) GetDetail(key string) (interface{}, bool) {
	if e.Details == nil {
		return nil, false
	}
	value, exists := e.Details[key]
	return value, exists
}

// Specific error creators with common codes
func NewConnectionError(message string) *ClientError {
	return NewClientError(message, ErrCodeConnectionFailed)
}

func NewSendRejectedError(message string) *ClientError {
	return NewClientError(message, ErrCodeSendRejected)
}

func NewDecodeError(message string) *ClientError {
	return NewClientError(message, ErrCodeDecode)
}

func NewAudioError(message string) *ClientError {
	return NewClientError(message, ErrCodeAudioDevice)
}

func NewCaptureError(message string) *ClientError {
	return NewClientError(message, ErrCodeCapture)
}

func NewUploadError(message string) *ClientError {
	return NewClientError(message, ErrCodeUpload)
}

func NewWidgetError(message string) *ClientError {
	return NewClientError(message, ErrCodeWidget)
}

func NewConfigError(message string) *ClientError {
	return NewClientError(message, ErrCodeConfigInvalid)
}

// WrapError wraps any error as a ClientError with the given code.
func WrapError(err error, code string) *ClientError {
	if err == nil {
		return nil
	}
	cErr := NewClientError(err.Error(), code)
	cErr.err = err
	return cErr
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err *ClientError, code string) bool {
	if err == nil {
		return false
	}
	return err.Code == code
}

// IsRetryableError reports whether the error is transient and worth retrying.
func IsRetryableError(err *ClientError) bool {
	if err == nil {
		return false
	}
	retryableCodes := []string{
		ErrCodeConnectionFailed,
		ErrCodeReconnectFailed,
		ErrCodeWebSocket,
		ErrCodeUpload,
	}
	for _, code := range retryableCodes {
		if err.Code == code {
			return true
		}
	}
	return false
}
