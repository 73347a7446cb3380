package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"roomchat/internal/pkg/logx"
)

// CustomError carries a business code, a client-facing message and the HTTP
// status the control plane answers with.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("error %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a CustomError from a registered code. details fill printf
// verbs in the message template; for ErrUnknown the first detail may be the
// underlying error, which is logged. Unregistered codes collapse to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	template, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("unknown error code %d", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		template = errorMap[ErrUnknown]
	}

	customErr := template
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case len(details) == 0:
	case code == ErrUnknown || code == ErrStorageFailed:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Internal error surfaced to client", "code", code)
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Error details ignored: message template has no placeholders", "code", code)
	}

	return &customErr
}

// From returns err as a *CustomError, wrapping anything else as ErrUnknown.
// A nil err yields nil.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	return NewError(ErrUnknown, err)
}

// IsCode reports whether err is a CustomError with the given code.
func IsCode(err error, code int) bool {
	var customErr *CustomError
	return errors.As(err, &customErr) && customErr.Code == code
}
