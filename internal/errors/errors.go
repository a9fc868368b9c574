package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrStoreUnavailable = &AppError{Code: "STORE_001", Message: "local store unavailable"}
	ErrNotFound         = &AppError{Code: "STORE_002", Message: "resource not found"}

	ErrMalformedTime = &AppError{Code: "SCHED_001", Message: "malformed schedule time"}
	ErrEngineRunning = &AppError{Code: "SCHED_002", Message: "engine already running"}

	ErrSessionBusy  = &AppError{Code: "CALL_001", Message: "a call session is already active"}
	ErrNoSession    = &AppError{Code: "CALL_002", Message: "no active call session"}
	ErrSessionEnded = &AppError{Code: "CALL_003", Message: "call session already ended"}

	ErrNarrationUnavailable = &AppError{Code: "SPEECH_001", Message: "speech synthesis unavailable"}

	ErrInvalidReading = &AppError{Code: "VITAL_001", Message: "reading is not a valid number"}

	ErrBadRequest = &AppError{Code: "GEN_001", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_002", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
