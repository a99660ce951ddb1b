package usecase

import "errors"

// DomainError is a problem with the caller's input. Handlers map it to 400.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// TechnicalError wraps an infrastructure failure. Handlers map it to 500.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var techErr *TechnicalError
	return errors.As(err, &techErr)
}

const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeTooManyRows       = "TOO_MANY_ROWS"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeDatabaseError     = "DATABASE_ERROR"
)

func storageError(err error) error {
	return &TechnicalError{Code: CodeDatabaseError, Message: "storage operation failed", Err: err}
}
