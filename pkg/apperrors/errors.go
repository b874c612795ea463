// Package apperrors defines the typed error taxonomy used at the engine's
// boundaries. These are Go errors, distinct from CellValue.Error, which is
// in-band spreadsheet data never surfaced as a Go error.
package apperrors

import "fmt"

// ErrorCode identifies a category of application error.
type ErrorCode string

const (
	ErrCodeUnknown      ErrorCode = "UNKNOWN"
	ErrCodeInternal     ErrorCode = "INTERNAL"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"

	// Programmer errors (§7): abort the transaction, roll back its effects.
	ErrCodeDuplicateSheetName  ErrorCode = "DUPLICATE_SHEET_NAME"
	ErrCodeMalformedArray      ErrorCode = "MALFORMED_ARRAY"
	ErrCodeRLELengthMismatch   ErrorCode = "RLE_LENGTH_MISMATCH"
	ErrCodeOutOfOrderAck       ErrorCode = "OUT_OF_ORDER_ACK"
	ErrCodeReentrantController ErrorCode = "REENTRANT_CONTROLLER"

	// Transport errors (§7): rejected at the boundary, never reach the executor.
	ErrCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrCodeUnknownVariant  ErrorCode = "UNKNOWN_VARIANT"
	ErrCodeStaleAsyncReply ErrorCode = "STALE_ASYNC_REPLY"

	// Import/export boundary errors.
	ErrCodeImportFailed ErrorCode = "IMPORT_FAILED"
	ErrCodeExportFailed ErrorCode = "EXPORT_FAILED"
)

// AppError is a structured application error carrying an ErrorCode and an
// optional wrapped cause, distinguished from in-band cell errors.
type AppError struct {
	Code      ErrorCode
	Message   string
	Cause     error
	Component string
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

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Component: "core"}
}

func NewWithComponent(code ErrorCode, component, message string) *AppError {
	return &AppError{Code: code, Message: message, Component: component}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{Code: code, Message: message, Cause: appErr, Component: appErr.Component}
	}
	return &AppError{Code: code, Message: message, Cause: err, Component: "core"}
}

// Domain-specific constructors, one per programmer/transport error named in §7.

func DuplicateSheetName(name string) *AppError {
	return NewWithComponent(ErrCodeDuplicateSheetName, "grid", fmt.Sprintf("sheet name %q already exists", name))
}

func MalformedArray(msg string) *AppError {
	return NewWithComponent(ErrCodeMalformedArray, "executor", msg)
}

func RLELengthMismatch(msg string) *AppError {
	return NewWithComponent(ErrCodeRLELengthMismatch, "executor", msg)
}

func OutOfOrderAck(expected, got uint64) *AppError {
	return NewWithComponent(ErrCodeOutOfOrderAck, "multiplayer",
		fmt.Sprintf("out-of-order unsaved acknowledgement: expected sequence %d, got %d", expected, got))
}

func ReentrantController() *AppError {
	return NewWithComponent(ErrCodeReentrantController, "txn", "transaction already in progress on this controller")
}

func InvalidJSON(cause error) *AppError {
	return Wrap(cause, ErrCodeInvalidJSON, "invalid operation JSON")
}

func UnknownVariant(variant string) *AppError {
	return NewWithComponent(ErrCodeUnknownVariant, "operation", fmt.Sprintf("unknown operation variant %q", variant))
}

func StaleAsyncReply(transactionID string) *AppError {
	return NewWithComponent(ErrCodeStaleAsyncReply, "txn", fmt.Sprintf("no pending async transaction %q", transactionID))
}

func ImportFailed(cause error) *AppError {
	return Wrap(cause, ErrCodeImportFailed, "import failed")
}

func ExportFailed(cause error) *AppError {
	return Wrap(cause, ErrCodeExportFailed, "export failed")
}

func NotFound(msg string) *AppError {
	return New(ErrCodeNotFound, msg)
}

func InvalidInput(msg string) *AppError {
	return New(ErrCodeInvalidInput, msg)
}

func Internal(msg string) *AppError {
	return New(ErrCodeInternal, msg)
}

// IsAppError reports whether err is an *AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// Code returns the ErrorCode of err, or ErrCodeUnknown if it is not an *AppError.
func Code(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrCodeUnknown
}
