package aggregates

import (
	"errors"
	"strings"
)

// ErrorCode is the caller-visible failure class of a record operation.
// Every backend reports failures with these codes only.
type ErrorCode string

const (
	CodeInvalid            ErrorCode = "invalid"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeStorageUnavailable ErrorCode = "storage_unavailable"
	CodeInternal           ErrorCode = "internal"
)

// Error carries a code, the operation that failed ("record.update"), a
// message safe to show callers and the underlying cause.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

// Error renders "op [code]: message", dropping empty parts.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("]")
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap keeps err's text as the message.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// CodeOf returns "" for errors that are not *Error.
func CodeOf(err error) ErrorCode {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf prefers the caller-facing message and falls back to err's text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

func asError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}
