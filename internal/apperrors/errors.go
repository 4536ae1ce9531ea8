package apperrors

import (
	"errors"
	"strings"
)

// Kind classifies a workflow failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindUnknown    Kind = "unknown"
)

type Error struct {
	Kind Kind
	// SafeMessage is shown to the user as-is.
	SafeMessage string
	// Cause keeps the original error for logs and errors.Is matching.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindValidation:
		return "The selected file cannot be analyzed."
	case KindTransport:
		return "An error occurred during detection. Please try again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Validation(msg string) error {
	return New(KindValidation, msg, nil)
}

func Transport(err error) error {
	return New(KindTransport, "", err)
}

func Unknown(err error) error {
	return New(KindUnknown, "", err)
}

// KindOf reports the kind of err. Errors outside the taxonomy report
// KindUnknown with ok=false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return KindUnknown, false
	}
	return e.Kind, true
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}
