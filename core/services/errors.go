package services

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindMissingInput ErrorKind = "MissingInput"
	KindValidation   ErrorKind = "ValidationError"
	KindProvider     ErrorKind = "ProviderError"
	KindStorage      ErrorKind = "StorageError"
)

const (
	GenericFailureMessage = "An error occurred during processing"
	MissingInputMessage   = "Missing voice file or text"
)

var (
	ErrMissingInput = errors.New("missing voice file or text")
	ErrTextTooLong  = errors.New("text exceeds the maximum length")
	ErrProvider     = errors.New("voice provider failure")
	ErrStorage      = errors.New("temporary storage failure")
)

var kindSentinels = map[ErrorKind]error{
	KindMissingInput: ErrMissingInput,
	KindValidation:   ErrTextTooLong,
	KindProvider:     ErrProvider,
	KindStorage:      ErrStorage,
}

// SynthesisError carries the failure kind, the step that failed and the
// underlying cause. Message is the only part safe to show a client.
type SynthesisError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *SynthesisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

func (e *SynthesisError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// StatusCode maps the kind onto the HTTP status used for the reply.
func (e *SynthesisError) StatusCode() int {
	switch e.Kind {
	case KindMissingInput, KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func missingInput() *SynthesisError {
	return &SynthesisError{Kind: KindMissingInput, Op: "validate request", Message: MissingInputMessage, Err: ErrMissingInput}
}

func textTooLong(length, max int) *SynthesisError {
	return &SynthesisError{
		Kind:    KindValidation,
		Op:      "validate request",
		Message: fmt.Sprintf("Text must be %d characters or less.", max),
		Err:     fmt.Errorf("%w: %d > %d", ErrTextTooLong, length, max),
	}
}

func providerError(op string, err error) *SynthesisError {
	return &SynthesisError{Kind: KindProvider, Op: op, Message: GenericFailureMessage, Err: err}
}

func storageError(op string, err error) *SynthesisError {
	return &SynthesisError{Kind: KindStorage, Op: op, Message: GenericFailureMessage, Err: err}
}

// KindOf returns the kind of a synthesis failure. Unclassified errors are
// reported as provider errors since their user facing effect is the same.
func KindOf(err error) ErrorKind {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindProvider
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var se *SynthesisError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return GenericFailureMessage
}
