package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping. The set mirrors the failure
// taxonomy of the chat core: auth, lookup, validation, provider and storage
// failures are surfaced distinctly so operators can tell a model problem from
// a storage problem.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindNotFound
	KindInvalidArgument
	KindConflict
	KindProviderUnavailable
	KindStreamFailure
	KindCommitFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindConflict:
		return "CONFLICT"
	case KindProviderUnavailable:
		return "PROVIDER_UNAVAILABLE"
	case KindStreamFailure:
		return "STREAM_FAILURE"
	case KindCommitFailure:
		return "COMMIT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

type AppError struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on Kind, so callers can compare against the
// exported sentinel values below without caring about message or cause.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthorized        = &AppError{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrNotFound            = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrInvalidArgument     = &AppError{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrConflict            = &AppError{Kind: KindConflict, Message: "conflict"}
	ErrProviderUnavailable = &AppError{Kind: KindProviderUnavailable, Message: "provider unavailable"}
	ErrStreamFailure       = &AppError{Kind: KindStreamFailure, Message: "stream failure"}
	ErrCommitFailure       = &AppError{Kind: KindCommitFailure, Message: "commit failure"}
)

func Unauthorized(msg string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: msg}
}

// NotFound is used for both genuinely missing sessions and ownership
// mismatches. The two must be indistinguishable to the caller.
func NotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func InvalidArgument(msg string) *AppError {
	return &AppError{Kind: KindInvalidArgument, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

func ProviderUnavailable(msg string, cause error) *AppError {
	return &AppError{Kind: KindProviderUnavailable, Message: msg, Err: cause}
}

func StreamFailure(cause error) *AppError {
	return &AppError{Kind: KindStreamFailure, Message: "provider stream failed", Err: cause}
}

func CommitFailure(cause error) *AppError {
	return &AppError{Kind: KindCommitFailure, Message: "failed to persist turn", Err: cause}
}

// KindOf extracts the Kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
