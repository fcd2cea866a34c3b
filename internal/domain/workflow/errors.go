package workflow

import (
	"errors"
	"fmt"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
)

var (
	// ErrNotFound is returned when the item vanished or was already processed
	ErrNotFound = errors.New("item not found")

	// ErrPermissionDenied is returned when the reviewer may not act on the item
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidationFailed is returned when action parameters are invalid
	ErrValidationFailed = errors.New("validation failed")

	// ErrTransient is returned for network or remote failures worth retrying
	ErrTransient = errors.New("transient failure")
)

// ErrorKind classifies an action failure
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindValidationFailed ErrorKind = "validation_failed"
	KindTransient        ErrorKind = "transient"
)

// String returns the string representation of the kind
func (k ErrorKind) String() string {
	return string(k)
}

// Retryable reports whether retrying the same id may succeed
func (k ErrorKind) Retryable() bool {
	return k == KindTransient
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindValidationFailed:
		return ErrValidationFailed
	default:
		return ErrTransient
	}
}

// ActionError is the typed failure of one action on one item
type ActionError struct {
	Kind     ErrorKind
	ItemType entity.ItemType
	ItemID   string
	Err      error
}

// Error implements error
func (e *ActionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.ItemType, e.ItemID, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.ItemType, e.ItemID, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *ActionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind
func (e *ActionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewActionError builds an ActionError
func NewActionError(kind ErrorKind, itemType entity.ItemType, itemID string, err error) *ActionError {
	return &ActionError{Kind: kind, ItemType: itemType, ItemID: itemID, Err: err}
}

// KindOf maps an arbitrary error onto the taxonomy. Anything unrecognised is
// treated as transient so the caller may retry the id.
func KindOf(err error) ErrorKind {
	var ae *ActionError
	switch {
	case errors.As(err, &ae):
		return ae.Kind
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrValidationFailed):
		return KindValidationFailed
	default:
		return KindTransient
	}
}

// Classify wraps err as an ActionError for the given item, preserving an
// existing classification
func Classify(err error, itemType entity.ItemType, itemID string) *ActionError {
	if err == nil {
		return nil
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		if ae.ItemID == "" {
			return NewActionError(ae.Kind, itemType, itemID, ae.Err)
		}
		return ae
	}
	return NewActionError(KindOf(err), itemType, itemID, err)
}
