package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure by how the operator can recover from it.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindPartialReplace Kind = "partial_replace"
	KindAuthorization  Kind = "authorization"
	KindTransient      Kind = "transient"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// Error is the error type returned by the service layer. Entity and Action
// name what was attempted so every failure renders as a readable sentence.
type Error struct {
	Kind   Kind
	Code   string
	Entity string
	Action string
	Detail string
	Scope  string            // replace scope, set for partial replace failures
	Fields map[string]string // field -> problem, set for validation failures
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the operator-facing text; it never includes the wrapped cause.
func (e *Error) Message() string {
	target := strings.TrimSpace(e.Action + " " + e.Entity)
	switch e.Kind {
	case KindValidation:
		if len(e.Fields) == 0 {
			return fmt.Sprintf("cannot %s: %s", target, e.Detail)
		}
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" "+e.Fields[k])
		}
		return fmt.Sprintf("cannot %s: %s", target, strings.Join(parts, "; "))
	case KindConflict:
		return fmt.Sprintf("cannot %s: %s", target, e.Detail)
	case KindPartialReplace:
		return fmt.Sprintf("%s was interrupted after the previous %s were removed; the %s may now be empty, retry the same operation",
			target, e.Detail, e.Detail)
	case KindAuthorization:
		return fmt.Sprintf("not allowed to %s", target)
	case KindTransient:
		return fmt.Sprintf("could not %s: the data service is temporarily unavailable, please retry", target)
	case KindNotFound:
		return fmt.Sprintf("%s not found", strings.TrimSpace(e.Entity+" "+e.Detail))
	default:
		return fmt.Sprintf("failed to %s", target)
	}
}

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindPartialReplace || e.Kind == KindTransient
}

func NewValidation(entity, action string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: ValidationInvalidInput, Entity: entity, Action: action, Fields: fields}
}

func NewInvalid(entity, action, detail string) *Error {
	return &Error{Kind: KindValidation, Code: ValidationInvalidInput, Entity: entity, Action: action, Detail: detail}
}

func NewConflict(code, entity, action, detail string, err error) *Error {
	if code == "" {
		code = ResourceConflict
	}
	return &Error{Kind: KindConflict, Code: code, Entity: entity, Action: action, Detail: detail, Err: err}
}

// NewPartialReplace reports a replace whose delete step succeeded and whose
// insert step failed. what names the removed rows, e.g. "variants".
func NewPartialReplace(entity, scope, what string, err error) *Error {
	return &Error{
		Kind:   KindPartialReplace,
		Code:   CatalogReplacePartial,
		Entity: entity,
		Action: "replace " + what + " of",
		Detail: what,
		Scope:  scope,
		Err:    err,
	}
}

func NewAuthorization(entity, action string) *Error {
	return &Error{Kind: KindAuthorization, Code: AuthzForbidden, Entity: entity, Action: action}
}

func NewNotFound(entity string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: ResourceNotFound, Entity: entity, Detail: fmt.Sprint(id)}
}

// Wrap classifies a collaborator error and attaches entity and action.
// Errors that are already *Error pass through unchanged.
func Wrap(err error, entity, action string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case IsNotFound(err):
		return &Error{Kind: KindNotFound, Code: ResourceNotFound, Entity: entity, Action: action, Err: err}
	case IsDuplicateKey(err):
		return &Error{Kind: KindConflict, Code: ResourceConflict, Entity: entity, Action: action,
			Detail: "a record with the same unique value already exists", Err: err}
	case IsTransient(err):
		return &Error{Kind: KindTransient, Code: InternalUnavailable, Entity: entity, Action: action, Err: err}
	default:
		return &Error{Kind: KindInternal, Code: InternalDatabaseError, Entity: entity, Action: action, Err: err}
	}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
