// Package errors provides the error taxonomy shared by every layer of the
// persistence engine. It distinguishes three classes of failure:
//
//   - validation errors, raised before any mutating query runs and always
//     safe to retry after correcting the input;
//   - not-found errors, which are not errors at all for plain lookups
//     (lookups return nil) but are errors for edits and deletes that
//     target a specific identifier;
//   - store errors, which carry the triple store's own diagnostics
//     verbatim and are never retried by the engine.
package errors

import (
	"errors"
	"fmt"
)

// Class represents the classification of an error for handling purposes.
type Class int

const (
	// ClassValidation marks errors raised by input validation before any
	// side effect. Retry after correcting the input is always safe.
	ClassValidation Class = iota
	// ClassNotFound marks errors for mutations targeting an identifier
	// that does not exist.
	ClassNotFound
	// ClassStore marks failures reported by the triple store itself.
	ClassStore
)

// String returns the string representation of the Class.
func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassStore:
		return "store"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions.
var (
	ErrMissingAttribute  = errors.New("required attribute missing")
	ErrUnknownType       = errors.New("entity type not registered")
	ErrDuplicateType     = errors.New("entity type already registered")
	ErrDuplicateAttr     = errors.New("attribute already registered")
	ErrRegistryFrozen    = errors.New("registry frozen after bootstrap")
	ErrReferenceNotFound = errors.New("referenced entity does not exist")
	ErrEntityNotFound    = errors.New("entity does not exist")
	ErrEmptyInput        = errors.New("input contains no values")
)

// ClassifiedError wraps an error with its classification and the
// component/operation that raised it.
type ClassifiedError struct {
	Class     Class
	Err       error
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// StoreError carries the triple store's diagnostics. The store driver
// normalizes both failure shapes it can observe (a transport-level error
// and a reply body with status text, message and code) into this one type,
// so orchestration code treats them as equivalent failure signals.
type StoreError struct {
	StatusText string
	Code       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (se *StoreError) Error() string {
	switch {
	case se.Message != "" && se.Code != "":
		return fmt.Sprintf("store error %s: %s", se.Code, se.Message)
	case se.Message != "":
		return "store error: " + se.Message
	case se.Err != nil:
		return "store error: " + se.Err.Error()
	default:
		return "store error: " + se.StatusText
	}
}

// Unwrap returns the underlying transport error, if any.
func (se *StoreError) Unwrap() error {
	return se.Err
}

// Wrap creates a standardized error with context following the pattern
// "component.operation: action failed: %w".
func Wrap(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, operation, action, err)
}

// newClassified wraps err with context and a classification.
func newClassified(class Class, err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Err:       Wrap(err, component, operation, action),
		Component: component,
		Operation: operation,
	}
}

// WrapValidation wraps an error as a validation failure with context.
func WrapValidation(err error, component, operation, action string) error {
	return newClassified(ClassValidation, err, component, operation, action)
}

// WrapNotFound wraps an error as a not-found failure with context.
func WrapNotFound(err error, component, operation, action string) error {
	return newClassified(ClassNotFound, err, component, operation, action)
}

// WrapStore wraps an error as a store failure with context.
func WrapStore(err error, component, operation, action string) error {
	return newClassified(ClassStore, err, component, operation, action)
}

// Validationf creates a classified validation error from a format string.
func Validationf(component, operation, format string, args ...any) error {
	return &ClassifiedError{
		Class:     ClassValidation,
		Err:       fmt.Errorf("%s.%s: %s", component, operation, fmt.Sprintf(format, args...)),
		Component: component,
		Operation: operation,
	}
}

// IsValidation checks whether an error is a validation failure.
func IsValidation(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ClassValidation
	}
	return errors.Is(err, ErrMissingAttribute) ||
		errors.Is(err, ErrReferenceNotFound) ||
		errors.Is(err, ErrEmptyInput)
}

// IsNotFound checks whether an error is a not-found failure.
func IsNotFound(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ClassNotFound
	}
	return errors.Is(err, ErrEntityNotFound)
}

// IsStore checks whether an error originated in the triple store.
func IsStore(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return true
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ClassStore
	}
	return false
}

// Classify returns the error class for an error. Unknown errors classify
// as store failures so callers never mistake them for correctable input.
func Classify(err error) Class {
	switch {
	case IsValidation(err):
		return ClassValidation
	case IsNotFound(err):
		return ClassNotFound
	default:
		return ClassStore
	}
}

// As is a convenience re-export so callers need only one errors import.
func As(err error, target any) bool { return errors.As(err, target) }

// Is is a convenience re-export so callers need only one errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// New is a convenience re-export so callers need only one errors import.
func New(text string) error { return errors.New(text) }
