package engine

import (
	"errors"
	"fmt"
)

// ViolationCode categorizes broken caller contracts.
type ViolationCode string

const (
	// ViolationInvalidScope indicates a ScopeID that was freed or never created.
	ViolationInvalidScope ViolationCode = "INVALID_SCOPE"

	// ViolationStaleNode indicates a Node used outside the render that built it.
	ViolationStaleNode ViolationCode = "STALE_NODE"

	// ViolationHookOrder indicates hooks were called in a different order than
	// on a previous render.
	ViolationHookOrder ViolationCode = "HOOK_ORDER"

	// ViolationKeyMixing indicates keyed and unkeyed siblings in one list.
	ViolationKeyMixing ViolationCode = "KEY_MIXING"

	// ViolationDuplicateKey indicates two siblings sharing a key.
	ViolationDuplicateKey ViolationCode = "DUPLICATE_KEY"

	// ViolationSlotCount indicates a render supplied the wrong number of
	// dynamic values for a template.
	ViolationSlotCount ViolationCode = "SLOT_COUNT"

	// ViolationDuplicateTemplate indicates two different shapes registered
	// under one template ID.
	ViolationDuplicateTemplate ViolationCode = "DUPLICATE_TEMPLATE"

	// ViolationNotRendering indicates a render-only API used outside render.
	ViolationNotRendering ViolationCode = "NOT_RENDERING"
)

// ContractViolation is the panic value for broken invariants. Recovering
// from one is not supported: the scope arena is already inconsistent.
type ContractViolation struct {
	Code    ViolationCode
	Message string
	Scope   ScopeID
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("%s: %s (scope=%d)", e.Code, e.Message, e.Scope)
}

func violate(code ViolationCode, scope ScopeID, format string, args ...any) {
	panic(&ContractViolation{Code: code, Message: fmt.Sprintf(format, args...), Scope: scope})
}

// IsContractViolation reports whether err is a ContractViolation with code.
// An empty code matches any violation.
func IsContractViolation(err error, code ViolationCode) bool {
	var cv *ContractViolation
	if errors.As(err, &cv) {
		return code == "" || cv.Code == code
	}
	return false
}

// RuntimeError is returned by host-facing operations that can fail without
// corrupting the tree.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTemplateNotFound indicates hot reload of an unknown template.
	ErrCodeTemplateNotFound RuntimeErrorCode = "TEMPLATE_NOT_FOUND"

	// ErrCodeSlotMismatch indicates a replacement template with different
	// slot counts.
	ErrCodeSlotMismatch RuntimeErrorCode = "TEMPLATE_SLOT_MISMATCH"

	// ErrCodeClosed indicates use of a VirtualDom after Close.
	ErrCodeClosed RuntimeErrorCode = "DOM_CLOSED"
)

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsClosedError reports whether err came from a closed VirtualDom.
func IsClosedError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeClosed
	}
	return false
}

// IsSlotMismatchError reports whether err rejected a hot-reload template.
func IsSlotMismatchError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeSlotMismatch
	}
	return false
}

// SuspendedError is returned from Render when async data is not ready. The
// scope renders a placeholder until a task marks it dirty again.
type SuspendedError struct {
	Scope  ScopeID
	Reason string
}

func (e *SuspendedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("scope %d suspended: %s", e.Scope, e.Reason)
	}
	return fmt.Sprintf("scope %d suspended", e.Scope)
}

// IsSuspended reports whether err is a SuspendedError.
func IsSuspended(err error) bool {
	var se *SuspendedError
	return errors.As(err, &se)
}
