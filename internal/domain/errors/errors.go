package errors

import "errors"

// Sentinel errors shared across layers. Callers match them with errors.Is;
// sites that raise them wrap with context via fmt.Errorf("%w: ...").
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrOptimisticConflict     = errors.New("optimistic conflict")
	ErrPersistence            = errors.New("persistence failure")
)
