// Package etlerr classifies pipeline failures.
package etlerr

import (
	"errors"
	"fmt"
)

// Kind is the failure category of a pipeline error.
type Kind uint8

const (
	// Unknown is any error not created through this package.
	Unknown Kind = iota
	// SourceUnavailable: an input file is missing, unreadable or undownloadable.
	SourceUnavailable
	// UnparseableValue: free text could not be parsed. Recovered as missing.
	UnparseableValue
	// TypeCoercionFailure: a catalog value could not be cast to its target type.
	TypeCoercionFailure
	// MergeInconsistency: the reconciliation join produced suspicious output.
	MergeInconsistency
	// StoreWriteFailure: the store rejected a write or became unreachable.
	StoreWriteFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case SourceUnavailable:
		return "SourceUnavailable"
	case UnparseableValue:
		return "UnparseableValue"
	case TypeCoercionFailure:
		return "TypeCoercionFailure"
	case MergeInconsistency:
		return "MergeInconsistency"
	case StoreWriteFailure:
		return "StoreWriteFailure"
	default:
		return "Unknown"
	}
}

// MarshalText renders the kind by name in JSON summaries.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error tags an underlying error with a kind and the stage that failed.
type Error struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a stage and kind. A nil err returns nil.
func New(kind Kind, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// KindOf returns the kind of the outermost Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// StageOf returns the stage of the outermost Error in err's chain.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
