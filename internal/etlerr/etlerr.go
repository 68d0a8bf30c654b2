// Package etlerr defines the typed failures a pipeline run can end with. Every
// error carries the stage it was raised in; the CLI reports that stage and
// exits non-zero. No stage recovers from these errors.
package etlerr

import (
	"errors"
	"fmt"
)

// Stage names.
const (
	StageLoad    = "load"
	StageClean   = "clean"
	StageJoin    = "join"
	StageAnalyze = "analyze"
	StageReport  = "report"
)

// DataAccessError reports an input file that is missing, unreadable or not
// parseable as delimited text.
type DataAccessError struct {
	Stage  string
	Entity string
	Path   string
	Err    error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: data access %s (%s): %v", e.Stage, e.Entity, e.Path, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) stage() string { return e.Stage }

// SchemaError reports a column that is required but absent, or a rename that
// would produce a duplicate column.
type SchemaError struct {
	Stage   string
	Entity  string
	Column  string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: schema %s.%s: %s", e.Stage, e.Entity, e.Column, e.Message)
}

func (e *SchemaError) stage() string { return e.Stage }

// TypeCoercionError reports a fill value that cannot be stored in its column.
type TypeCoercionError struct {
	Stage  string
	Entity string
	Column string
	Kind   string
	Value  any
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("%s: cannot coerce %v (%T) into %s.%s of type %s",
		e.Stage, e.Value, e.Value, e.Entity, e.Column, e.Kind)
}

func (e *TypeCoercionError) stage() string { return e.Stage }

// StageError tags an untyped failure (cancellation, engine or driver errors)
// with the stage it surfaced in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) stage() string { return e.Stage }

type staged interface{ stage() string }

// InStage attaches stage to err unless err already carries one.
func InStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var s staged
	if errors.As(err, &s) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage recorded on err, or "" when none is.
func StageOf(err error) string {
	var s staged
	if errors.As(err, &s) {
		return s.stage()
	}
	return ""
}

// Missing is shorthand for the common "column not found" SchemaError.
func Missing(stage, entity, column string) *SchemaError {
	return &SchemaError{Stage: stage, Entity: entity, Column: column, Message: "column not found"}
}
