package rowmap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Standard sentinel errors for mapping failures.
var (
	// ErrNoMatchingColumns is returned when none of a type's properties
	// matched any column of a non-empty result.
	ErrNoMatchingColumns = errors.New("rowmap: no matching columns")

	// ErrLeftoverColumns is returned in strict matching mode when columns
	// under the mapper's prefix were not claimed by any property.
	ErrLeftoverColumns = errors.New("rowmap: leftover columns")

	// ErrNoSuchMapper is returned when no mapper is registered for a type.
	ErrNoSuchMapper = errors.New("rowmap: no such mapper")

	// ErrAmbiguousColumn is returned when a property matches more than one column.
	ErrAmbiguousColumn = errors.New("rowmap: ambiguous column")

	// ErrNoProperties is returned when a type has no property table.
	ErrNoProperties = errors.New("rowmap: no properties")

	// ErrNestedCycle is returned when nested properties recurse past the depth limit.
	ErrNestedCycle = errors.New("rowmap: nested cycle")

	// ErrMissingColumn is returned when a required column is absent from the result.
	ErrMissingColumn = errors.New("rowmap: missing column")

	// ErrUnassignable is returned when a mapped value cannot be stored in its slot.
	ErrUnassignable = errors.New("rowmap: unassignable value")
)

// NoMatchingColumnsError reports that a type matched nothing in a non-empty column set.
type NoMatchingColumnsError struct {
	Type reflect.Type
}

// Error returns the error string.
func (e *NoMatchingColumnsError) Error() string {
	return fmt.Sprintf("rowmap: mapping %s didn't find any matching columns in result", e.Type)
}

// Is reports whether the target error matches NoMatchingColumnsError.
func (e *NoMatchingColumnsError) Is(err error) bool {
	return err == ErrNoMatchingColumns
}

// IsNoMatchingColumns returns true if the error is a NoMatchingColumnsError.
func IsNoMatchingColumns(err error) bool {
	return err != nil && errors.Is(err, ErrNoMatchingColumns)
}

// LeftoverColumnsError reports unclaimed columns in strict matching mode.
type LeftoverColumnsError struct {
	Type    reflect.Type
	Columns []string
}

// Error returns the error string.
func (e *LeftoverColumnsError) Error() string {
	return fmt.Sprintf("rowmap: mapping %s could not match properties for columns: [%s]",
		e.Type, strings.Join(e.Columns, ", "))
}

// Is reports whether the target error matches LeftoverColumnsError.
func (e *LeftoverColumnsError) Is(err error) bool {
	return err == ErrLeftoverColumns
}

// IsLeftoverColumns returns true if the error is a LeftoverColumnsError.
func IsLeftoverColumns(err error) bool {
	return err != nil && errors.Is(err, ErrLeftoverColumns)
}

// NoSuchMapperError reports a type with no registered mapper.
// Property and Owner are set when the lookup happened on behalf of a property.
type NoSuchMapperError struct {
	Type     reflect.Type
	Property string
	Owner    reflect.Type
}

// Error returns the error string.
func (e *NoSuchMapperError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("rowmap: couldn't find mapper for property %q of type %s from %s",
			e.Property, e.Type, e.Owner)
	}
	return fmt.Sprintf("rowmap: no mapper registered for %s", e.Type)
}

// Is reports whether the target error matches NoSuchMapperError.
func (e *NoSuchMapperError) Is(err error) bool {
	return err == ErrNoSuchMapper
}

// IsNoSuchMapper returns true if the error is a NoSuchMapperError.
func IsNoSuchMapper(err error) bool {
	return err != nil && errors.Is(err, ErrNoSuchMapper)
}

// AmbiguousColumnError reports a property whose expected name matched several columns.
type AmbiguousColumnError struct {
	Property string
	Expected string
	Columns  []string
}

// Error returns the error string.
func (e *AmbiguousColumnError) Error() string {
	return fmt.Sprintf("rowmap: %s (%s) matches multiple columns: %s",
		e.Property, e.Expected, strings.Join(e.Columns, ", "))
}

// Is reports whether the target error matches AmbiguousColumnError.
func (e *AmbiguousColumnError) Is(err error) bool {
	return err == ErrAmbiguousColumn
}

// NoPropertiesError reports a type the property resolver knows nothing about.
type NoPropertiesError struct {
	Type reflect.Type
}

// Error returns the error string.
func (e *NoPropertiesError) Error() string {
	return fmt.Sprintf("rowmap: couldn't find properties for %s", e.Type)
}

// Is reports whether the target error matches NoPropertiesError.
func (e *NoPropertiesError) Is(err error) bool {
	return err == ErrNoProperties
}

// NestedCycleError reports nested properties recursing past MaxNestingDepth.
type NestedCycleError struct {
	Type  reflect.Type
	Depth int
}

// Error returns the error string.
func (e *NestedCycleError) Error() string {
	return fmt.Sprintf("rowmap: nested properties of %s exceed depth %d", e.Type, e.Depth)
}

// Is reports whether the target error matches NestedCycleError.
func (e *NestedCycleError) Is(err error) bool {
	return err == ErrNestedCycle
}

// MissingColumnError reports a column required by a mapper but absent from the row.
type MissingColumnError struct {
	Type   reflect.Type
	Column string
}

// Error returns the error string.
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("rowmap: column %q required by %s not found in result", e.Column, e.Type)
}

// Is reports whether the target error matches MissingColumnError.
func (e *MissingColumnError) Is(err error) bool {
	return err == ErrMissingColumn
}

// UnassignableError reports a value whose type cannot be stored in a slot.
type UnassignableError struct {
	From reflect.Type
	To   reflect.Type
}

// Error returns the error string.
func (e *UnassignableError) Error() string {
	return fmt.Sprintf("rowmap: cannot assign %s to %s", e.From, e.To)
}

// Is reports whether the target error matches UnassignableError.
func (e *UnassignableError) Is(err error) bool {
	return err == ErrUnassignable
}

// MappingError wraps a failure that happened while applying a mapping to a row.
type MappingError struct {
	Type     reflect.Type // Type being built
	Property string       // Property being set (if applicable)
	Err      error        // Underlying error
}

// Error returns the error string.
func (e *MappingError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("rowmap: mapping %s.%s: %v", e.Type, e.Property, e.Err)
	}
	return fmt.Sprintf("rowmap: mapping %s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// ConversionError reports a raw column value that could not be converted.
type ConversionError struct {
	Column int
	Type   reflect.Type
	Err    error
}

// Error returns the error string.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("rowmap: converting column %d to %s: %v", e.Column, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConversionError) Unwrap() error {
	return e.Err
}
