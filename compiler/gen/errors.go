package gen

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("rowmapgen: code generation failed")
	// ErrNoStructs indicates that there was nothing to generate.
	ErrNoStructs = errors.New("rowmapgen: no struct types to generate")
)

// GenerateError represents a failure to render or write a generated file.
type GenerateError struct {
	Type  string // Struct type name (if applicable)
	File  string // Output file path
	Cause error
}

// Error implements the error interface.
func (e *GenerateError) Error() string {
	var b strings.Builder
	b.WriteString("rowmapgen: generating")
	if e.Type != "" {
		b.WriteString(" type ")
		b.WriteString(e.Type)
	}
	if e.File != "" {
		b.WriteString(" file ")
		b.WriteString(e.File)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerateError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerateError.
func (e *GenerateError) Is(target error) bool {
	return target == ErrGenerationFailed
}
