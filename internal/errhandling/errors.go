// Package errhandling provides the tagged error types used across the
// runtime. Every failure a chain execution can produce is classified into
// one of a fixed set of kinds, each carrying structured context (step
// index, filter name, pipeline stage) so callers never have to parse error
// strings.
package errhandling

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a chain execution failure.
type ErrorKind string

// Error kinds, in rough order of detection.
const (
	// KindUnknownFilter is a step referencing an unregistered filter name.
	// Detected before any process spawns.
	KindUnknownFilter ErrorKind = "unknown_filter"

	// KindInvalidParameters is a step whose parameter key set does not
	// exactly equal the filter definition's required set.
	KindInvalidParameters ErrorKind = "invalid_parameters"

	// KindInvalidLanguage is a step whose language attribute does not match
	// the filter kind: required-but-absent for monolingual, or
	// present-but-forbidden for bilingual.
	KindInvalidLanguage ErrorKind = "invalid_language"

	// KindMissingDataset is a request naming a dataset the discovery
	// mapping does not contain.
	KindMissingDataset ErrorKind = "missing_dataset"

	// KindMissingColumn is a request touching a language column the
	// dataset does not have.
	KindMissingColumn ErrorKind = "missing_column"

	// KindProcessFailure is a pipeline stage exiting non-zero.
	KindProcessFailure ErrorKind = "process_failure"

	// KindTimeout is a pipeline stage exceeding the configured wall-clock
	// deadline.
	KindTimeout ErrorKind = "timeout"

	// KindCacheIO is a failure reading or writing a cache artifact.
	KindCacheIO ErrorKind = "cache_io"
)

// Pipeline stage identifiers used in ProcessFailure errors.
// The check order is filter, decompress, compress: a filter crash is
// diagnostically most specific.
const (
	StageDecompress = "decompress"
	StageFilter     = "filter"
	StageCompress   = "compress"
)

// ChainError is the tagged error type for chain execution failures.
// Fields that do not apply to a kind are left at their zero value;
// StepIndex is -1 when the failure is not tied to a step.
type ChainError struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// StepIndex is the zero-based index of the offending filter step,
	// or -1 when not applicable.
	StepIndex int

	// Filter is the name of the filter involved, if any.
	Filter string

	// Stage identifies the pipeline stage for process failures.
	Stage string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.StepIndex >= 0 {
		fmt.Fprintf(&sb, " at step %d", e.StepIndex)
	}
	if e.Filter != "" {
		fmt.Fprintf(&sb, " (%s)", e.Filter)
	}
	if e.Stage != "" {
		fmt.Fprintf(&sb, " [%s stage]", e.Stage)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause for use with errors.Is and errors.As.
func (e *ChainError) Unwrap() error {
	return e.Err
}

// NewUnknownFilter creates a ChainError for a step naming an unregistered
// filter.
func NewUnknownFilter(stepIndex int, name string) *ChainError {
	return &ChainError{
		Kind:      KindUnknownFilter,
		StepIndex: stepIndex,
		Filter:    name,
		Message:   fmt.Sprintf("filter %q is not registered", name),
	}
}

// NewInvalidParameters creates a ChainError enumerating the missing and
// extra parameter names of a step.
func NewInvalidParameters(stepIndex int, filter string, missing, extra []string) *ChainError {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing parameters: "+strings.Join(missing, " "))
	}
	if len(extra) > 0 {
		parts = append(parts, "parameters not supported by the filter: "+strings.Join(extra, " "))
	}
	return &ChainError{
		Kind:      KindInvalidParameters,
		StepIndex: stepIndex,
		Filter:    filter,
		Message:   strings.Join(parts, "; "),
	}
}

// NewInvalidLanguage creates a ChainError for a language attribute that
// does not match the filter kind.
func NewInvalidLanguage(stepIndex int, filter, message string) *ChainError {
	return &ChainError{
		Kind:      KindInvalidLanguage,
		StepIndex: stepIndex,
		Filter:    filter,
		Message:   message,
	}
}

// NewMissingDataset creates a ChainError for an unknown dataset name.
func NewMissingDataset(name string) *ChainError {
	return &ChainError{
		Kind:      KindMissingDataset,
		StepIndex: -1,
		Message:   fmt.Sprintf("dataset %q not found", name),
	}
}

// NewMissingColumn creates a ChainError for a language column the dataset
// does not have.
func NewMissingColumn(dataset, language string) *ChainError {
	return &ChainError{
		Kind:      KindMissingColumn,
		StepIndex: -1,
		Message:   fmt.Sprintf("dataset %q has no %q column", dataset, language),
	}
}

// NewProcessFailure creates a ChainError for a pipeline stage exiting
// non-zero.
func NewProcessFailure(stepIndex int, filter, stage string, err error) *ChainError {
	return &ChainError{
		Kind:      KindProcessFailure,
		StepIndex: stepIndex,
		Filter:    filter,
		Stage:     stage,
		Err:       err,
	}
}

// NewTimeout creates a ChainError for a step exceeding its deadline.
func NewTimeout(stepIndex int, filter string, err error) *ChainError {
	return &ChainError{
		Kind:      KindTimeout,
		StepIndex: stepIndex,
		Filter:    filter,
		Message:   "step deadline exceeded",
		Err:       err,
	}
}

// NewCacheIO creates a ChainError for a cache artifact read/write failure.
func NewCacheIO(message string, err error) *ChainError {
	return &ChainError{
		Kind:      KindCacheIO,
		StepIndex: -1,
		Message:   message,
		Err:       err,
	}
}

// KindOf returns the ErrorKind of err, or an empty kind if err is not a
// ChainError.
func KindOf(err error) ErrorKind {
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation failure detected before
// any process spawns.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindUnknownFilter, KindInvalidParameters, KindInvalidLanguage:
		return true
	default:
		return false
	}
}

// IsMissingResource reports whether err names an absent dataset or column.
func IsMissingResource(err error) bool {
	switch KindOf(err) {
	case KindMissingDataset, KindMissingColumn:
		return true
	default:
		return false
	}
}
