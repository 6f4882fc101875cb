// Package config provides parsing and validation of the runtime
// configuration file (JSON/YAML).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Error type categories for parse errors.
const (
	ErrorTypeSyntax = "syntax"
	ErrorTypeIO     = "io"
	ErrorTypeFormat = "format"
)

// Config is the runtime configuration. Every field has a default so an
// empty configuration file is valid.
type Config struct {
	// DataRoot is the directory scanned for dataset column files.
	DataRoot string `json:"dataRoot"`

	// CacheDir is where sample and chain artifacts are stored.
	// Defaults to DataRoot.
	CacheDir string `json:"cacheDir,omitempty"`

	// ListenAddress is the HTTP API bind address.
	ListenAddress string `json:"listenAddress,omitempty"`

	// SampleSize is the n of the head/middle/tail sample.
	SampleSize int `json:"sampleSize,omitempty"`

	// Decompressor is the argv used for pipeline stage A; the input
	// artifact arrives on its stdin.
	Decompressor []string `json:"decompressor,omitempty"`

	// Compressor is the argv used for pipeline stage C.
	Compressor []string `json:"compressor,omitempty"`

	// ColumnWrapper is the argv prefix of the column-selecting wrapper
	// used for monolingual filters; the column index and the filter
	// command are appended.
	ColumnWrapper []string `json:"columnWrapper,omitempty"`

	// FiltersDir is an optional directory of *.json filter definition
	// files merged into the registry at startup.
	FiltersDir string `json:"filtersDir,omitempty"`

	// CacheEnabled governs whether chain steps consult and populate the
	// cache. Defaults to true.
	CacheEnabled *bool `json:"cacheEnabled,omitempty"`

	// StepTimeoutMs is the wall-clock deadline per filter step in
	// milliseconds. Zero means no deadline.
	StepTimeoutMs int `json:"stepTimeoutMs,omitempty"`

	// Seed pins the randomizer seed for reproducible middle samples.
	// Nil means time-seeded.
	Seed *int64 `json:"seed,omitempty"`
}

// Default configuration values.
const (
	DefaultDataRoot      = "data/train-parts"
	DefaultListenAddress = "127.0.0.1:8000"
	DefaultSampleSize    = 10
)

// IsCacheEnabled resolves the CacheEnabled tri-state.
func (c *Config) IsCacheEnabled() bool {
	return c.CacheEnabled == nil || *c.CacheEnabled
}

// StepTimeout returns the per-step deadline as a duration, zero if unset.
func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutMs) * time.Millisecond
}

// ParseResult contains the result of parsing a configuration file.
type ParseResult struct {
	// Data contains the parsed configuration as a map
	Data map[string]interface{}
	// Errors contains any parsing errors encountered
	Errors []ParseError
	// FilePath is the path to the parsed file (empty if parsed from string)
	FilePath string
	// Format indicates the detected format (json, yaml)
	Format string
}

// IsValid returns true if no parsing errors occurred.
func (r *ParseResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ParseError represents a parsing error with location information.
type ParseError struct {
	// Path is the file path where the error occurred
	Path string
	// Line is the line number (1-based, 0 if unknown)
	Line int
	// Column is the column number (1-based, 0 if unknown)
	Column int
	// Offset is the byte offset in the file (0 if unknown)
	Offset int64
	// Message is the error message
	Message string
	// Type categorizes the error (syntax, io, format)
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d", e.Line))
		if e.Column > 0 {
			sb.WriteString(fmt.Sprintf(", column %d", e.Column))
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationResult contains the result of validating a configuration.
type ValidationResult struct {
	// Valid indicates whether the configuration is valid
	Valid bool
	// Errors contains validation errors
	Errors []ValidationError
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	// Path is the JSON path where the error occurred (e.g., "/decompressor/0")
	Path string
	// Type is the error type (required, type, format, enum, etc.)
	Type string
	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result combines parse and validation outcomes for a configuration file.
type Result struct {
	// Data contains the parsed configuration as a map
	Data map[string]interface{}
	// Config is the decoded configuration with defaults applied,
	// nil if parsing or validation failed
	Config *Config
	// ParseErrors contains parsing errors
	ParseErrors []ParseError
	// ValidationErrors contains schema validation errors
	ValidationErrors []ValidationError
	// FilePath is the path of the parsed file
	FilePath string
	// Format is the detected format (json, yaml)
	Format string
}

// IsValid returns true if the configuration parsed and validated cleanly.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}
