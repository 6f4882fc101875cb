// Package corpus provides public types for parallel-corpus sample filtering.
// This package is intended to be importable by external projects that need
// to interact with the Tidycorpus runtime.
package corpus

import "sort"

// FilterKind describes which part of a record a filter operates on.
type FilterKind string

const (
	// KindBilingual filters operate on a full multi-language record at once.
	KindBilingual FilterKind = "bilingual"

	// KindMonolingual filters operate on a single language's field within
	// a record; the field is selected by the step's Language attribute.
	KindMonolingual FilterKind = "monolingual"
)

// Column describes a single per-language column file of a dataset.
type Column struct {
	// Path is the location of the gzip-compressed column file
	Path string `json:"path"`

	// Size is the column file size in bytes
	Size int64 `json:"size"`
}

// Dataset is a named parallel corpus: one line-aligned column per language.
// Line i of every column refers to the same parallel sentence. Alignment is
// trusted, not verified.
type Dataset struct {
	// Name is the dataset identifier
	Name string `json:"name"`

	// Columns maps a language code to its column file
	Columns map[string]Column `json:"columns"`
}

// Languages returns the dataset's language codes in sorted order.
// The sorted order fixes the field order of sample records.
func (d Dataset) Languages() []string {
	langs := make([]string, 0, len(d.Columns))
	for lang := range d.Columns {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// FilterDefinition describes a single registered filter.
// Definitions are immutable once loaded into the registry and are
// referenced by name, never copied.
//
// Exactly one of Command, Expression, or Script is set:
//   - Command runs an external process over the record stream
//   - Expression keeps records for which the expr program returns true
//   - Script transforms records with a JavaScript transform function
type FilterDefinition struct {
	// Name is the unique filter identifier
	Name string `json:"name"`

	// Kind is bilingual or monolingual
	Kind FilterKind `json:"kind"`

	// Description provides optional human-readable context
	Description string `json:"description,omitempty"`

	// Command is the argument vector template for an external filter.
	// Parameters are passed through the process environment, never by
	// shell interpolation.
	Command []string `json:"command,omitempty"`

	// Expression is an expr-lang boolean program for a builtin filter
	Expression string `json:"expression,omitempty"`

	// Script is JavaScript source defining transform() for a builtin filter
	Script string `json:"script,omitempty"`

	// Parameters lists the names a step must supply, exactly
	Parameters []string `json:"parameters"`
}

// FilterStep is one element of an ordered filter chain.
type FilterStep struct {
	// Filter references a FilterDefinition by name
	Filter string `json:"filter"`

	// Parameters maps parameter names to values. The key set must equal
	// the referenced definition's Parameters exactly.
	Parameters map[string]string `json:"parameters"`

	// Language selects the column for a monolingual filter. It must be
	// present iff the definition's kind is monolingual.
	Language string `json:"language,omitempty"`
}

// SampleRecord is one row of a sample: one line per language, keyed by
// language code.
type SampleRecord map[string]string
