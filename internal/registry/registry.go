// Package registry provides the immutable filter catalog.
//
// # Overview
//
// A Registry is built once at process start from the builtin declarative
// table plus any JSON definition files, and is read-only thereafter. It is
// passed explicitly to every component that needs filter lookup; there is
// no package-level mutable state.
//
// # Adding a New Filter
//
// Drop a JSON file into the configured definitions directory:
//
//	{
//	  "name": "strip-bom",
//	  "kind": "monolingual",
//	  "command": ["filters/strip_bom.py"],
//	  "parameters": []
//	}
//
// Files are validated against the embedded definition schema before they
// are merged; a file redefining an existing name is an error.
package registry

import (
	"fmt"
	"sort"

	"github.com/tidycorpus/runtime/internal/errhandling"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

// Registry is the immutable catalog of filter definitions.
// The zero value is unusable; construct with New.
type Registry struct {
	definitions map[string]corpus.FilterDefinition
}

// New builds a Registry from the given definitions.
// Duplicate names and malformed definitions are rejected.
func New(defs []corpus.FilterDefinition) (*Registry, error) {
	r := &Registry{
		definitions: make(map[string]corpus.FilterDefinition, len(defs)),
	}
	for _, def := range defs {
		if err := checkDefinition(def); err != nil {
			return nil, err
		}
		if _, exists := r.definitions[def.Name]; exists {
			return nil, fmt.Errorf("duplicate filter definition %q", def.Name)
		}
		r.definitions[def.Name] = def
	}
	return r, nil
}

// checkDefinition rejects structurally invalid definitions.
func checkDefinition(def corpus.FilterDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("filter definition with empty name")
	}
	if def.Kind != corpus.KindBilingual && def.Kind != corpus.KindMonolingual {
		return fmt.Errorf("filter %q: unknown kind %q", def.Name, def.Kind)
	}

	bodies := 0
	if len(def.Command) > 0 {
		bodies++
	}
	if def.Expression != "" {
		bodies++
	}
	if def.Script != "" {
		bodies++
	}
	if bodies != 1 {
		return fmt.Errorf("filter %q: exactly one of command, expression, script must be set", def.Name)
	}

	seen := make(map[string]bool, len(def.Parameters))
	for _, p := range def.Parameters {
		if p == "" {
			return fmt.Errorf("filter %q: empty parameter name", def.Name)
		}
		if seen[p] {
			return fmt.Errorf("filter %q: duplicate parameter %q", def.Name, p)
		}
		seen[p] = true
	}
	return nil
}

// Lookup returns the definition registered under name.
// The step index is only used to tag the error.
func (r *Registry) Lookup(name string) (corpus.FilterDefinition, error) {
	def, ok := r.definitions[name]
	if !ok {
		return corpus.FilterDefinition{}, errhandling.NewUnknownFilter(-1, name)
	}
	return def, nil
}

// Validate checks a filter step against its definition. stepIndex tags any
// resulting error.
//
// A step is valid when:
//   - its filter name is registered,
//   - its parameter key set exactly equals the definition's required set,
//   - its language attribute is present iff the kind is monolingual.
func (r *Registry) Validate(step corpus.FilterStep, stepIndex int) error {
	def, ok := r.definitions[step.Filter]
	if !ok {
		return errhandling.NewUnknownFilter(stepIndex, step.Filter)
	}

	required := make(map[string]bool, len(def.Parameters))
	for _, p := range def.Parameters {
		required[p] = true
	}

	var missing, extra []string
	for p := range required {
		if _, ok := step.Parameters[p]; !ok {
			missing = append(missing, p)
		}
	}
	for p := range step.Parameters {
		if !required[p] {
			extra = append(extra, p)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		return errhandling.NewInvalidParameters(stepIndex, step.Filter, missing, extra)
	}

	switch def.Kind {
	case corpus.KindBilingual:
		if step.Language != "" {
			return errhandling.NewInvalidLanguage(stepIndex, step.Filter,
				"cannot set language for a bilingual filter")
		}
	case corpus.KindMonolingual:
		if step.Language == "" {
			return errhandling.NewInvalidLanguage(stepIndex, step.Filter,
				"language attribute required for a monolingual filter")
		}
	}

	return nil
}

// ValidateChain validates every step of an ordered chain up front, before
// any process spawns. The first invalid step aborts.
func (r *Registry) ValidateChain(steps []corpus.FilterStep) error {
	for i, step := range steps {
		if err := r.Validate(step, i); err != nil {
			return err
		}
	}
	return nil
}

// List returns all definitions sorted by name.
func (r *Registry) List() []corpus.FilterDefinition {
	defs := make([]corpus.FilterDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.definitions)
}
