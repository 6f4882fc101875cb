package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tidycorpus/runtime/internal/logger"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

//go:embed schema/filter-schema.json
var embeddedFilterSchema []byte

var (
	filterSchemaOnce     sync.Once
	compiledFilterSchema *jsonschema.Schema
	filterSchemaInitErr  error
)

// getFilterSchema returns the compiled definition schema, compiling it on
// first use.
func getFilterSchema() (*jsonschema.Schema, error) {
	filterSchemaOnce.Do(func() {
		var schemaDoc interface{}
		if err := json.Unmarshal(embeddedFilterSchema, &schemaDoc); err != nil {
			filterSchemaInitErr = fmt.Errorf("failed to parse embedded filter schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()

		schemaURL := "https://tidycorpus.io/schemas/filter/v1.0.0/filter-schema.json"
		if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
			filterSchemaInitErr = fmt.Errorf("failed to add filter schema resource: %w", err)
			return
		}

		compiledFilterSchema, filterSchemaInitErr = compiler.Compile(schemaURL)
	})

	if filterSchemaInitErr != nil {
		return nil, filterSchemaInitErr
	}
	return compiledFilterSchema, nil
}

// Load builds the registry from the builtin table plus the *.json
// definition files found in dir. An empty dir loads builtins only.
// A definition file redefining a builtin or an earlier file's name is an
// error; files are read in lexical order so conflicts are deterministic.
func Load(dir string) (*Registry, error) {
	defs := Builtins()

	if dir != "" {
		fileDefs, err := loadDir(dir)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}

	return New(defs)
}

// loadDir reads and validates every *.json file in dir.
func loadDir(dir string) ([]corpus.FilterDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading filter definitions directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	schema, err := getFilterSchema()
	if err != nil {
		return nil, err
	}

	var defs []corpus.FilterDefinition
	for _, name := range names {
		path := filepath.Join(dir, name)
		def, err := loadDefinitionFile(path, schema)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded filter definition",
			"path", path,
			"filter", def.Name,
			"kind", string(def.Kind),
		)
		defs = append(defs, def)
	}
	return defs, nil
}

// loadDefinitionFile parses and schema-validates a single definition file.
func loadDefinitionFile(path string, schema *jsonschema.Schema) (corpus.FilterDefinition, error) {
	var def corpus.FilterDefinition

	content, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("reading filter definition %s: %w", path, err)
	}

	var doc interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return def, fmt.Errorf("parsing filter definition %s: %w", path, err)
	}

	if err := schema.Validate(doc); err != nil {
		return def, fmt.Errorf("invalid filter definition %s: %w", path, err)
	}

	if err := json.Unmarshal(content, &def); err != nil {
		return def, fmt.Errorf("decoding filter definition %s: %w", path, err)
	}
	if def.Parameters == nil {
		def.Parameters = []string{}
	}
	return def, nil
}
