package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidycorpus/runtime/pkg/corpus"
)

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadBuiltinsOnly(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != len(Builtins()) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(Builtins()))
	}
}

func TestLoadMergesDefinitionFiles(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "deescape.json", `{
		"name": "deescape-special-chars",
		"kind": "monolingual",
		"command": ["filters/deescape.perl"],
		"parameters": []
	}`)
	writeDefinition(t, dir, "max-length.json", `{
		"name": "max-length",
		"kind": "bilingual",
		"expression": "all(fields, len(#) <= int(params.MAX))",
		"parameters": ["MAX"]
	}`)
	// non-JSON files are ignored
	writeDefinition(t, dir, "README.md", "not a definition")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != len(Builtins())+2 {
		t.Errorf("Len() = %d, want %d", r.Len(), len(Builtins())+2)
	}

	def, err := r.Lookup("max-length")
	if err != nil {
		t.Fatalf("Lookup(max-length): %v", err)
	}
	if def.Kind != corpus.KindBilingual {
		t.Errorf("Kind = %q, want bilingual", def.Kind)
	}
	if len(def.Parameters) != 1 || def.Parameters[0] != "MAX" {
		t.Errorf("Parameters = %v, want [MAX]", def.Parameters)
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing kind",
			content: `{"name": "x", "command": ["cat"], "parameters": []}`,
		},
		{
			name:    "bad kind",
			content: `{"name": "x", "kind": "trilingual", "command": ["cat"], "parameters": []}`,
		},
		{
			name:    "no body",
			content: `{"name": "x", "kind": "bilingual", "parameters": []}`,
		},
		{
			name:    "unknown key",
			content: `{"name": "x", "kind": "bilingual", "command": ["cat"], "parameters": [], "shell": true}`,
		},
		{
			name:    "not json",
			content: `kind: bilingual`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeDefinition(t, dir, "bad.json", tt.content)
			if _, err := Load(dir); err == nil {
				t.Errorf("expected Load to reject %s", tt.name)
			}
		})
	}
}

func TestLoadRejectsBuiltinRedefinition(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "shadow.json", `{
		"name": "remove-empty-lines",
		"kind": "bilingual",
		"command": ["cat"],
		"parameters": []
	}`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected redefinition of a builtin to be rejected")
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing definitions directory")
	}
}
