package datasets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidycorpus/runtime/internal/errhandling"
)

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "toy.en.gz", []byte("aaaa"))
	writeFile(t, dir, "toy.fr.gz", []byte("bb"))
	writeFile(t, dir, "big-corpus-v1.de.gz", []byte("c"))
	// ignored entries
	writeFile(t, dir, ".sample.toy.en.fr.gz", []byte("cached"))
	writeFile(t, dir, "notes.txt", []byte("x"))
	writeFile(t, dir, "nolang.gz", []byte("x"))
	if err := os.Mkdir(filepath.Join(dir, "sub.dir.gz"), 0755); err != nil {
		t.Fatal(err)
	}

	store := NewStore(dir)
	all, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(all) != 2 {
		t.Fatalf("List() found %d datasets, want 2: %v", len(all), all)
	}

	toy := all["toy"]
	if len(toy.Columns) != 2 {
		t.Fatalf("toy has %d columns, want 2", len(toy.Columns))
	}
	if got := toy.Languages(); got[0] != "en" || got[1] != "fr" {
		t.Errorf("Languages() = %v, want [en fr]", got)
	}
	if toy.Columns["en"].Size != 4 {
		t.Errorf("en column size = %d, want 4", toy.Columns["en"].Size)
	}
	if toy.Columns["en"].Path != filepath.Join(dir, "toy.en.gz") {
		t.Errorf("en column path = %q", toy.Columns["en"].Path)
	}
}

func TestGetMissingDataset(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Get("ghost")
	if errhandling.KindOf(err) != errhandling.KindMissingDataset {
		t.Errorf("expected MissingDataset, got %v", err)
	}
}

func TestListMissingRoot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent"))
	if _, err := store.List(); err == nil {
		t.Fatal("expected error for missing data root")
	}
}

func TestSplitColumnName(t *testing.T) {
	tests := []struct {
		file     string
		wantName string
		wantLang string
		wantOK   bool
	}{
		{"toy.en.gz", "toy", "en", true},
		{"OPUS-elitr_eca-v1.eng.gz", "OPUS-elitr_eca-v1", "eng", true},
		{"a.b.c.gz", "a.b", "c", true},
		{".sample.toy.en.fr.gz", "", "", false},
		{"plain.gz", "", "", false},
		{"nogz.en", "", "", false},
		{"trailingdot..gz", "", "", false},
	}

	for _, tt := range tests {
		name, lang, ok := splitColumnName(tt.file)
		if ok != tt.wantOK || name != tt.wantName || lang != tt.wantLang {
			t.Errorf("splitColumnName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.file, name, lang, ok, tt.wantName, tt.wantLang, tt.wantOK)
		}
	}
}
