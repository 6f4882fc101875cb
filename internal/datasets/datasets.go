// Package datasets discovers parallel-corpus datasets on disk.
//
// A dataset is a group of gzip-compressed column files sharing a name:
// <name>.<lang>.gz under the data root. Discovery trusts the directory
// listing; column files are only opened when a sample is extracted.
package datasets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidycorpus/runtime/internal/errhandling"
	"github.com/tidycorpus/runtime/internal/logger"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

// Store lists datasets under a fixed data root.
type Store struct {
	root string
}

// NewStore creates a Store scanning the given root directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the data root directory.
func (s *Store) Root() string {
	return s.root
}

// List scans the data root and returns all discovered datasets by name.
// Sample and chain cache artifacts (dotfiles) are skipped, as is anything
// that does not match <name>.<lang>.gz.
func (s *Store) List() (map[string]corpus.Dataset, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errhandling.NewCacheIO("scanning data root", err)
	}

	found := make(map[string]corpus.Dataset)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, lang, ok := splitColumnName(entry.Name())
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warn("skipping unreadable column file",
				"file", entry.Name(),
				"error", err.Error(),
			)
			continue
		}

		ds, ok := found[name]
		if !ok {
			ds = corpus.Dataset{
				Name:    name,
				Columns: make(map[string]corpus.Column),
			}
		}
		ds.Columns[lang] = corpus.Column{
			Path: filepath.Join(s.root, entry.Name()),
			Size: info.Size(),
		}
		found[name] = ds
	}

	return found, nil
}

// Get returns a single dataset by name.
func (s *Store) Get(name string) (corpus.Dataset, error) {
	all, err := s.List()
	if err != nil {
		return corpus.Dataset{}, err
	}
	ds, ok := all[name]
	if !ok {
		return corpus.Dataset{}, errhandling.NewMissingDataset(name)
	}
	return ds, nil
}

// splitColumnName parses <name>.<lang>.gz. Dotfiles (cached artifacts) and
// files without enough components are rejected.
func splitColumnName(filename string) (name, lang string, ok bool) {
	if strings.HasPrefix(filename, ".") {
		return "", "", false
	}
	base, found := strings.CutSuffix(filename, ".gz")
	if !found {
		return "", "", false
	}
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 || idx == len(base)-1 {
		return "", "", false
	}
	return base[:idx], base[idx+1:], true
}
