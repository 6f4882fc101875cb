// Package cache stores intermediate chain outputs as content-addressed
// files next to the base sample artifact. Artifacts are immutable once
// committed: a writer stages into a temp file and renames it into place,
// so readers never observe a partial artifact.
package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidycorpus/runtime/internal/errhandling"
)

// Path derives the artifact path for a chain prefix from the base sample
// path and the cumulative hash of the prefix, keeping the .gz extension
// last so the artifact stays recognizable as compressed.
func Path(base, hash string) string {
	if rest, ok := strings.CutSuffix(base, ".gz"); ok {
		return rest + "." + hash + ".gz"
	}
	return base + "." + hash
}

type call struct {
	done chan struct{}
	err  error
}

// Cache coordinates access to committed artifacts. It also serializes
// concurrent computations of the same artifact: while one caller is
// producing a path, others requesting it block and share the result
// instead of recomputing.
type Cache struct {
	mu       sync.Mutex
	inflight map[string]*call
}

func New() *Cache {
	return &Cache{inflight: make(map[string]*call)}
}

// Has reports whether a committed artifact exists at path.
func (c *Cache) Has(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Open opens a committed artifact for reading.
func (c *Cache) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errhandling.NewCacheIO("opening cached artifact", err)
	}
	return f, nil
}

// Commit stages an artifact through write and publishes it at path with a
// rename. The temp file lives in the same directory as path so the rename
// never crosses filesystems. On any failure the temp file is removed and
// path is left untouched.
func (c *Cache) Commit(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".chain-*.tmp")
	if err != nil {
		return errhandling.NewCacheIO("creating artifact temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errhandling.NewCacheIO("closing artifact temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errhandling.NewCacheIO("publishing artifact", err)
	}
	return nil
}

// Do runs compute for path, guaranteeing at most one execution at a time
// per path. Callers arriving while a computation is in flight wait for it
// and receive its error instead of starting their own.
func (c *Cache) Do(path string, compute func() error) error {
	c.mu.Lock()
	if existing, ok := c.inflight[path]; ok {
		c.mu.Unlock()
		<-existing.done
		return existing.err
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[path] = cl
	c.mu.Unlock()

	cl.err = compute()

	c.mu.Lock()
	delete(c.inflight, path)
	c.mu.Unlock()
	close(cl.done)
	return cl.err
}
