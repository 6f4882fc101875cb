package sample

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidycorpus/runtime/internal/errhandling"
	"github.com/tidycorpus/runtime/internal/logger"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

// maxLineSize bounds a single corpus line (16MB).
const maxLineSize = 16 * 1024 * 1024

// Extractor materializes base sample artifacts in the cache directory.
type Extractor struct {
	cacheDir   string
	sampleSize int
	randomizer *Randomizer
}

// NewExtractor creates an Extractor writing artifacts under cacheDir.
func NewExtractor(cacheDir string, sampleSize int, randomizer *Randomizer) *Extractor {
	return &Extractor{
		cacheDir:   cacheDir,
		sampleSize: sampleSize,
		randomizer: randomizer,
	}
}

// Path returns the base sample artifact path for a dataset:
// .sample.<dataset>.<sorted-languages-dot-joined>.gz
func (e *Extractor) Path(dataset string, languages []string) string {
	return filepath.Join(e.cacheDir,
		fmt.Sprintf(".sample.%s.%s.gz", dataset, strings.Join(languages, ".")))
}

// Extract produces the base sample artifact for a dataset and returns its
// path. If the artifact already exists, extraction is skipped entirely; no
// staleness check is made against the source column files.
//
// Columns are read line-by-line, zipped into aligned tuples, and the
// iteration stops at the shortest column. Misaligned columns therefore
// silently truncate; that is the documented truncation policy, not an
// error.
func (e *Extractor) Extract(ds corpus.Dataset) (string, error) {
	languages := ds.Languages()
	path := e.Path(ds.Name, languages)

	if _, err := os.Stat(path); err == nil {
		logger.Debug("base sample exists, skipping extraction",
			"dataset", ds.Name,
			"path", path,
		)
		return path, nil
	}

	start := time.Now()

	readers := make([]*bufio.Scanner, 0, len(languages))
	closers := make([]func() error, 0, len(languages)*2)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	for _, lang := range languages {
		col := ds.Columns[lang]
		f, err := os.Open(col.Path)
		if err != nil {
			return "", errhandling.NewMissingColumn(ds.Name, lang)
		}
		closers = append(closers, f.Close)

		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("opening %s column of %s: %w", lang, ds.Name, err)
		}
		closers = append(closers, gz.Close)

		sc := bufio.NewScanner(gz)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		readers = append(readers, sc)
	}

	var readErr error
	next := func() (Tuple, bool) {
		if readErr != nil {
			return nil, false
		}
		tuple := make(Tuple, len(readers))
		for i, sc := range readers {
			if !sc.Scan() {
				readErr = sc.Err()
				return nil, false
			}
			tuple[i] = strings.TrimRight(sc.Text(), "\r\n")
		}
		return tuple, true
	}

	head, middle, tail := e.randomizer.Sample(e.sampleSize, next)
	if readErr != nil {
		return "", fmt.Errorf("reading columns of %s: %w", ds.Name, readErr)
	}

	if err := e.writeArtifact(path, head, middle, tail); err != nil {
		return "", err
	}

	logger.Info("base sample extracted",
		"dataset", ds.Name,
		"languages", strings.Join(languages, "."),
		"records", len(head)+len(middle)+len(tail),
		"duration", time.Since(start),
	)
	return path, nil
}

// writeArtifact writes head ++ middle ++ tail as a gzip-compressed,
// tab-separated, newline-delimited file. The artifact is staged in a temp
// file and renamed into place so a partial write is never visible at the
// final path.
func (e *Extractor) writeArtifact(path string, parts ...[]Tuple) error {
	tmp, err := os.CreateTemp(e.cacheDir, ".sample-*.tmp")
	if err != nil {
		return errhandling.NewCacheIO("creating sample temp file", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// No-ops once the rename has happened.
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	gz := gzip.NewWriter(tmp)
	for _, part := range parts {
		for _, tuple := range part {
			if _, err := gz.Write([]byte(strings.Join(tuple, "\t") + "\n")); err != nil {
				return errhandling.NewCacheIO("writing sample artifact", err)
			}
		}
	}
	if err := gz.Close(); err != nil {
		return errhandling.NewCacheIO("finalizing sample artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return errhandling.NewCacheIO("closing sample temp file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errhandling.NewCacheIO("publishing sample artifact", err)
	}
	return nil
}
