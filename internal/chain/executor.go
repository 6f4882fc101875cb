package chain

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidycorpus/runtime/internal/cache"
	"github.com/tidycorpus/runtime/internal/config"
	"github.com/tidycorpus/runtime/internal/datasets"
	"github.com/tidycorpus/runtime/internal/errhandling"
	"github.com/tidycorpus/runtime/internal/logger"
	"github.com/tidycorpus/runtime/internal/registry"
	"github.com/tidycorpus/runtime/internal/sample"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

// Executor runs validated filter chains against datasets. It owns the
// base sample extractor and the artifact cache; a single Executor is
// shared by all requests so concurrent chains coordinate through one
// in-flight registry.
type Executor struct {
	cfg       *config.Config
	registry  *registry.Registry
	store     *datasets.Store
	extractor *sample.Extractor
	cache     *cache.Cache
	pipeline  *Pipeline
}

// NewExecutor wires an Executor from its collaborators. The sample
// randomizer is seeded from cfg; a nil seed yields a fresh middle sample
// per process.
func NewExecutor(cfg *config.Config, reg *registry.Registry, store *datasets.Store) *Executor {
	return &Executor{
		cfg:       cfg,
		registry:  reg,
		store:     store,
		extractor: sample.NewExtractor(cfg.CacheDir, cfg.SampleSize, sample.NewRandomizer(cfg.Seed)),
		cache:     cache.New(),
		pipeline:  NewPipeline(cfg.Decompressor, cfg.Compressor),
	}
}

// Execute validates the chain, ensures the dataset's base sample exists,
// runs every step not already cached, and returns the resulting records.
// An empty chain returns the base sample unfiltered.
func (e *Executor) Execute(ctx context.Context, datasetName string, steps []corpus.FilterStep) ([]corpus.SampleRecord, error) {
	ds, err := e.store.Get(datasetName)
	if err != nil {
		return nil, err
	}
	if err := e.registry.ValidateChain(steps); err != nil {
		return nil, err
	}
	langs := ds.Languages()
	for _, step := range steps {
		if step.Language != "" && !slices.Contains(langs, step.Language) {
			return nil, errhandling.NewMissingColumn(ds.Name, step.Language)
		}
	}

	chainCtx := logger.ChainContext{
		Dataset:   ds.Name,
		Languages: strings.Join(langs, "."),
		StepIndex: -1,
	}
	logger.LogChainStart(chainCtx, len(steps))
	start := time.Now()

	basePath := e.extractor.Path(ds.Name, langs)
	if err := e.cache.Do(basePath, func() error {
		_, extractErr := e.extractor.Extract(ds)
		return extractErr
	}); err != nil {
		return nil, err
	}

	current := basePath
	hash := ""
	for i, step := range steps {
		hash = StepHash(hash, step)
		outPath := cache.Path(basePath, hash)

		stepCtx := chainCtx
		stepCtx.StepIndex = i
		stepCtx.Filter = step.Filter

		cached := e.cfg.IsCacheEnabled() && e.cache.Has(outPath)
		logger.LogStepStart(stepCtx, cached)

		if !cached {
			stepStart := time.Now()
			err := e.cache.Do(outPath, func() error {
				if e.cfg.IsCacheEnabled() && e.cache.Has(outPath) {
					return nil
				}
				return e.runStep(ctx, i, step, langs, current, outPath)
			})
			logger.LogStepEnd(stepCtx, time.Since(stepStart), err)
			if err != nil {
				return nil, err
			}
		}
		current = outPath
	}

	records, err := e.readRecords(current, langs)
	if err != nil {
		return nil, err
	}
	logger.LogChainEnd(chainCtx, len(records), time.Since(start))
	return records, nil
}

// runStep materializes one step's output artifact at outPath from the
// artifact at inPath. Command filters run as an external pipeline;
// expression and script filters run in-process.
func (e *Executor) runStep(ctx context.Context, index int, step corpus.FilterStep, langs []string, inPath, outPath string) error {
	def, err := e.registry.Lookup(step.Filter)
	if err != nil {
		return err
	}

	fieldIndex := -1
	if def.Kind == corpus.KindMonolingual {
		fieldIndex = slices.Index(langs, step.Language)
	}

	return e.cache.Commit(outPath, func(out *os.File) error {
		if len(def.Command) > 0 {
			return e.pipeline.Run(ctx, processStep{
				Index:   index,
				Filter:  step.Filter,
				Argv:    commandArgv(def.Command, e.cfg.ColumnWrapper, fieldIndex),
				Params:  step.Parameters,
				Timeout: e.cfg.StepTimeout(),
			}, inPath, out)
		}
		return runBuiltin(builtinStep{
			Index:      index,
			Filter:     step.Filter,
			Def:        def,
			Params:     step.Parameters,
			FieldIndex: fieldIndex,
		}, inPath, out)
	})
}

// commandArgv builds the argv for a command step. A bilingual command sees
// the whole record stream; a monolingual command is wrapped so it only
// sees its column: wrapper argv, then the zero-based field index, then the
// filter command.
func commandArgv(command, wrapper []string, fieldIndex int) []string {
	if fieldIndex < 0 {
		return command
	}
	argv := make([]string, 0, len(wrapper)+1+len(command))
	argv = append(argv, wrapper...)
	argv = append(argv, strconv.Itoa(fieldIndex))
	return append(argv, command...)
}

// readRecords parses a compressed artifact into sample records, mapping
// tab-separated fields onto the sorted language list. Records with fewer
// fields than languages keep only the fields present.
func (e *Executor) readRecords(path string, langs []string) ([]corpus.SampleRecord, error) {
	f, err := e.cache.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errhandling.NewCacheIO("decompressing result artifact", err)
	}
	defer gz.Close()

	records := []corpus.SampleRecord{}
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 64*1024), maxRecordLine)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		record := make(corpus.SampleRecord, len(langs))
		for i, lang := range langs {
			if i < len(fields) {
				record[lang] = fields[i]
			}
		}
		records = append(records, record)
	}
	if err := sc.Err(); err != nil {
		return nil, errhandling.NewCacheIO(fmt.Sprintf("reading result artifact %s", path), err)
	}
	return records, nil
}
