package chain

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"
	"github.com/expr-lang/expr"

	"github.com/tidycorpus/runtime/internal/errhandling"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

// maxRecordLine bounds a single record line (16MB).
const maxRecordLine = 16 * 1024 * 1024

// builtinStep carries an expression or script step that runs in-process
// instead of spawning a pipeline.
type builtinStep struct {
	Index      int
	Filter     string
	Def        corpus.FilterDefinition
	Params     map[string]string
	FieldIndex int // field selected by a monolingual step, -1 for bilingual
}

// applyFunc maps one record's fields to the fields to emit; nil drops the
// record.
type applyFunc func(fields []string) ([]string, error)

// runBuiltin streams records from the compressed artifact at inPath
// through the step's program and writes the surviving records, compressed,
// to out.
func runBuiltin(bs builtinStep, inPath string, out *os.File) error {
	apply, err := compileBuiltin(bs)
	if err != nil {
		return errhandling.NewProcessFailure(bs.Index, bs.Filter, errhandling.StageFilter, err)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return errhandling.NewCacheIO("opening step input", err)
	}
	defer in.Close()

	gzIn, err := gzip.NewReader(in)
	if err != nil {
		return errhandling.NewProcessFailure(bs.Index, bs.Filter, errhandling.StageDecompress, err)
	}
	defer gzIn.Close()

	gzOut := gzip.NewWriter(out)
	sc := bufio.NewScanner(gzIn)
	sc.Buffer(make([]byte, 64*1024), maxRecordLine)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		kept, err := apply(fields)
		if err != nil {
			return errhandling.NewProcessFailure(bs.Index, bs.Filter, errhandling.StageFilter, err)
		}
		if kept == nil {
			continue
		}
		if _, err := gzOut.Write([]byte(strings.Join(kept, "\t") + "\n")); err != nil {
			return errhandling.NewProcessFailure(bs.Index, bs.Filter, errhandling.StageCompress, err)
		}
	}
	if err := sc.Err(); err != nil {
		return errhandling.NewProcessFailure(bs.Index, bs.Filter, errhandling.StageDecompress, err)
	}
	if err := gzOut.Close(); err != nil {
		return errhandling.NewProcessFailure(bs.Index, bs.Filter, errhandling.StageCompress, err)
	}
	return nil
}

func compileBuiltin(bs builtinStep) (applyFunc, error) {
	switch {
	case bs.Def.Expression != "":
		return compileExpression(bs)
	case bs.Def.Script != "":
		return compileScript(bs)
	default:
		return nil, fmt.Errorf("filter %q has no builtin program", bs.Filter)
	}
}

// compileExpression builds a keep/drop predicate from an expr program.
// The program sees the record as "fields", the step parameters as
// "params", and, for monolingual steps, the selected field as "field".
func compileExpression(bs builtinStep) (applyFunc, error) {
	program, err := expr.Compile(bs.Def.Expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling expression: %w", err)
	}
	return func(fields []string) ([]string, error) {
		env := map[string]any{
			"fields": fields,
			"params": bs.Params,
		}
		if bs.FieldIndex >= 0 {
			if bs.FieldIndex >= len(fields) {
				return nil, nil
			}
			env["field"] = fields[bs.FieldIndex]
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("evaluating expression: %w", err)
		}
		if keep, ok := result.(bool); ok && keep {
			return fields, nil
		}
		return nil, nil
	}, nil
}

// compileScript builds a transform from a JavaScript program that defines
// transform(). A monolingual step's transform receives and returns the
// selected field; a bilingual step's transform receives and returns the
// whole field array. Returning null or undefined drops the record.
func compileScript(bs builtinStep) (applyFunc, error) {
	vm := goja.New()
	if err := vm.Set("params", bs.Params); err != nil {
		return nil, fmt.Errorf("initializing script runtime: %w", err)
	}
	if _, err := vm.RunString(bs.Def.Script); err != nil {
		return nil, fmt.Errorf("loading script: %w", err)
	}
	transform, ok := goja.AssertFunction(vm.Get("transform"))
	if !ok {
		return nil, fmt.Errorf("script does not define transform()")
	}

	return func(fields []string) ([]string, error) {
		if bs.FieldIndex >= 0 {
			if bs.FieldIndex >= len(fields) {
				return nil, nil
			}
			result, err := transform(goja.Undefined(), vm.ToValue(fields[bs.FieldIndex]))
			if err != nil {
				return nil, fmt.Errorf("running transform: %w", err)
			}
			if goja.IsNull(result) || goja.IsUndefined(result) {
				return nil, nil
			}
			fields[bs.FieldIndex] = result.String()
			return fields, nil
		}

		result, err := transform(goja.Undefined(), vm.ToValue(fields))
		if err != nil {
			return nil, fmt.Errorf("running transform: %w", err)
		}
		if goja.IsNull(result) || goja.IsUndefined(result) {
			return nil, nil
		}
		var transformed []string
		if err := vm.ExportTo(result, &transformed); err != nil {
			return nil, fmt.Errorf("transform must return an array of fields: %w", err)
		}
		return transformed, nil
	}, nil
}
