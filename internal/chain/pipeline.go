package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tidycorpus/runtime/internal/errhandling"
)

// maxStderr bounds how much of a child's stderr is carried into an error.
const maxStderr = 512

// Pipeline runs an external command filter as a three-process pipeline
// over a compressed artifact: decompressor, filter, compressor, connected
// by OS pipes. The filter only ever sees plain record lines on stdin and
// writes plain record lines to stdout.
type Pipeline struct {
	decompressor []string
	compressor   []string
}

func NewPipeline(decompressor, compressor []string) *Pipeline {
	return &Pipeline{decompressor: decompressor, compressor: compressor}
}

// processStep carries the identity of a command step for error reporting.
type processStep struct {
	Index   int
	Filter  string
	Argv    []string
	Params  map[string]string
	Timeout time.Duration
}

// expandArgv substitutes argv tokens of the form $NAME with the step
// parameter of that name. Only whole tokens are substituted; there is no
// shell and no partial interpolation. Tokens naming an unknown parameter
// pass through literally.
func expandArgv(argv []string, params map[string]string) []string {
	out := make([]string, len(argv))
	for i, tok := range argv {
		if name, ok := strings.CutPrefix(tok, "$"); ok {
			if v, found := params[name]; found {
				out[i] = v
				continue
			}
		}
		out[i] = tok
	}
	return out
}

// paramEnv appends step parameters to the inherited environment so the
// filter process can also read them by name.
func paramEnv(params map[string]string) []string {
	env := os.Environ()
	for name, value := range params {
		env = append(env, name+"="+value)
	}
	return env
}

// Run executes one command step: inPath is decompressed, piped through the
// filter, recompressed, and written to out. Exit status is checked filter
// first so a filter failure is reported rather than the downstream broken
// pipe it causes.
func (p *Pipeline) Run(ctx context.Context, ps processStep, inPath string, out *os.File) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if ps.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, ps.Timeout)
		defer cancelTimeout()
	}

	in, err := os.Open(inPath)
	if err != nil {
		return errhandling.NewCacheIO("opening step input", err)
	}
	defer in.Close()

	r1, w1, err := os.Pipe()
	if err != nil {
		return errhandling.NewProcessFailure(ps.Index, ps.Filter, errhandling.StageDecompress, err)
	}
	r2, w2, err := os.Pipe()
	if err != nil {
		r1.Close()
		w1.Close()
		return errhandling.NewProcessFailure(ps.Index, ps.Filter, errhandling.StageFilter, err)
	}

	argv := expandArgv(ps.Argv, ps.Params)

	var decStderr, filStderr, compStderr bytes.Buffer

	dec := exec.CommandContext(ctx, p.decompressor[0], p.decompressor[1:]...)
	dec.Stdin = in
	dec.Stdout = w1
	dec.Stderr = &decStderr

	fil := exec.CommandContext(ctx, argv[0], argv[1:]...)
	fil.Stdin = r1
	fil.Stdout = w2
	fil.Stderr = &filStderr
	fil.Env = paramEnv(ps.Params)

	comp := exec.CommandContext(ctx, p.compressor[0], p.compressor[1:]...)
	comp.Stdin = r2
	comp.Stdout = out
	comp.Stderr = &compStderr

	var started []*exec.Cmd
	start := func(cmd *exec.Cmd, stage string) error {
		if err := cmd.Start(); err != nil {
			return errhandling.NewProcessFailure(ps.Index, ps.Filter, stage, err)
		}
		started = append(started, cmd)
		return nil
	}
	startErr := start(dec, errhandling.StageDecompress)
	if startErr == nil {
		startErr = start(fil, errhandling.StageFilter)
	}
	if startErr == nil {
		startErr = start(comp, errhandling.StageCompress)
	}

	// The parent must drop its pipe ends once the children hold them,
	// otherwise EOF never propagates when a writer exits.
	r1.Close()
	w1.Close()
	r2.Close()
	w2.Close()

	if startErr != nil {
		cancel()
		for _, cmd := range started {
			_ = cmd.Wait()
		}
		return startErr
	}

	filWait := fil.Wait()
	decWait := dec.Wait()
	compWait := comp.Wait()

	if err := ps.waitError(ctx, errhandling.StageFilter, filWait, &filStderr); err != nil {
		return err
	}
	if err := ps.waitError(ctx, errhandling.StageDecompress, decWait, &decStderr); err != nil {
		return err
	}
	return ps.waitError(ctx, errhandling.StageCompress, compWait, &compStderr)
}

func (ps processStep) waitError(ctx context.Context, stage string, waitErr error, stderr *bytes.Buffer) error {
	if waitErr == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errhandling.NewTimeout(ps.Index, ps.Filter, ctx.Err())
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		waitErr = fmt.Errorf("%w: %s", waitErr, msg)
	}
	return errhandling.NewProcessFailure(ps.Index, ps.Filter, stage, waitErr)
}
