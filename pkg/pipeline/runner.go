package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/isometric/pkg/errors"
)

// Runner resolves an input path and converts everything it names.
//
// The Runner keeps no state between runs. Multiple goroutines can safely
// call Run as long as their output paths do not overlap.
type Runner struct {
	Converter *Converter

	// Concurrency bounds the number of tasks in flight during a directory
	// run. Zero selects runtime.NumCPU(); a negative value removes the bound.
	Concurrency int

	Logger *log.Logger
}

// NewRunner creates a runner around conv.
// If logger is nil, logging is discarded.
func NewRunner(conv *Converter, concurrency int, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Converter:   conv,
		Concurrency: concurrency,
		Logger:      logger,
	}
}

// Run converts input into output.
//
//   - input is a regular file: one task; its error is returned as is.
//   - input is a directory: output must be a directory or absent (it is
//     created); every immediate entry of input becomes a task writing to the
//     same name under output. Failed tasks are reported in the Result and do
//     not produce an error.
//   - anything else: INVALID_INPUT.
//
// Both paths are resolved to absolute form first. A missing input is
// INPUT_NOT_FOUND; an output that exists as a file while input is a
// directory is INVALID_OUTPUT, raised before anything is written.
func (r *Runner) Run(ctx context.Context, input, output string) (*Result, error) {
	in, err := filepath.Abs(input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve input %s", input)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOutput, err, "resolve output %s", output)
	}

	result := &Result{RunID: uuid.NewString()}
	logger := r.Logger.With("run", result.RunID)
	conv := r.Converter.withLogger(logger)

	info, err := os.Stat(in)
	if os.IsNotExist(err) {
		logger.Errorf("%s does not exist", in)
		return nil, errors.Wrap(errors.ErrCodeInputNotFound, err, "cannot convert image that does not exist: %s", in)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "stat %s", in)
	}

	switch {
	case info.Mode().IsRegular():
		result.Mode = ModeFile
		outcome, err := conv.Convert(ctx, Task{Input: in, Output: out})
		if err != nil {
			return nil, err
		}
		result.Outcomes = []Outcome{outcome}
		return result, nil

	case info.IsDir():
		result.Mode = ModeDirectory
		tasks, err := r.directoryTasks(in, out)
		if err != nil {
			return nil, err
		}
		logger.Info("converting directory", "input", in, "output", out, "entries", len(tasks), "concurrency", r.limit())
		result.Outcomes = r.runAll(ctx, conv, tasks)
		return result, nil

	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "input path was not a file or directory: %s", in)
	}
}

// directoryTasks prepares the output directory and maps every immediate
// entry of in to the same name under out.
func (r *Runner) directoryTasks(in, out string) ([]Task, error) {
	outInfo, err := os.Stat(out)
	switch {
	case err == nil && !outInfo.IsDir():
		return nil, errors.New(errors.ErrCodeInvalidOutput, "cannot write to file as directory: %s", out)
	case err == nil:
	case os.IsNotExist(err):
		if err := os.MkdirAll(out, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "create output directory %s", out)
		}
	default:
		return nil, errors.Wrap(errors.ErrCodeIO, err, "stat %s", out)
	}

	entries, err := os.ReadDir(in)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read directory %s", in)
	}

	tasks := make([]Task, 0, len(entries))
	for _, e := range entries {
		tasks = append(tasks, Task{
			Input:  filepath.Join(in, e.Name()),
			Output: filepath.Join(out, e.Name()),
		})
	}
	return tasks, nil
}

// runAll converts every task and waits for all of them to settle.
// Outcomes keep the order of tasks.
func (r *Runner) runAll(ctx context.Context, conv *Converter, tasks []Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))

	// No derived context: one failure must not cancel the others.
	var g errgroup.Group
	g.SetLimit(r.limit())
	for i, t := range tasks {
		g.Go(func() error {
			outcomes[i], _ = conv.Convert(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// limit returns the worker bound passed to errgroup.SetLimit.
func (r *Runner) limit() int {
	switch {
	case r.Concurrency < 0:
		return -1
	case r.Concurrency == 0:
		return runtime.NumCPU()
	default:
		return r.Concurrency
	}
}
