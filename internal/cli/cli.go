// Package cli implements the isometric command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/isometric/pkg/buildinfo"
	"github.com/matzehuels/isometric/pkg/observability"
	"github.com/matzehuels/isometric/pkg/pipeline"
	"github.com/matzehuels/isometric/pkg/raster"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used in help text and completion scripts.
const appName = "isometric"

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// BackendFactory creates a raster backend by name.
type BackendFactory func(name string, cfg raster.Config) (raster.Backend, error)

// CLI holds shared state for all commands.
type CLI struct {
	out    io.Writer
	errOut io.Writer

	newBackend BackendFactory

	// cfg is resolved once per invocation before the command runs.
	cfg      Config
	closeLog func() error
}

// New creates a CLI that prints results to out and diagnostics to errOut.
func New(out, errOut io.Writer) *CLI {
	return &CLI{
		out:        out,
		errOut:     errOut,
		newBackend: raster.New,
		closeLog:   func() error { return nil },
	}
}

// Exit statuses returned by Execute.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130 // Standard shell convention for SIGINT
)

// Execute runs the command line args and returns the process exit status.
//
// An interrupted context always yields ExitInterrupted, including directory
// runs that return without error after their remaining tasks failed.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := New(stdout, stderr).RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case ctx.Err() != nil:
		return ExitInterrupted
	case err != nil:
		PrintFailure(stderr, err)
		return ExitFailure
	}
	return ExitOK
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var fv flagValues

	root := &cobra.Command{
		Use:   appName + " <input> <output> [options-json]",
		Short: "Convert flat 2D images into pseudo-isometric projections",
		Long: `Isometric stretches and shears flat images into a 30° pseudo-isometric view.

The input may be a single image or a directory; in directory mode every entry is
converted to the same name under the output directory, which is created when
missing. Each output is checked against the computed target size and reported
as a success, an outside-margin warning, or a failure.

Options can be passed as a JSON object in the third argument:

  $ isometric tile.png tile-iso.png '{"verbose": true}'`,
		Args:          cobra.RangeArgs(2, 3),
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var optionsJSON string
			if cmd == cmd.Root() && len(args) == 3 {
				optionsJSON = args[2]
			}
			cfg, err := resolveConfig(cmd, optionsJSON, &fv)
			if err != nil {
				return err
			}
			logger, closeLog := newRunLogger(c.errOut, cfg)
			c.cfg = cfg
			c.closeLog = closeLog
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer c.closeLog()
			return c.runConvert(cmd.Context(), args[0], args[1])
		},
	}

	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.SetVersionTemplate(buildinfo.Template())

	fv.register(root)

	root.AddCommand(c.planCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Conversion
// =============================================================================

// backend creates the configured raster backend, logging through the run logger.
func (c *CLI) backend(ctx context.Context) (raster.Backend, error) {
	logger := loggerFromContext(ctx)
	return c.newBackend(c.cfg.Backend, raster.Config{
		GMBinary: c.cfg.GMBinary,
		Logger:   logger,
		Hooks:    observability.NewLogHooks(logger),
	})
}

// runConvert converts input into output and prints one line per outcome.
func (c *CLI) runConvert(ctx context.Context, input, output string) error {
	logger := loggerFromContext(ctx)

	b, err := c.backend(ctx)
	if err != nil {
		return err
	}

	conv := pipeline.NewConverter(b, logger)
	conv.Hooks = observability.NewLogHooks(logger)
	runner := pipeline.NewRunner(conv, c.cfg.Concurrency, logger)

	prog := newProgress(logger)
	spin := c.spinner(ctx, "Converting "+input)
	spin.Start()
	result, err := runner.Run(ctx, input, output)
	spin.Stop()
	if err != nil {
		return err
	}

	for _, o := range result.Outcomes {
		printOutcome(c.out, o)
	}

	success, outside, failed := result.Counts()
	if result.Mode == pipeline.ModeDirectory {
		printSummary(c.out, success, outside, failed)
	}
	prog.done("Converted " + input)
	return nil
}

// spinner returns a progress spinner on errOut. It stays silent unless
// errOut is a terminal and verbose logs are not already going there.
func (c *CLI) spinner(ctx context.Context, msg string) *Spinner {
	s := newSpinnerWithContext(ctx, io.Discard, msg)
	if f, ok := c.errOut.(*os.File); ok && !c.cfg.Verbose && isatty.IsTerminal(f.Fd()) {
		s.w = f
	}
	return s
}
