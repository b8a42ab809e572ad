package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/geometry"
	"github.com/matzehuels/isometric/pkg/observability"
	"github.com/matzehuels/isometric/pkg/raster"
)

// Converter turns one flat image into its isometric projection.
//
// A Converter holds no per-task state, so one value may serve any number of
// concurrent Convert calls as long as their outputs differ.
type Converter struct {
	Backend raster.Backend
	Logger  *log.Logger
	Hooks   observability.ConversionHooks
}

// NewConverter creates a converter. A nil logger discards all output.
func NewConverter(b raster.Backend, logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Converter{
		Backend: b,
		Logger:  logger,
		Hooks:   observability.NoopConversionHooks{},
	}
}

// withLogger returns a shallow copy that logs to l.
func (c *Converter) withLogger(l *log.Logger) *Converter {
	cp := *c
	cp.Logger = l
	return &cp
}

// Convert runs the conversion steps for task in order:
//
//  1. check the input is a regular file
//  2. query its dimensions and compute the plan
//  3. copy it to the output path
//  4. resize and shear the copy in place
//  5. query the final dimensions and validate them against the plan
//
// A failure in steps 1-5 returns a StatusFailed outcome together with the
// error. Missing the tolerance is not an error: the file stays written and the
// outcome is StatusOutsideMargin.
func (c *Converter) Convert(ctx context.Context, task Task) (out Outcome, err error) {
	start := time.Now()
	hooks := observability.ConversionOrNoop(c.Hooks)
	hooks.OnConvertStart(ctx, task.Input, task.Output)
	defer func() {
		out.Duration = time.Since(start)
		hooks.OnConvertComplete(ctx, task.Input, task.Output, string(out.Status), out.Duration, err)
	}()

	out = Outcome{Task: task}
	fail := func(err error) (Outcome, error) {
		out.Status = StatusFailed
		out.Err = err
		c.Logger.Error("conversion failed", "input", task.Input, "err", err)
		return out, err
	}

	if info, statErr := os.Stat(task.Input); statErr != nil || !info.Mode().IsRegular() {
		c.Logger.Errorf("%s does not exist", task.Input)
		if statErr != nil {
			return fail(errors.Wrap(errors.ErrCodeInputNotFound, statErr, "cannot convert image that does not exist: %s", task.Input))
		}
		return fail(errors.New(errors.ErrCodeInputNotFound, "cannot convert image that is not a regular file: %s", task.Input))
	}

	c.Logger.Infof("Converting %s to isometric at %s", task.Input, task.Output)

	src, err := c.Backend.Dimensions(ctx, task.Input)
	if err != nil {
		return fail(err)
	}

	plan := geometry.NewPlan(src.Width, src.Height)
	out.Plan = plan
	c.Logger.Info("conversion dimensions",
		"original", src,
		"target_width", plan.TargetWidth,
		"target_height", plan.TargetHeight)

	if err := copyFile(task.Input, task.Output); err != nil {
		return fail(err)
	}

	if err := raster.Transform(ctx, c.Backend, task.Output, plan); err != nil {
		return fail(err)
	}

	final, err := c.Backend.Dimensions(ctx, task.Output)
	if err != nil {
		return fail(err)
	}
	out.Final = final
	c.Logger.Info("final identify result", "dimensions", final)

	if plan.Within(final.Width, final.Height, geometry.DefaultMarginPercent) {
		out.Status = StatusSuccess
		return out, nil
	}

	out.Status = StatusOutsideMargin
	tw, th := plan.Tolerance(geometry.DefaultMarginPercent)
	c.Logger.Warn("final dimensions are not within 0.5% of target dimensions",
		"output", task.Output,
		"final", final,
		"target", raster.Dimensions{Width: plan.TargetWidth, Height: plan.TargetHeight},
		"tolerance_px", raster.Dimensions{Width: tw, Height: th})
	return out, nil
}

// copyFile copies src to dst, creating or truncating dst.
// Copying a file onto itself is a no-op so in-place conversion works.
func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "stat %s", src)
	}
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(srcInfo, dstInfo) {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "copy %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", dst)
	}
	return nil
}
