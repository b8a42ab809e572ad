package raster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/observability"
)

// defaultGMBinary is the GraphicsMagick executable looked up on PATH.
const defaultGMBinary = "gm"

// GraphicsMagick runs the gm command-line tool.
// Requires GraphicsMagick: brew install graphicsmagick (macOS), apt install graphicsmagick (Linux).
type GraphicsMagick struct {
	Binary string
	Logger *log.Logger
	Hooks  observability.BackendHooks
}

// NewGraphicsMagick creates a backend that invokes binary (default "gm").
func NewGraphicsMagick(binary string, logger *log.Logger, hooks observability.BackendHooks) *GraphicsMagick {
	if binary == "" {
		binary = defaultGMBinary
	}
	return &GraphicsMagick{
		Binary: binary,
		Logger: loggerOrDiscard(logger),
		Hooks:  observability.BackendOrNoop(hooks),
	}
}

// Name returns "gm".
func (g *GraphicsMagick) Name() string { return BackendGM }

// Dimensions runs "gm identify -verbose" and parses its Geometry field.
func (g *GraphicsMagick) Dimensions(ctx context.Context, path string) (Dimensions, error) {
	path, err := argPath(path)
	if err != nil {
		return Dimensions{}, err
	}
	out, err := g.run(ctx, "identify", path, "identify", "-verbose", path)
	if err != nil {
		return Dimensions{}, err
	}
	d, err := ParseGeometryReport(string(out))
	if err != nil {
		return Dimensions{}, errors.Wrap(errors.ErrCodeBackendParse, err, "identify %s", path)
	}
	return d, nil
}

// Resize runs "gm mogrify -geometry WxH!" so the aspect ratio is not preserved.
func (g *GraphicsMagick) Resize(ctx context.Context, path string, width, height int) error {
	path, err := argPath(path)
	if err != nil {
		return err
	}
	_, err = g.run(ctx, "resize", path, "mogrify", "-geometry", fmt.Sprintf("%dx%d!", width, height), path)
	return err
}

// Shear runs "gm mogrify -background transparent -shear 0xANGLE".
// The background option must precede -shear for gm to use it as the fill.
func (g *GraphicsMagick) Shear(ctx context.Context, path string, angle float64) error {
	path, err := argPath(path)
	if err != nil {
		return err
	}
	shear := "0x" + strconv.FormatFloat(angle, 'f', -1, 64)
	_, err = g.run(ctx, "shear", path, "mogrify", "-background", "transparent", "-shear", shear, path)
	return err
}

// run executes the binary with args and returns stdout.
// A non-zero exit or any stderr output is a BACKEND_EXECUTION error.
func (g *GraphicsMagick) run(ctx context.Context, op, path string, args ...string) (out []byte, err error) {
	start := time.Now()
	defer func() {
		g.Hooks.OnBackendCall(ctx, g.Name(), op, path, time.Since(start), err)
	}()

	bin, err := exec.LookPath(g.Binary)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendExecution, err,
			"%s not found. Install GraphicsMagick with:\n  macOS:  brew install graphicsmagick\n  Linux:  apt install graphicsmagick", g.Binary)
	}

	g.Logger.Debug("exec", "cmd", g.Binary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendExecution, runErr,
			"%s %s %s: %s", g.Binary, args[0], path, strings.TrimSpace(stderr.String()))
	}
	// Any stderr output fails the call, even a bare newline.
	if stderr.Len() > 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "unexpected output on stderr"
		}
		return nil, errors.New(errors.ErrCodeBackendExecution, "%s %s %s: %s", g.Binary, args[0], path, msg)
	}
	return stdout.Bytes(), nil
}

// argPath makes path absolute and checks it is safe to pass as an argument.
func argPath(path string) (string, error) {
	if err := errors.ValidateImagePath(path); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	return abs, nil
}

var _ Backend = (*GraphicsMagick)(nil)
