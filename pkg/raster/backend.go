package raster

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/geometry"
	"github.com/matzehuels/isometric/pkg/observability"
)

// Backend names accepted by New.
const (
	BackendGM     = "gm"
	BackendNative = "native"
)

// ValidBackends is the set of supported backend names.
var ValidBackends = map[string]bool{
	BackendGM:     true,
	BackendNative: true,
}

// Dimensions is an image size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// String returns the size as WIDTHxHEIGHT.
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Backend queries and transforms image files in place.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Dimensions reports the size of the image at path.
	Dimensions(ctx context.Context, path string) (Dimensions, error)
	// Resize stretches the image to exactly width x height, ignoring aspect ratio.
	Resize(ctx context.Context, path string, width, height int) error
	// Shear displaces pixels vertically in proportion to their x position by
	// angle degrees, filling uncovered area with transparency.
	Shear(ctx context.Context, path string, angle float64) error
}

// Transform applies a plan to the file at path: a forced resize to the
// target width at the source height, then the calibrated shear.
func Transform(ctx context.Context, b Backend, path string, p geometry.Plan) error {
	if err := b.Resize(ctx, path, p.TargetWidth, p.SourceHeight); err != nil {
		return err
	}
	return b.Shear(ctx, path, p.BackendShearAngle)
}

// Config holds the settings shared by all backends.
type Config struct {
	// GMBinary is the GraphicsMagick executable (default "gm").
	GMBinary string
	Logger   *log.Logger
	Hooks    observability.BackendHooks
}

// New creates the backend registered under name.
func New(name string, cfg Config) (Backend, error) {
	switch name {
	case BackendGM, "":
		return NewGraphicsMagick(cfg.GMBinary, cfg.Logger, cfg.Hooks), nil
	case BackendNative:
		return NewNative(cfg.Logger, cfg.Hooks), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidOptions, "unknown backend %q (must be 'gm' or 'native')", name)
	}
}

// geometryValue matches the leading WIDTHxHEIGHT of a geometry string,
// ignoring any +X+Y page offset that follows.
var geometryValue = regexp.MustCompile(`^(\d+)x(\d+)`)

// ParseGeometryReport extracts the image size from a verbose identify report.
// The first line whose key is exactly "Geometry" is used; keys such as
// "Page geometry" are skipped.
func ParseGeometryReport(report string) (Dimensions, error) {
	sc := bufio.NewScanner(strings.NewReader(report))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Geometry" {
			continue
		}
		return parseGeometry(strings.TrimSpace(value))
	}
	return Dimensions{}, errors.New(errors.ErrCodeBackendParse, "no Geometry field in identify output")
}

func parseGeometry(s string) (Dimensions, error) {
	m := geometryValue.FindStringSubmatch(s)
	if m == nil {
		return Dimensions{}, errors.New(errors.ErrCodeBackendParse, "malformed geometry %q", s)
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Dimensions{}, errors.New(errors.ErrCodeBackendParse, "invalid geometry %q", s)
	}
	return Dimensions{Width: w, Height: h}, nil
}

func loggerOrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return l
}
