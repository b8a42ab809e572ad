package raster

import (
	"context"
	"image"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	_ "golang.org/x/image/webp" // register webp for decoding

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/geometry"
	"github.com/matzehuels/isometric/pkg/observability"
)

// Native transforms images in-process.
// Formats are chosen by file extension on save (jpg, png, gif, tif, bmp);
// webp can be read but not written.
type Native struct {
	Filter imaging.ResampleFilter
	Logger *log.Logger
	Hooks  observability.BackendHooks
}

// NewNative creates an in-process backend using Lanczos resampling.
func NewNative(logger *log.Logger, hooks observability.BackendHooks) *Native {
	return &Native{
		Filter: imaging.Lanczos,
		Logger: loggerOrDiscard(logger),
		Hooks:  observability.BackendOrNoop(hooks),
	}
}

// Name returns "native".
func (n *Native) Name() string { return BackendNative }

// Dimensions decodes only the image header.
func (n *Native) Dimensions(ctx context.Context, path string) (d Dimensions, err error) {
	defer n.observe(ctx, "identify", path, time.Now(), &err)

	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, errors.Wrap(errors.ErrCodeBackendExecution, err, "open %s", path)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, errors.Wrap(errors.ErrCodeBackendParse, err, "read dimensions of %s", path)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, errors.New(errors.ErrCodeBackendParse, "invalid dimensions %dx%d in %s", cfg.Width, cfg.Height, path)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// Resize stretches the image to exactly width x height.
func (n *Native) Resize(ctx context.Context, path string, width, height int) (err error) {
	defer n.observe(ctx, "resize", path, time.Now(), &err)

	img, err := n.open(ctx, path)
	if err != nil {
		return err
	}
	n.Logger.Debug("resize", "path", path, "from", img.Bounds().Size(), "width", width, "height", height)
	return n.save(imaging.Resize(img, width, height, n.Filter), path)
}

// Shear takes the same calibrated angle as the gm backend and displaces each
// column downward by the height gm's shear produces for it, which is
// tan(angle - geometry.BackendShearOffset) times the column's x offset.
func (n *Native) Shear(ctx context.Context, path string, angle float64) (err error) {
	defer n.observe(ctx, "shear", path, time.Now(), &err)

	img, err := n.open(ctx, path)
	if err != nil {
		return err
	}
	effective := angle - geometry.BackendShearOffset
	n.Logger.Debug("shear", "path", path, "angle", angle, "effective", effective)
	return n.save(shearY(img, effective), path)
}

func (n *Native) open(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendExecution, err, "decode %s", path)
	}
	return img, nil
}

func (n *Native) save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrap(errors.ErrCodeBackendExecution, err, "encode %s", path)
	}
	return nil
}

func (n *Native) observe(ctx context.Context, op, path string, start time.Time, err *error) {
	n.Hooks.OnBackendCall(ctx, n.Name(), op, path, time.Since(start), *err)
}

// shearY returns src sheared along the y axis on a transparent canvas of
// width w and height h + round(|tan(angle)| * w).
func shearY(src image.Image, angle float64) *image.NRGBA {
	b := src.Bounds()
	t := math.Tan(angle * math.Pi / 180)
	dy := int(math.Round(math.Abs(t) * float64(b.Dx())))
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+dy))

	offset := 0.0
	if t < 0 {
		offset = float64(dy)
	}
	mx, my := float64(b.Min.X), float64(b.Min.Y)
	s2d := f64.Aff3{
		1, 0, -mx,
		t, 1, offset - t*mx - my,
	}
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}

var _ Backend = (*Native)(nil)
