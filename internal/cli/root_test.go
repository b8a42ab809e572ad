package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/raster"
)

// textBackend stores an image's size as "WxH" text inside the file itself,
// so it needs no shared state. A file containing "broken" cannot be read.
type textBackend struct{}

func (textBackend) Name() string { return "text" }

func (textBackend) Dimensions(_ context.Context, path string) (raster.Dimensions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return raster.Dimensions{}, errors.Wrap(errors.ErrCodeBackendExecution, err, "read %s", path)
	}
	return raster.ParseGeometryReport("Geometry: " + strings.TrimSpace(string(data)))
}

func (textBackend) Resize(_ context.Context, path string, w, h int) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%dx%d", w, h)), 0o644)
}

func (b textBackend) Shear(ctx context.Context, path string, angle float64) error {
	d, err := b.Dimensions(ctx, path)
	if err != nil {
		return err
	}
	// Lands exactly on the nominal angle, like a perfectly calibrated tool.
	grow := int(math.Round(math.Tan((angle-5)*math.Pi/180) * float64(d.Width)))
	return os.WriteFile(path, []byte(fmt.Sprintf("%dx%d", d.Width, d.Height+grow)), 0o644)
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, factory BackendFactory, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, errOut bytes.Buffer
	c := New(&out, &errOut)
	if factory != nil {
		c.newBackend = factory
	}
	root := c.RootCommand()
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func textFactory(string, raster.Config) (raster.Backend, error) {
	return textBackend{}, nil
}

func writeText(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRootSingleFileSuccess(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tile.png")
	out := filepath.Join(dir, "tile-iso.png")
	writeText(t, in, "300x200")

	stdout, stderr, err := runCLI(t, textFactory, in, out)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "Success!") || !strings.Contains(stdout, out) {
		t.Errorf("stdout = %q, want success line for %s", stdout, out)
	}
	if stderr != "" {
		t.Errorf("non-verbose run wrote to stderr: %q", stderr)
	}

	data, _ := os.ReadFile(out)
	if string(data) != "200x315" {
		t.Errorf("output = %q, want 200x315", data)
	}
	if data, _ := os.ReadFile(in); string(data) != "300x200" {
		t.Errorf("input modified: %q", data)
	}
}

func TestRootVerboseLogs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tile.png")
	writeText(t, in, "300x200")

	_, quiet, err := runCLI(t, textFactory, in, filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatal(err)
	}
	_, verbose, err := runCLI(t, textFactory, in, filepath.Join(dir, "b.png"), `{"verbose": true}`)
	if err != nil {
		t.Fatal(err)
	}

	if quiet != "" {
		t.Errorf("quiet stderr = %q", quiet)
	}
	if !strings.Contains(verbose, "Converting") {
		t.Errorf("verbose stderr = %q, want conversion logs", verbose)
	}

	// Verbosity never changes what is written.
	a, _ := os.ReadFile(filepath.Join(dir, "a.png"))
	b, _ := os.ReadFile(filepath.Join(dir, "b.png"))
	if !bytes.Equal(a, b) {
		t.Errorf("outputs differ: %q vs %q", a, b)
	}
}

func TestRootDirectory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	writeText(t, filepath.Join(in, "a.png"), "300x200")
	writeText(t, filepath.Join(in, "b.png"), "broken")
	// Targets of at least 100px keep the rounded margin above zero.
	writeText(t, filepath.Join(in, "c.png"), "450x300")

	stdout, _, err := runCLI(t, textFactory, in, out, "--concurrency", "2")
	if err != nil {
		t.Fatalf("directory run should not fail: %v", err)
	}

	if got := strings.Count(stdout, "Success!"); got != 2 {
		t.Errorf("success lines = %d, want 2:\n%s", got, stdout)
	}
	if got := strings.Count(stdout, "Failed!"); got != 1 {
		t.Errorf("failed lines = %d, want 1:\n%s", got, stdout)
	}
	if !strings.Contains(stdout, "2 converted") {
		t.Errorf("missing summary:\n%s", stdout)
	}
	if data, err := os.ReadFile(filepath.Join(out, "c.png")); err != nil || string(data) != "300x473" {
		t.Errorf("c.png = %q, %v; want 300x473", data, err)
	}
}

func TestRootOutputIsFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	writeText(t, filepath.Join(in, "a.png"), "300x200")
	out := filepath.Join(dir, "out.png")
	writeText(t, out, "occupied")

	stdout, _, err := runCLI(t, textFactory, in, out)
	if !errors.Is(err, errors.ErrCodeInvalidOutput) {
		t.Fatalf("error = %v, want INVALID_OUTPUT", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing", stdout)
	}
	if data, _ := os.ReadFile(out); string(data) != "occupied" {
		t.Errorf("output file changed: %q", data)
	}
}

func TestRootMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runCLI(t, textFactory, filepath.Join(dir, "nope.png"), filepath.Join(dir, "out.png"))
	if !errors.Is(err, errors.ErrCodeInputNotFound) {
		t.Fatalf("error = %v, want INPUT_NOT_FOUND", err)
	}
}

func TestRootSingleFileBackendFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tile.png")
	writeText(t, in, "broken")

	_, _, err := runCLI(t, textFactory, in, filepath.Join(dir, "out.png"))
	if !errors.Is(err, errors.ErrCodeBackendParse) {
		t.Fatalf("error = %v, want BACKEND_PARSE", err)
	}
}

func TestRootArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"one arg", []string{"in.png"}},
		{"four args", []string{"in.png", "out.png", "{}", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := runCLI(t, textFactory, tt.args...); err == nil {
				t.Errorf("args %v: expected error", tt.args)
			}
		})
	}
}

func TestRootInvalidOptions(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tile.png")
	writeText(t, in, "300x200")
	out := filepath.Join(dir, "out.png")

	_, _, err := runCLI(t, textFactory, in, out, `{"verbose": `)
	if !errors.Is(err, errors.ErrCodeInvalidOptions) {
		t.Fatalf("error = %v, want INVALID_OPTIONS", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written despite invalid options")
	}
}

func TestRootBackendSelection(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tile.png")
	writeText(t, in, "300x200")

	var got raster.Config
	var gotName string
	factory := func(name string, cfg raster.Config) (raster.Backend, error) {
		gotName, got = name, cfg
		return textBackend{}, nil
	}

	_, _, err := runCLI(t, factory, in, filepath.Join(dir, "out.png"),
		`{"backend": "native", "gm_binary": "/opt/gm/bin/gm"}`)
	if err != nil {
		t.Fatal(err)
	}
	if gotName != raster.BackendNative {
		t.Errorf("backend = %q, want native", gotName)
	}
	if got.GMBinary != "/opt/gm/bin/gm" {
		t.Errorf("GMBinary = %q", got.GMBinary)
	}
	if got.Logger == nil || got.Hooks == nil {
		t.Error("backend should receive the run logger and hooks")
	}
}

// writePNG writes an opaque w x h PNG.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRootNativeBackend(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tile.png")
	out := filepath.Join(dir, "tile-iso.png")
	writePNG(t, in, 300, 200)

	stdout, _, err := runCLI(t, nil, in, out, `{"backend": "native"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "Success!") {
		t.Errorf("stdout = %q, want success", stdout)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 200 || cfg.Height != 315 {
		t.Errorf("output = %dx%d, want 200x315", cfg.Width, cfg.Height)
	}
}

func TestRootVersion(t *testing.T) {
	stdout, _, err := runCLI(t, nil, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "version") {
		t.Errorf("version output = %q", stdout)
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := runCLI(t, nil, "completion", shell)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(stdout, appName) {
				t.Errorf("%s completion does not mention %s", shell, appName)
			}
		})
	}

	if _, _, err := runCLI(t, nil, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestExecuteExitCodes(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	emptyDir := filepath.Join(dir, "empty")
	if err := os.Mkdir(emptyDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		args       []string
		want       int
		wantBanner bool
	}{
		{
			name: "success",
			ctx:  context.Background(),
			args: []string{"plan", "300x200"},
			want: ExitOK,
		},
		{
			name:       "failure",
			ctx:        context.Background(),
			args:       []string{filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png")},
			want:       ExitFailure,
			wantBanner: true,
		},
		{
			// The directory run itself returns nil; the interrupt still wins.
			name: "interrupted run without error",
			ctx:  cancelled,
			args: []string{emptyDir, filepath.Join(dir, "out")},
			want: ExitInterrupted,
		},
		{
			name: "interrupted run with error",
			ctx:  cancelled,
			args: []string{filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png")},
			want: ExitInterrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := Execute(tt.ctx, tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("Execute(%v) = %d, want %d (stderr %q)", tt.args, got, tt.want, stderr.String())
			}
			if banner := strings.Contains(stderr.String(), "Failed!"); banner != tt.wantBanner {
				t.Errorf("failure banner = %v, want %v: %q", banner, tt.wantBanner, stderr.String())
			}
		})
	}
}
