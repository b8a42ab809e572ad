package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/raster"
)

// fakeBackend keeps image sizes in memory, keyed by path. Unknown paths
// report the size registered for their base name, or 300x200.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	state map[string]raster.Dimensions

	sources map[string]raster.Dimensions // by base name
	fail    map[string]error             // by base name, returned from Resize

	// shearAngle overrides the angle used to grow the height. Zero means the
	// shear lands exactly on the isometric target (30°).
	shearAngle float64
	delay      time.Duration

	inFlight    int
	maxInFlight int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		state:   map[string]raster.Dimensions{},
		sources: map[string]raster.Dimensions{},
		fail:    map[string]error{},
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Dimensions(_ context.Context, path string) (raster.Dimensions, error) {
	f.record("identify " + filepath.Base(path))
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.state[path]; ok {
		return d, nil
	}
	if d, ok := f.sources[filepath.Base(path)]; ok {
		return d, nil
	}
	return raster.Dimensions{Width: 300, Height: 200}, nil
}

func (f *fakeBackend) Resize(_ context.Context, path string, w, h int) error {
	f.record("resize " + filepath.Base(path) + " " + raster.Dimensions{Width: w, Height: h}.String())
	f.enter()
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[filepath.Base(path)]; ok {
		return err
	}
	f.state[path] = raster.Dimensions{Width: w, Height: h}
	return nil
}

func (f *fakeBackend) Shear(_ context.Context, path string, angle float64) error {
	f.record("shear " + filepath.Base(path) + " " + strconv.FormatFloat(angle, 'f', -1, 64))
	f.mu.Lock()
	defer f.mu.Unlock()
	a := 30.0
	if f.shearAngle != 0 {
		a = f.shearAngle
	}
	d := f.state[path]
	d.Height += int(math.Round(math.Tan(a*math.Pi/180) * float64(d.Width)))
	f.state[path] = d
	return nil
}

func (f *fakeBackend) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

func (f *fakeBackend) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

var _ raster.Backend = (*fakeBackend)(nil)

var errBackend = errors.New(errors.ErrCodeBackendExecution, "gm mogrify: corrupt image")

// writeFile creates a small placeholder input file.
func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
