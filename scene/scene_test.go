package scene

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
)

// fakeTexture records whether it was released.
type fakeTexture struct {
	path     string
	mu       sync.Mutex
	released int
}

func (t *fakeTexture) Release() {
	t.mu.Lock()
	t.released++
	t.mu.Unlock()
}

func (t *fakeTexture) Released() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// gateLoader blocks each load until its gate is opened.
type gateLoader struct {
	mu    sync.Mutex
	gate  chan struct{}
	err   error
	made  []*fakeTexture
	calls int
}

func newGateLoader() *gateLoader {
	return &gateLoader{gate: make(chan struct{})}
}

func (l *gateLoader) Load(ctx context.Context, path string) (Texture, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	<-l.gate
	if l.err != nil {
		return nil, l.err
	}
	tex := &fakeTexture{path: path}
	l.mu.Lock()
	l.made = append(l.made, tex)
	l.mu.Unlock()
	return tex, nil
}

func (l *gateLoader) open() { close(l.gate) }

// instantLoader returns textures immediately.
func instantLoader(made *[]*fakeTexture) Loader {
	var mu sync.Mutex
	return LoaderFunc(func(ctx context.Context, path string) (Texture, error) {
		tex := &fakeTexture{path: path}
		mu.Lock()
		*made = append(*made, tex)
		mu.Unlock()
		return tex, nil
	})
}

// pollUntil polls q until at most pending requests remain.
func pollUntil(t *testing.T, q *LoadQueue, pending int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for q.Pending() > pending {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for loads, %d pending", q.Pending())
		}
		q.Poll()
		time.Sleep(time.Millisecond)
	}
}

func TestNewSceneDefaults(t *testing.T) {
	s := New(nil)
	if s.Background() != nil || s.Environment() != nil || s.Fog() != nil {
		t.Error("new scene should have no background, environment or fog")
	}
	if s.ToneMapping() != ACESFilmic || s.Exposure() != 1 || s.EnvironmentIntensity() != 1 {
		t.Errorf("unexpected defaults: %v %v %v", s.ToneMapping(), s.Exposure(), s.EnvironmentIntensity())
	}
	if !s.EnvironmentEnabled() {
		t.Error("environment should be enabled without custom backgrounds")
	}
}

func TestStaticBackgroundRestores(t *testing.T) {
	s := New(nil)
	red := isosurface.Hex(0xff0000)
	release, err := s.Attach(StaticColor(red))
	if err != nil {
		t.Fatal(err)
	}
	if bg := s.Background(); bg == nil || bg.Color != red || bg.Image != nil {
		t.Fatalf("expected red background, got %+v", bg)
	}
	if s.EnvironmentEnabled() {
		t.Error("custom background should disable the environment")
	}

	release()
	release() // idempotent
	if s.Background() != nil || !s.EnvironmentEnabled() || s.Bindings() != 0 {
		t.Error("release should restore the original scene")
	}
}

func TestGradientImage(t *testing.T) {
	top := isosurface.Color{R: 0, G: 0.1, B: 0.3}
	bottom := isosurface.Color{R: 0.3, G: 0, B: 0.2}
	img := GradientImage(top, bottom, GradientHeight)
	if img.Width != 2 || img.Height != 512 || len(img.Pix) != 1024 {
		t.Fatalf("expected 2x512 image, got %dx%d", img.Width, img.Height)
	}
	if img.At(0, 0) != top || img.At(1, 511) != bottom {
		t.Errorf("ramp endpoints %v %v", img.At(0, 0), img.At(1, 511))
	}
	if img.At(0, 100) != img.At(1, 100) {
		t.Error("columns should match")
	}

	s := New(nil)
	if _, err := s.Attach(Gradient(top, bottom)); err != nil {
		t.Fatal(err)
	}
	if bg := s.Background(); bg == nil || bg.Image == nil || bg.Image.Height != GradientHeight {
		t.Errorf("expected gradient background, got %+v", bg)
	}
}

func TestFog(t *testing.T) {
	f := DefaultFog()
	tests := []struct {
		d, want float64
	}{
		{0, 0}, {10, 0}, {30, 0.5}, {50, 1}, {500, 1},
	}
	for _, tt := range tests {
		if got := f.Factor(tt.d); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Factor(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
	if got := f.Apply(isosurface.Color{R: 1, G: 1, B: 1}, 100); got != f.Color {
		t.Errorf("full fog should return fog color, got %v", got)
	}
	mid := f.Apply(isosurface.Color{R: 1, G: 1, B: 1}, 30)
	if mid.R <= f.Color.R || mid.R >= 1 {
		t.Errorf("half fog should blend toward fog color, got %v", mid)
	}

	s := New(nil)
	release, _ := s.Attach(WithFog(f))
	if s.Fog() == nil || s.Fog().Far != 50 {
		t.Fatalf("expected fog, got %+v", s.Fog())
	}
	if !s.EnvironmentEnabled() {
		t.Error("fog is not a custom background")
	}
	release()
	if s.Fog() != nil {
		t.Error("fog should be removed on release")
	}
}

func TestCloseReleasesInReverseOrder(t *testing.T) {
	s := New(nil)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		s.Attach(BindingFunc(func(*Scene) (func(), error) {
			return func() { order = append(order, i) }, nil
		}))
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Errorf("expected release order [2 1 0], got %v", order)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if len(order) != 3 {
		t.Error("second Close released again")
	}
	if _, err := s.Attach(StaticColor(isosurface.Color{})); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestAttachFailureRollsBack(t *testing.T) {
	s := New(nil)
	boom := errors.New("boom")
	failing := BindingFunc(func(s *Scene) (func(), error) {
		s.fog = &Fog{Far: 1}
		s.exposure = 9
		return nil, boom
	})

	released := false
	tracked := BindingFunc(func(*Scene) (func(), error) {
		return func() { released = true }, nil
	})

	_, err := s.Attach(Group(StaticColor(isosurface.Color{R: 1}), tracked, failing))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !released {
		t.Error("group should release bindings that succeeded")
	}
	if s.Fog() != nil || s.Exposure() != 1 || s.Background() != nil || !s.EnvironmentEnabled() {
		t.Error("failed attach left the scene modified")
	}
	if s.Bindings() != 0 {
		t.Errorf("expected no bindings, got %d", s.Bindings())
	}
}

func TestReflectionLoadsHidden(t *testing.T) {
	var made []*fakeTexture
	q := NewLoadQueue(instantLoader(&made), nil)
	defer q.Close()
	s := New(nil)

	release, err := s.Attach(Reflection(q, "studio.jpg", DefaultReflectionIntensity))
	if err != nil {
		t.Fatal(err)
	}
	if s.Environment() != nil {
		t.Fatal("environment must not be set before Poll")
	}
	pollUntil(t, q, 0)

	if s.Environment() == nil || s.EnvironmentIntensity() != 2 {
		t.Fatalf("expected environment at intensity 2, got %v %v", s.Environment(), s.EnvironmentIntensity())
	}
	if s.Background() != nil {
		t.Error("reflection environment must stay hidden")
	}

	release()
	if s.Environment() != nil || s.EnvironmentIntensity() != 1 {
		t.Error("release should restore environment")
	}
	if made[0].Released() != 1 {
		t.Errorf("texture released %d times, want 1", made[0].Released())
	}
}

func TestHDREnvironmentToneMapping(t *testing.T) {
	var made []*fakeTexture
	q := NewLoadQueue(instantLoader(&made), nil)
	defer q.Close()
	s := New(nil)
	s.toneMapping = NoToneMapping

	release, err := s.Attach(HDREnvironment(q, "garden.hdr", EnvironmentOptions{Visible: true, Exposure: 1.5, Blur: 0.05}))
	if err != nil {
		t.Fatal(err)
	}
	if s.EnvironmentEnabled() {
		t.Error("HDR environment is a custom background even before it loads")
	}
	pollUntil(t, q, 0)

	if s.ToneMapping() != ACESFilmic || s.Exposure() != 1.5 {
		t.Errorf("expected ACES at 1.5, got %v %v", s.ToneMapping(), s.Exposure())
	}
	if bg := s.Background(); bg == nil || bg.Texture == nil || bg.Blur != 0.05 {
		t.Errorf("expected visible textured background, got %+v", bg)
	}

	release()
	if s.ToneMapping() != NoToneMapping || s.Exposure() != 1 || s.Background() != nil || !s.EnvironmentEnabled() {
		t.Error("release should restore tone mapping and background")
	}
}

func TestIsHDR(t *testing.T) {
	for path, want := range map[string]bool{
		"a.hdr": true, "b.EXR": true, "c.jpg": false, "d.png": false, "noext": false,
	} {
		if IsHDR(path) != want {
			t.Errorf("IsHDR(%q) = %v", path, !want)
		}
	}
}

func TestLoadAfterDetachIsReleased(t *testing.T) {
	l := newGateLoader()
	q := NewLoadQueue(l, nil)
	s := New(nil)

	release, err := s.Attach(Reflection(q, "late.jpg", 2))
	if err != nil {
		t.Fatal(err)
	}
	release()
	l.open()

	// The goroutine delivers after detach; Poll releases instead of applying
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if s.Environment() != nil {
		t.Error("late load must not touch the scene")
	}
	if len(l.made) != 1 || l.made[0].Released() != 1 {
		t.Errorf("late texture should be released once, made=%d", len(l.made))
	}
}

func TestPollDoesNotBlock(t *testing.T) {
	l := newGateLoader()
	q := NewLoadQueue(l, nil)
	delivered := false
	if _, err := q.Start("slow.jpg", func(Texture) { delivered = true }); err != nil {
		t.Fatal(err)
	}

	done := make(chan int)
	go func() { done <- q.Poll() }()
	select {
	case n := <-done:
		if n != 0 || delivered {
			t.Error("nothing should be delivered before the load finishes")
		}
	case <-time.After(time.Second):
		t.Fatal("Poll blocked on a pending load")
	}

	l.open()
	pollUntil(t, q, 0)
	if !delivered {
		t.Error("expected delivery after the load finished")
	}
	q.Close()
	if _, err := q.Start("x", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestLoadFailureLeavesScene(t *testing.T) {
	l := newGateLoader()
	l.err = errors.New("missing file")
	q := NewLoadQueue(l, nil)
	defer q.Close()
	s := New(nil)
	before := s.state

	if _, err := s.Attach(Reflection(q, "missing.jpg", 2)); err != nil {
		t.Fatal(err)
	}
	l.open()
	pollUntil(t, q, 0)
	if s.state != before {
		t.Error("failed load modified the scene")
	}
}

func TestWaterMaterial(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}

	m := WaterMaterial(cfg.Material, true)
	if m.IOR != 1.33 || m.Transmission != 1 || m.Clearcoat != 1 || !m.VertexColors || !m.Transparent {
		t.Errorf("unexpected water material %+v", m)
	}
	if m.Legacy() {
		t.Error("transmissive material reported legacy")
	}

	legacy := WaterMaterial(cfg.Material, false)
	if legacy.Transmission != 0 || legacy.Opacity != 0.6 || !legacy.Legacy() {
		t.Errorf("unexpected legacy material %+v", legacy)
	}
	if math.Abs(legacy.Alpha()-0.6) > 1e-12 || math.Abs(m.Alpha()-0.5) > 1e-12 {
		t.Errorf("alpha: legacy %v, water %v", legacy.Alpha(), m.Alpha())
	}
}

func TestShade(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	l := LightsFromConfig(cfg.Lights)
	if math.Abs(r3.Norm(l.Directional)-1) > 1e-12 {
		t.Fatalf("directional not normalized: %v", l.Directional)
	}
	m := WaterMaterial(cfg.Material, true)
	white := isosurface.Color{R: 1, G: 1, B: 1}

	lit := l.Shade(nil, m, l.Directional, l.Directional, white)
	away := l.Shade(nil, m, r3.Scale(-1, l.Directional), r3.Scale(-1, l.Directional), white)
	if lit.R <= away.R || lit.G <= away.G {
		t.Errorf("surface facing the light should be brighter: %v vs %v", lit, away)
	}

	s := New(nil)
	edge := r3.Vec{X: 1}
	view := r3.Vec{Z: 1}
	withEnv := l.Shade(s, m, edge, view, white)
	without := l.Shade(nil, m, edge, view, white)
	if withEnv.B < without.B {
		t.Errorf("environment should add grazing reflection: %v vs %v", withEnv, without)
	}
	for _, c := range []float32{withEnv.R, withEnv.G, withEnv.B} {
		if c < 0 || c > 1 {
			t.Errorf("shaded channel out of range: %v", c)
		}
	}
}

func TestToneMapping(t *testing.T) {
	c := isosurface.Color{R: 0.2, G: 0.5, B: 4}
	if got := NoToneMapping.Apply(c, 2); got != c {
		t.Errorf("no tone mapping changed the color: %v", got)
	}

	got := ACESFilmic.Apply(c, 1)
	if got.R >= got.G || got.G >= got.B {
		t.Errorf("tone curve should be monotonic: %v", got)
	}
	if got.B > 1 || got.R <= 0 {
		t.Errorf("tone curve out of range: %v", got)
	}
	if brighter := ACESFilmic.Apply(c, 2); brighter.R <= got.R {
		t.Errorf("higher exposure should brighten: %v vs %v", brighter.R, got.R)
	}
	if black := ACESFilmic.Apply(isosurface.Color{}, 1); black != (isosurface.Color{}) {
		t.Errorf("black should stay black, got %v", black)
	}
}
