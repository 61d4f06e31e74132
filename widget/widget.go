// Package widget runs the clock's refresh cycle: on every tick it renders
// the configured layout into a fresh off-screen buffer and composites that
// buffer onto the window.
package widget

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/drake/clocklet/config"
	"github.com/drake/clocklet/expr"
	"github.com/drake/clocklet/host"
	"github.com/drake/clocklet/layout"
	"github.com/drake/clocklet/timefmt"
)

// RefreshDelay is the delay returned by every tick. It is shorter than a
// minute so a slow scheduler still catches each minute change.
const RefreshDelay = 58 * time.Second

// ErrNotReady is returned by operations that need a loaded configuration.
var ErrNotReady = errors.New("widget not ready")

// State is the refresh cycle state.
type State int32

const (
	Idle State = iota
	Rendering
	Composited
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case Composited:
		return "composited"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats is a snapshot of widget activity.
type Stats struct {
	State        State
	Ticks        uint64
	FailedTicks  uint64
	FieldErrors  uint64
	Reloads      uint64
	LastTick     time.Time
	LastDuration time.Duration
	HasBuffer    bool
}

// Options configures a Widget.
type Options struct {
	Logger *log.Logger
	Clock  timefmt.Clock
}

// Widget owns the display configuration and the render buffer. Ready, Tick,
// Reload and Close must be called from a single goroutine; Stats and State
// may be called from any.
type Widget struct {
	host    host.Host
	window  host.Window
	loader  config.Loader
	logger  *log.Logger
	times   *timefmt.Formatter
	eval    *expr.Evaluator
	painter *layout.Painter

	display   *config.Display
	buffer    host.Image
	hasBuffer atomic.Bool

	// Stats (atomic for lock-free reads)
	state       atomic.Int32
	ticks       atomic.Uint64
	failedTicks atomic.Uint64
	fieldErrors atomic.Uint64
	reloads     atomic.Uint64
	lastTick    atomic.Int64 // Unix nano
	lastDur     atomic.Int64
}

// New creates a widget drawing on h and win with the configuration from
// loader. Nothing is loaded until Ready.
func New(h host.Host, win host.Window, loader config.Loader, opts Options) *Widget {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	times := timefmt.New(opts.Clock)
	eval := expr.New(h, times)
	return &Widget{
		host:    h,
		window:  win,
		loader:  loader,
		logger:  logger,
		times:   times,
		eval:    eval,
		painter: layout.NewPainter(h, times, eval, logger),
	}
}

// Ready loads the configuration and prepares the context and the window.
// A configuration error aborts startup.
func (w *Widget) Ready(ctx context.Context) error {
	d, err := w.loader.Load()
	if err != nil {
		return err
	}
	if err := w.apply(d); err != nil {
		return err
	}
	w.display = d
	w.logger.Printf("clocklet: ready %dx%d, %d fields", d.Width, d.Height, len(d.Layout.Fields))
	return nil
}

// apply sets the drawing context and shapes the window for d.
func (w *Widget) apply(d *config.Display) error {
	steps := []struct {
		op string
		fn func() error
	}{
		{"context_set_color", func() error { return w.host.SetColor(d.Color.R, d.Color.G, d.Color.B) }},
		{"context_set_alpha", func() error { return w.host.SetAlpha(d.Alpha) }},
		{"context_set_anti_alias", func() error { return w.host.SetAntiAlias(true) }},
		{"window_resize", func() error { return w.window.Resize(d.Width, d.Height) }},
		{"window_set_transparency", func() error { return w.window.SetTransparency(true) }},
		{"window_show", w.window.Show},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return host.Wrap(s.op, err)
		}
	}
	return nil
}

// Tick runs one refresh cycle and returns the delay until the next one.
// Failures are logged; the delay is RefreshDelay regardless.
func (w *Widget) Tick(ctx context.Context) time.Duration {
	start := time.Now()
	w.ticks.Add(1)

	if err := w.refresh(ctx); err != nil {
		w.failedTicks.Add(1)
		w.logger.Printf("clocklet: tick: %v", err)
	}
	w.setState(Idle)

	w.lastTick.Store(start.UnixNano())
	w.lastDur.Store(int64(time.Since(start)))
	return RefreshDelay
}

func (w *Widget) refresh(ctx context.Context) error {
	d := w.display
	if d == nil {
		return ErrNotReady
	}

	w.setState(Rendering)
	if err := w.refreshBuffer(d); err != nil {
		return err
	}

	// Field failures were already logged by the painter.
	if err := w.painter.Paint(ctx, &d.Layout, d.Caps); err != nil {
		w.fieldErrors.Add(uint64(countErrors(err)))
	}

	w.setState(Composited)
	return w.composite()
}

// refreshBuffer frees the previous buffer and makes a fresh one the context
// image. If the previous buffer cannot be freed no new one is created.
func (w *Widget) refreshBuffer(d *config.Display) error {
	if w.hasBuffer.Load() {
		if err := w.host.FreeImage(w.buffer); err != nil {
			return host.Wrap("free_image", err)
		}
		w.hasBuffer.Store(false)
	}

	img, err := w.host.CreateImage(d.Width, d.Height)
	if err != nil {
		return host.Wrap("create_image", err)
	}
	w.buffer = img
	w.hasBuffer.Store(true)

	return host.Wrap("context_set_image", w.host.SetImage(img))
}

// composite copies the buffer onto the window, alpha included, and restores
// blending afterwards. The buffer must be the context image.
func (w *Widget) composite() (err error) {
	bw, bh, err := w.host.ImageSize()
	if err != nil {
		return host.Wrap("image_get_size", err)
	}
	if err := w.host.SetImage(host.WindowImage); err != nil {
		return host.Wrap("context_set_image", err)
	}
	if err := w.host.SetBlend(false); err != nil {
		return host.Wrap("context_set_blend", err)
	}
	defer func() {
		if berr := w.host.SetBlend(true); berr != nil {
			err = errors.Join(err, host.Wrap("context_set_blend", berr))
		}
	}()

	r := image.Rect(0, 0, bw, bh)
	return host.Wrap("blend_image_onto_image", w.host.BlendImage(w.buffer, r, r))
}

// Reload loads the configuration again and applies it. On failure the
// current configuration stays active.
func (w *Widget) Reload(ctx context.Context) error {
	if w.display == nil {
		return ErrNotReady
	}
	d, err := w.loader.Load()
	if err != nil {
		w.logger.Printf("clocklet: reload: %v", err)
		return err
	}
	if err := w.apply(d); err != nil {
		w.logger.Printf("clocklet: reload: %v", err)
		// Put the window back the way the current configuration wants it.
		if rerr := w.apply(w.display); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return err
	}
	w.display = d
	w.reloads.Add(1)
	w.logger.Printf("clocklet: reloaded %dx%d, %d fields", d.Width, d.Height, len(d.Layout.Fields))
	return nil
}

// Check loads the configuration and validates its layout without touching
// the host.
func (w *Widget) Check() error {
	d, err := w.loader.Load()
	if err != nil {
		return err
	}
	return layout.Check(&d.Layout, w.eval)
}

// Close frees the render buffer and the evaluator.
func (w *Widget) Close() error {
	var err error
	if w.hasBuffer.Load() {
		err = host.Wrap("free_image", w.host.FreeImage(w.buffer))
		w.hasBuffer.Store(false)
	}
	w.eval.Close()
	return err
}

// State returns the current refresh cycle state.
func (w *Widget) State() State {
	return State(w.state.Load())
}

func (w *Widget) setState(s State) {
	w.state.Store(int32(s))
}

// Stats returns current widget statistics.
func (w *Widget) Stats() Stats {
	var last time.Time
	if ns := w.lastTick.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		State:        w.State(),
		Ticks:        w.ticks.Load(),
		FailedTicks:  w.failedTicks.Load(),
		FieldErrors:  w.fieldErrors.Load(),
		Reloads:      w.reloads.Load(),
		LastTick:     last,
		LastDuration: time.Duration(w.lastDur.Load()),
		HasBuffer:    w.hasBuffer.Load(),
	}
}

// countErrors counts the errors joined into err.
func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
