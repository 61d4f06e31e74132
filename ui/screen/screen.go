// Package screen shows the widget on a tcell screen. Refreshes are scheduled
// with the timer service and handled on the presenter loop.
package screen

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/drake/clocklet/timer"
	"github.com/drake/clocklet/ui"
)

// Clock is the widget as driven by the presenter.
type Clock interface {
	Tick(ctx context.Context) time.Duration
	Reload(ctx context.Context) error
}

// Surface exposes the rendered window.
type Surface interface {
	Surface() *image.NRGBA
}

// Options configures the presenter.
type Options struct {
	TickTimeout time.Duration // per-tick deadline, 5s when zero
	Backdrop    colorful.Color
}

var (
	styleStatus = tcell.StyleDefault.Foreground(tcell.NewHexColor(0xd0d0d0))
	styleError  = tcell.StyleDefault.Foreground(tcell.NewHexColor(0xff0000))
)

// Presenter owns the screen for the lifetime of Run.
type Presenter struct {
	screen  tcell.Screen
	clock   Clock
	surface Surface
	opts    Options

	timers  *timer.Service
	fired   chan timer.Event
	pending int // timer ID of the scheduled refresh

	status    string
	statusErr bool
}

// New creates a presenter on s. s must not be initialized yet.
func New(s tcell.Screen, clock Clock, surface Surface, opts Options) *Presenter {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = 5 * time.Second
	}
	fired := make(chan timer.Event, 1)
	return &Presenter{
		screen:  s,
		clock:   clock,
		surface: surface,
		opts:    opts,
		timers:  timer.NewService(fired),
		fired:   fired,
	}
}

// Run shows the widget until the user quits or ctx is done. The widget
// must already be Ready.
func (p *Presenter) Run(ctx context.Context) error {
	if err := p.screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer p.screen.Fini()
	defer p.timers.Close()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go p.screen.ChannelEvents(events, quit)

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-p.fired:
			if ev.ID == p.pending {
				p.refresh(ctx)
			}

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if done := p.handle(ctx, ev); done {
				return nil
			}
		}
	}
}

func (p *Presenter) handle(ctx context.Context, ev tcell.Event) (quit bool) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		p.screen.Sync()
		p.draw()

	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC,
			ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return true

		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			p.refresh(ctx)

		case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
			if err := p.clock.Reload(ctx); err != nil {
				p.status, p.statusErr = fmt.Sprintf("reload failed: %v", err), true
				p.draw()
				return false
			}
			p.status, p.statusErr = "configuration reloaded", false
			p.refresh(ctx)
		}
	}
	return false
}

// refresh ticks the widget, redraws and schedules the next refresh,
// replacing any refresh already scheduled.
func (p *Presenter) refresh(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, p.opts.TickTimeout)
	delay := p.clock.Tick(tctx)
	cancel()

	p.pending = p.timers.Reschedule(p.pending, delay)
	if !p.statusErr {
		p.status = "next refresh " + time.Now().Add(delay).Format("15:04:05")
	}
	p.draw()
}

func (p *Presenter) draw() {
	p.screen.Clear()
	w, h := p.screen.Size()

	if s := p.surface.Surface(); s != nil && h > 1 {
		grid := ui.Sample(s, w, h-1, p.opts.Backdrop)
		for y, row := range grid {
			for x, c := range row {
				style := tcell.StyleDefault.
					Foreground(toTcell(c.Top)).
					Background(toTcell(c.Bottom))
				p.screen.SetContent(x, y, ui.HalfBlock, nil, style)
			}
		}
	}

	style := styleStatus
	if p.statusErr {
		style = styleError
	}
	drawText(p.screen, 0, h-1, w, runewidth.Truncate(p.status, w, "…"), style)
	p.screen.Show()
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// drawText writes s at (x, y), advancing by each rune's display width.
func drawText(s tcell.Screen, x, y, maxX int, text string, style tcell.Style) {
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if x+w > maxX {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x += w
	}
}
