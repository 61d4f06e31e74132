// Package tui shows the widget in a terminal with Bubble Tea. The model acts
// as the widget's scheduler: it ticks once at startup and then again after
// every delay the widget returns.
package tui

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

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
	Profile     termenv.Profile
	Now         func() time.Time
}

// tickMsg asks for a refresh. Only the one carrying the current generation
// is honored, so forced refreshes do not double the schedule.
type tickMsg struct {
	gen int
}

// Model is the Bubble Tea model for the clock.
type Model struct {
	ctx     context.Context
	clock   Clock
	surface Surface
	opts    Options
	keys    keyMap
	help    help.Model
	styles  Styles

	// State
	gen       int
	ticks     int
	next      time.Time
	notice    string
	noticeErr bool
	width     int
	height    int
	quitting  bool
}

// NewModel creates the model.
func NewModel(ctx context.Context, clock Clock, surface Surface, opts Options) Model {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Model{
		ctx:     ctx,
		clock:   clock,
		surface: surface,
		opts:    opts,
		keys:    defaultKeys(),
		help:    help.New(),
		styles:  DefaultStyles(),
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	gen := m.gen
	return func() tea.Msg { return tickMsg{gen: gen} }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if msg.gen != m.gen {
			return m, nil // superseded by a forced refresh
		}
		return m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		return m.tick()

	case key.Matches(msg, m.keys.Reload):
		if err := m.clock.Reload(m.ctx); err != nil {
			m.notice, m.noticeErr = fmt.Sprintf("reload failed: %v", err), true
			return m, nil
		}
		m.notice, m.noticeErr = "configuration reloaded", false
		return m.tick()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

// tick runs one refresh and schedules the next after the returned delay.
func (m Model) tick() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(m.ctx, m.opts.TickTimeout)
	delay := m.clock.Tick(ctx)
	cancel()

	m.ticks++
	m.gen++
	gen := m.gen
	m.next = m.opts.Now().Add(delay)
	return m, tea.Tick(delay, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	helpView := m.help.View(m.keys)
	rows := m.height - 1 - lipgloss.Height(helpView)

	var body string
	if s := m.surface.Surface(); s != nil && rows > 0 {
		body = Render(ui.Sample(s, m.width, rows, m.opts.Backdrop), m.opts.Profile)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusLine(), helpView)
}

func (m Model) statusLine() string {
	if m.notice != "" {
		text := runewidth.Truncate(m.notice, m.width, "…")
		if m.noticeErr {
			return m.styles.Error.Render(text)
		}
		return m.styles.Notice.Render(text)
	}
	if m.ticks == 0 {
		return m.styles.Muted.Render("starting…")
	}
	text := fmt.Sprintf("next refresh %s · %d ticks", m.next.Format("15:04:05"), m.ticks)
	return m.styles.Status.Render(runewidth.Truncate(text, m.width, "…"))
}
