// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/drake/clocklet/widget"
)

// Enabled returns true if debug mode is active (CLOCKLET_DEBUG=1).
func Enabled() bool {
	return os.Getenv("CLOCKLET_DEBUG") == "1"
}

// Source supplies widget statistics.
type Source interface {
	Stats() widget.Stats
}

// Monitor periodically logs widget statistics when debug mode is enabled.
type Monitor struct {
	source   Source
	interval time.Duration
	ctx      context.Context
	logger   *log.Logger
}

// NewMonitor creates a new monitor for the given widget logging to out
// (stderr when nil). If debug mode is not enabled, returns nil.
func NewMonitor(ctx context.Context, src Source, out io.Writer) *Monitor {
	if !Enabled() {
		return nil
	}
	if out == nil {
		out = os.Stderr
	}

	return &Monitor{
		source:   src,
		interval: 5 * time.Second,
		ctx:      ctx,
		logger:   log.New(out, "", log.LstdFlags),
	}
}

// Start begins the monitoring loop in a goroutine.
func (m *Monitor) Start() {
	if m == nil {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Println("[DEBUG] Monitor started")

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Println("[DEBUG] Monitor stopped")
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	m.logger.Print(format(m.source.Stats(), time.Now()))
}

func format(s widget.Stats, now time.Time) string {
	lastTick := "never"
	if !s.LastTick.IsZero() {
		lastTick = fmt.Sprintf("%v ago", now.Sub(s.LastTick).Round(time.Second))
	}

	return fmt.Sprintf("[DEBUG] state=%s ticks=%d failed=%d fieldErrs=%d reloads=%d lastTick=%s took=%v buffer=%v goroutines=%d",
		s.State,
		s.Ticks,
		s.FailedTicks,
		s.FieldErrors,
		s.Reloads,
		lastTick,
		s.LastDuration,
		s.HasBuffer,
		runtime.NumGoroutine(),
	)
}
