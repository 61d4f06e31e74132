// Package timefmt renders the current time with strftime patterns.
package timefmt

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lestrrat-go/strftime"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// System is the local wall clock.
var System Clock = ClockFunc(time.Now)

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Formatter formats "now" with strftime patterns. Results are never cached,
// only the compiled patterns are.
type Formatter struct {
	clock    Clock
	patterns *lru.Cache[string, *strftime.Strftime]
}

// New creates a Formatter reading time from clock (System when nil).
func New(clock Clock) *Formatter {
	if clock == nil {
		clock = System
	}
	cache, _ := lru.New[string, *strftime.Strftime](64)
	return &Formatter{clock: clock, patterns: cache}
}

// Format renders the current local time with pattern.
func (f *Formatter) Format(pattern string) (string, error) {
	p, err := f.compile(pattern)
	if err != nil {
		return "", err
	}
	return p.FormatString(f.clock.Now().Local()), nil
}

func (f *Formatter) compile(pattern string) (*strftime.Strftime, error) {
	if p, ok := f.patterns.Get(pattern); ok {
		return p, nil
	}
	p, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("time format %q: %w", pattern, err)
	}
	f.patterns.Add(pattern, p)
	return p, nil
}
