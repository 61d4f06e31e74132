package layout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/drake/clocklet/host"
	"github.com/drake/clocklet/metrics"
)

// TimeSource formats the current time.
type TimeSource interface {
	Format(pattern string) (string, error)
}

// Resolver turns a Position into a coordinate for field within l.
type Resolver interface {
	Resolve(ctx context.Context, pos Position, field *Field, l *Layout) (float64, error)
}

// FieldError reports a field that could not be painted.
type FieldError struct {
	Index int
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d %s: %v", e.Index, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Painter draws a Layout onto the host's context image.
type Painter struct {
	host     host.Host
	times    TimeSource
	resolver Resolver
	logger   *log.Logger
	upper    cases.Caser
}

// NewPainter creates a Painter. A nil logger discards output.
func NewPainter(h host.Host, times TimeSource, r Resolver, logger *log.Logger) *Painter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Painter{
		host:     h,
		times:    times,
		resolver: r,
		logger:   logger,
		upper:    cases.Upper(language.Und),
	}
}

// Paint draws every field of l in declaration order. A field that fails is
// logged and skipped; the others are still drawn. The returned error joins
// one *FieldError per skipped field.
func (p *Painter) Paint(ctx context.Context, l *Layout, caps bool) error {
	var errs []error
	for i := range l.Fields {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		f := &l.Fields[i]
		if err := p.paintField(ctx, l, f, caps); err != nil {
			ferr := &FieldError{Index: i, Field: f.String(), Err: err}
			p.logger.Printf("clocklet: %v", ferr)
			errs = append(errs, ferr)
		}
	}
	return errors.Join(errs...)
}

func (p *Painter) paintField(ctx context.Context, l *Layout, f *Field, caps bool) error {
	text, err := p.times.Format(f.Format)
	if err != nil {
		return err
	}
	if caps {
		text = p.upper.String(text)
	}

	x, err := p.resolver.Resolve(ctx, f.X, f, l)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := p.resolver.Resolve(ctx, f.Y, f, l)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}

	return metrics.WithFont(p.host, l.FontID(f.Font), func(host.Font) error {
		return host.Wrap("text_draw", p.host.DrawText(round(x), round(y), text))
	})
}

func round(v float64) int {
	return int(math.Round(v))
}
