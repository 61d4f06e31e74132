// clocklet renders a configurable clock face and shows it in the terminal
// or writes it to a PNG file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"

	"github.com/drake/clocklet/config"
	"github.com/drake/clocklet/debug"
	"github.com/drake/clocklet/host/raster"
	"github.com/drake/clocklet/rgb"
	"github.com/drake/clocklet/ui/screen"
	"github.com/drake/clocklet/ui/tui"
	"github.com/drake/clocklet/widget"
)

// fallbackFace is used for faces missing from the font directories.
const fallbackFace = "goregular"

type options struct {
	dir         string
	ui          string
	out         string
	check       bool
	tickTimeout time.Duration
	logFile     string
	backdrop    string
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", config.Dir(), "widget directory holding config.lua and fonts")
	flag.StringVar(&opts.ui, "ui", "tui", "presenter: tui, screen or png")
	flag.StringVar(&opts.out, "out", "clocklet.png", "output file for -ui png")
	flag.BoolVar(&opts.check, "check", false, "validate the configuration and exit")
	flag.DurationVar(&opts.tickTimeout, "tick-timeout", 5*time.Second, "deadline for one refresh")
	flag.StringVar(&opts.logFile, "log", "", "log file (stderr for png and -check when empty)")
	flag.StringVar(&opts.backdrop, "backdrop", "#000000", "terminal color behind transparent pixels")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "clocklet:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog, err := openLog(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	h := raster.New(raster.Options{
		FontDirs: []string{filepath.Join(opts.dir, "fonts"), opts.dir},
		Fallback: fallbackFace,
	})
	loader := config.FileLoader{Path: config.File(opts.dir)}
	w := widget.New(h, h, loader, widget.Options{Logger: logger})
	defer w.Close()

	if opts.check {
		if err := w.Check(); err != nil {
			return err
		}
		fmt.Println(loader.Path, "ok")
		return nil
	}

	if err := w.Ready(ctx); err != nil {
		return err
	}
	debug.NewMonitor(ctx, w, nil).Start()

	backdrop, err := rgb.Parse(opts.backdrop)
	if err != nil {
		return fmt.Errorf("-backdrop: %w", err)
	}

	switch opts.ui {
	case "png":
		return writePNG(ctx, w, h, opts)
	case "tui":
		return tui.Run(ctx, w, h, tui.Options{
			TickTimeout: opts.tickTimeout,
			Backdrop:    backdrop.Colorful(),
			Profile:     termenv.ColorProfile(),
		})
	case "screen":
		s, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		return screen.New(s, w, h, screen.Options{
			TickTimeout: opts.tickTimeout,
			Backdrop:    backdrop.Colorful(),
		}).Run(ctx)
	default:
		return fmt.Errorf("unknown -ui %q", opts.ui)
	}
}

// openLog returns the logger for the run. Terminal presenters own the
// terminal, so they only log to a file.
func openLog(opts options) (*log.Logger, func(), error) {
	if opts.logFile == "" {
		if opts.ui == "png" || opts.check {
			return log.New(os.Stderr, "", log.LstdFlags), func() {}, nil
		}
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }, nil
}

func writePNG(ctx context.Context, w *widget.Widget, h *raster.Host, opts options) error {
	tctx, cancel := context.WithTimeout(ctx, opts.tickTimeout)
	defer cancel()
	w.Tick(tctx)

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, h.Surface()); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}
