// Package config locates and loads the widget configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/drake/clocklet/layout"
	"github.com/drake/clocklet/rgb"
)

// FileName is the configuration file inside the widget directory.
const FileName = "config.lua"

// Dir returns the clocklet configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "clocklet")
}

// File returns the path of the configuration file in dir.
func File(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName)
}

// Display is the resolved widget configuration.
type Display struct {
	Color  rgb.Color
	Alpha  uint8
	Caps   bool
	Width  int
	Height int
	Layout layout.Layout
}

// Error reports a missing or malformed configuration key.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrMissing is wrapped by errors for required keys that are absent.
var ErrMissing = errors.New("missing")

// Loader supplies the configuration.
type Loader interface {
	Load() (*Display, error)
}

// FileLoader loads a configuration file, writing the default one first if
// the file does not exist yet.
type FileLoader struct {
	Path string
}

// Load implements Loader.
func (f FileLoader) Load() (*Display, error) {
	src, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		if err := WriteDefault(f.Path); err != nil {
			return nil, &Error{Err: err}
		}
		src = []byte(DefaultSource)
	} else if err != nil {
		return nil, &Error{Err: err}
	}
	return Parse(f.Path, src)
}

// WriteDefault writes DefaultSource to path, creating parent directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(DefaultSource), 0o644)
}

// Static is a Loader returning a fixed configuration.
type Static struct {
	Display *Display
}

// Load implements Loader.
func (s Static) Load() (*Display, error) {
	if s.Display == nil {
		return nil, &Error{Err: errors.New("no configuration")}
	}
	d := *s.Display
	return &d, nil
}
