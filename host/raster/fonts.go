package raster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// ErrFontNotFound is returned when no font file matches a face name and no
// fallback face is configured.
var ErrFontNotFound = errors.New("font not found")

// builtinFaces are always available by name.
var builtinFaces = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
	"gomono":    gomono.TTF,
}

var fontExts = []string{".ttf", ".otf", ".TTF", ".OTF"}

// parseFontName splits "Face/Size" into its parts.
func parseFontName(name string) (face string, size float64, err error) {
	i := strings.LastIndexByte(name, '/')
	if i <= 0 || i == len(name)-1 {
		return "", 0, fmt.Errorf("font %q: want Face/Size", name)
	}
	size, err = strconv.ParseFloat(name[i+1:], 64)
	if err != nil || size <= 0 {
		return "", 0, fmt.Errorf("font %q: bad size", name)
	}
	return name[:i], size, nil
}

// fontSet resolves face names to parsed fonts, caching the parse.
type fontSet struct {
	dirs     []string
	fallback string
	parsed   *lru.Cache[string, *opentype.Font]
}

func newFontSet(dirs []string, fallback string) *fontSet {
	cache, _ := lru.New[string, *opentype.Font](16)
	return &fontSet{dirs: dirs, fallback: fallback, parsed: cache}
}

// face opens a face for "Face/Size".
func (s *fontSet) face(name string) (font.Face, error) {
	faceName, size, err := parseFontName(name)
	if err != nil {
		return nil, err
	}
	f, err := s.lookup(faceName)
	if errors.Is(err, ErrFontNotFound) && s.fallback != "" {
		f, err = s.lookup(s.fallback)
	}
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func (s *fontSet) lookup(faceName string) (*opentype.Font, error) {
	if f, ok := s.parsed.Get(faceName); ok {
		return f, nil
	}
	data, err := s.read(faceName)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font %q: %w", faceName, err)
	}
	s.parsed.Add(faceName, f)
	return f, nil
}

func (s *fontSet) read(faceName string) ([]byte, error) {
	if data, ok := builtinFaces[strings.ToLower(faceName)]; ok {
		return data, nil
	}
	for _, dir := range s.dirs {
		for _, ext := range fontExts {
			data, err := os.ReadFile(filepath.Join(dir, faceName+ext))
			if err == nil {
				return data, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrFontNotFound, faceName)
}
