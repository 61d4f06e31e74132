package expr

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drake/clocklet/host"
	"github.com/drake/clocklet/internal/fakehost"
	"github.com/drake/clocklet/layout"
	"github.com/drake/clocklet/timefmt"
)

// testCase represents a single expression case from JSON
type testCase struct {
	Name  string  `json:"name"`
	Expr  string  `json:"expr"`
	Self  string  `json:"self,omitempty"`
	Want  float64 `json:"want"`
	Error bool    `json:"error,omitempty"`
}

type testDataFile struct {
	Tests []testCase `json:"tests"`
}

var testNow = time.Date(2024, time.January, 15, 15, 7, 0, 0, time.Local)

// setupTest creates an evaluator over a fake host and a fixed clock
func setupTest(t *testing.T) (*Evaluator, *fakehost.Host) {
	t.Helper()
	h := fakehost.New()
	e := New(h, timefmt.New(timefmt.Fixed(testNow)))
	t.Cleanup(e.Close)
	return e, h
}

func testLayout() *layout.Layout {
	return &layout.Layout{
		Fonts: map[string]string{
			"large": "Big/75",
			"small": "Small/20",
		},
		Fields: []layout.Field{
			{Name: "clock", Format: "%H:%M", X: layout.Literal(0), Y: layout.Literal(0), Font: "large"},
			{Name: "day", Format: "%a", X: layout.Expression("clock.width"), Y: layout.Literal(5), Font: "small"},
		},
	}
}

func loadTestData(t *testing.T, filename string) testDataFile {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("Failed to read test data %s: %v", filename, err)
	}

	var testData testDataFile
	if err := json.Unmarshal(data, &testData); err != nil {
		t.Fatalf("Failed to parse test data %s: %v", filename, err)
	}
	return testData
}

func TestExpressions(t *testing.T) {
	files, err := os.ReadDir("testdata")
	if err != nil {
		t.Fatalf("Failed to read testdata directory: %v", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), "_tests.json") {
			continue
		}
		feature := strings.TrimSuffix(file.Name(), "_tests.json")
		t.Run(feature, func(t *testing.T) {
			for _, tt := range loadTestData(t, file.Name()).Tests {
				t.Run(tt.Name, func(t *testing.T) {
					e, h := setupTest(t)
					l := testLayout()

					var self *layout.Field
					if tt.Self != "" {
						self, _ = l.Field(tt.Self)
					}

					got, err := e.Eval(context.Background(), tt.Expr, self, l)
					if tt.Error {
						var ee *EvaluationError
						if !errors.As(err, &ee) {
							t.Fatalf("Eval(%q) = %v, %v; want *EvaluationError", tt.Expr, got, err)
						}
						return
					}
					if err != nil {
						t.Fatalf("Eval(%q) error: %v", tt.Expr, err)
					}
					if got != tt.Want {
						t.Errorf("Eval(%q) = %v, want %v", tt.Expr, got, tt.Want)
					}
					if n := h.OpenFonts(); n != 0 {
						t.Errorf("%d fonts left open", n)
					}
				})
			}
		})
	}
}

func TestResolveLiteralIsIdentity(t *testing.T) {
	e, h := setupTest(t)
	l := testLayout()

	for _, v := range []float64{0, 1, -1, 0.5, 290, -1e9, 1e300, math.SmallestNonzeroFloat64} {
		got, err := e.Resolve(context.Background(), layout.Literal(v), &l.Fields[0], l)
		if err != nil {
			t.Fatalf("Resolve(%v) error: %v", v, err)
		}
		if got != v {
			t.Errorf("Resolve(%v) = %v", v, got)
		}
	}
	if len(h.Calls) != 0 {
		t.Errorf("literal resolution touched the host: %v", h.Calls)
	}
}

func TestResolveDependentField(t *testing.T) {
	e, h := setupTest(t)
	h.Metrics = func(font, text string) (int, int) {
		if font == "F" && strings.TrimSpace(text) == "3:07" {
			return 50, 30
		}
		return 0, 0
	}

	l := &layout.Layout{Fields: []layout.Field{
		{Name: "A", Format: "%l:%M", X: layout.Literal(0), Y: layout.Literal(0), Font: "F"},
		{Name: "B", Format: "%a", X: layout.Expression("width_of(A.font, get_time('%l:%M'))"), Y: layout.Literal(5), Font: "F"},
	}}

	x, err := e.Resolve(context.Background(), l.Fields[1].X, &l.Fields[1], l)
	if err != nil {
		t.Fatal(err)
	}
	if x != 50 {
		t.Errorf("B.x = %v, want 50", x)
	}
}

func TestEvalWrapsHostError(t *testing.T) {
	e, h := setupTest(t)
	h.Fail["text_size"] = errors.New("font server gone")

	_, err := e.Eval(context.Background(), "text_width(large, 'x')", nil, testLayout())

	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *EvaluationError", err)
	}
	var de *host.DrawError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want wrapped *host.DrawError", err)
	}
	if h.OpenFonts() != 0 {
		t.Error("font leaked on failing measurement")
	}
}

func TestEvalRecoversAfterError(t *testing.T) {
	e, _ := setupTest(t)
	l := testLayout()

	if _, err := e.Eval(context.Background(), "text_width(large)", nil, l); err == nil {
		t.Fatal("expected error")
	}
	top := e.L.GetTop()
	got, err := e.Eval(context.Background(), "clock.width", nil, l)
	if err != nil || got != 50 {
		t.Fatalf("Eval after error = %v, %v", got, err)
	}
	if e.L.GetTop() != top {
		t.Errorf("stack grew from %d to %d", top, e.L.GetTop())
	}
}

func TestEvalCanceledContext(t *testing.T) {
	e, _ := setupTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Eval(ctx, "1 + 1", nil, testLayout())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRebindOnLayoutChange(t *testing.T) {
	e, _ := setupTest(t)
	first := testLayout()
	if _, err := e.Eval(context.Background(), "clock.width", nil, first); err != nil {
		t.Fatal(err)
	}

	second := &layout.Layout{
		Fonts:  map[string]string{"tiny": "Tiny/8"},
		Fields: []layout.Field{{Name: "year", Format: "%Y", Font: "tiny"}},
	}
	got, err := e.Eval(context.Background(), "year.width", nil, second)
	if err != nil || got != 40 {
		t.Fatalf("year.width = %v, %v", got, err)
	}
	if _, err := e.Eval(context.Background(), "clock.width", nil, second); err == nil {
		t.Error("names of the previous layout are still visible")
	}
}

func TestBindRejectsShadowing(t *testing.T) {
	e, _ := setupTest(t)
	l := &layout.Layout{
		Fonts:  map[string]string{"get_time": "F/1"},
		Fields: []layout.Field{{Format: "%Y", Font: "get_time"}},
	}
	if err := e.Check("1", l); err == nil {
		t.Error("font named get_time should be rejected")
	}

	l = &layout.Layout{
		Fonts: map[string]string{"big": "F/1"},
		Fields: []layout.Field{
			{Name: "big", Format: "%Y", Font: "big"},
		},
	}
	if err := e.Check("1", l); err == nil {
		t.Error("field named like a font should be rejected")
	}
}

func TestCheck(t *testing.T) {
	e, h := setupTest(t)
	l := testLayout()

	if err := e.Check("clock.width + text_height(small, get_time('%a'))", l); err != nil {
		t.Errorf("Check valid expression: %v", err)
	}
	if err := e.Check("nosuch + 1", l); err == nil {
		t.Error("Check accepted an unknown name")
	}
	if len(h.Calls) != 0 {
		t.Errorf("Check ran the expression: %v", h.Calls)
	}
}

func TestLayoutCheck(t *testing.T) {
	e, _ := setupTest(t)
	l := testLayout()
	l.Fields = append(l.Fields,
		layout.Field{Name: "clock", Format: "%Y", Font: "small"},
		layout.Field{Format: "%p", X: layout.Expression("1 +"), Y: layout.Expression("y_pos"), Font: ""},
	)

	err := layout.Check(l, e)
	if err == nil {
		t.Fatal("expected problems")
	}
	for _, want := range []string{"already used", "no font", "x:", "y:"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Check error missing %q:\n%v", want, err)
		}
	}
}
