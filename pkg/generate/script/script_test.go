package script

import (
	"context"
	"testing"
	"time"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalPrimitives(t *testing.T) {
	cases := []struct {
		name       string
		source     string
		dx, dy, dz float64
	}{
		{"box", "(box 10 20 5)", 10, 20, 5},
		{"sphere", "(sphere 5)", 10, 10, 10},
		{"cylinder", "(cylinder 20 5)", 10, 10, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := eval(tc.source)
			require.NoError(t, err)

			bb := s.BoundingBox()
			assert.InDelta(t, tc.dx, bb.Max.X-bb.Min.X, 1e-6)
			assert.InDelta(t, tc.dy, bb.Max.Y-bb.Min.Y, 1e-6)
			assert.InDelta(t, tc.dz, bb.Max.Z-bb.Min.Z, 1e-6)
		})
	}
}

func TestEvalTranslate(t *testing.T) {
	s, err := eval("(translate (box 10 10 10) 5 0 0)")
	require.NoError(t, err)

	bb := s.BoundingBox()
	assert.InDelta(t, 0, bb.Min.X, 1e-6)
	assert.InDelta(t, 10, bb.Max.X, 1e-6)
}

func TestEvalRotate(t *testing.T) {
	// A quarter turn about Z swaps the X and Y extents.
	s, err := eval("(rotate (box 10 20 5) 0 0 90)")
	require.NoError(t, err)

	bb := s.BoundingBox()
	assert.InDelta(t, 20, bb.Max.X-bb.Min.X, 1e-6)
	assert.InDelta(t, 10, bb.Max.Y-bb.Min.Y, 1e-6)
}

func TestEvalBooleans(t *testing.T) {
	s, err := eval("(difference (box 20 20 20) (sphere 8))")
	require.NoError(t, err)
	bb := s.BoundingBox()
	assert.InDelta(t, 20, bb.Max.X-bb.Min.X, 1e-6)

	s, err = eval("(union (box 10 10 10) (translate (box 10 10 10) 10 0 0))")
	require.NoError(t, err)
	bb = s.BoundingBox()
	assert.InDelta(t, 20, bb.Max.X-bb.Min.X, 1e-6)

	// The intersection bounding box is conservative, so probe the
	// distance field instead of the box.
	s, err = eval("(intersect (box 10 10 10) (translate (box 10 10 10) 5 0 0))")
	require.NoError(t, err)
	assert.Negative(t, s.Evaluate(v3.Vec{X: 2.5}), "inside both boxes")
	assert.Positive(t, s.Evaluate(v3.Vec{X: -2.5}), "inside the first box only")
	assert.Positive(t, s.Evaluate(v3.Vec{X: 7.5}), "inside the second box only")
}

func TestEvalErrors(t *testing.T) {
	cases := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"wrong arity", "(box 10)", "expected 3 numeric arguments"},
		{"wrong type", `(box 10 10 "ten")`, "expected number"},
		{"not a solid", "42", "must evaluate to a solid"},
		{"intersect arity", "(intersect (box 1 1 1))", "at least 2"},
		{"translate non-solid", "(translate 5 1 2 3)", "expected solid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eval(tc.source)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}

	// Unknown functions surface as evaluation errors.
	_, err := eval("(extrude 5)")
	assert.Error(t, err)
}

func TestParseEvalError(t *testing.T) {
	cases := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 7: undefined symbol", 7, "undefined symbol"},
		{"no line info", "some generic error", 0, "some generic error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ee EvalError
			require.ErrorAs(t, parseEvalError(errString(tc.msg)), &ee)
			assert.Equal(t, tc.wantLine, ee.Line)
			assert.Equal(t, tc.wantMsg, ee.Message)
		})
	}
}

func TestEvalErrorRendering(t *testing.T) {
	assert.Equal(t, "line 5: bad form", EvalError{Line: 5, Message: "bad form"}.Error())
	assert.Equal(t, "no location", EvalError{Message: "no location"}.Error())
}

func TestGenerateRawRendersScript(t *testing.T) {
	g := &Generator{Cells: 32, Timeout: 10 * time.Second}

	m, err := g.GenerateRaw(context.Background(), "(box 20 20 20)")
	require.NoError(t, err)
	require.False(t, m.IsEmpty())
	assert.Equal(t, "script", m.Name)
	assert.InDelta(t, 20, m.Bounds().MaxExtent(), 4)
}

func TestGenerateRawEmptyScript(t *testing.T) {
	g := New()
	for _, source := range []string{"", "   "} {
		_, err := g.GenerateRaw(context.Background(), source)
		assert.Error(t, err)
	}
}

func TestGenerateRawScriptErrorSurfaces(t *testing.T) {
	g := &Generator{Cells: 32, Timeout: 10 * time.Second}
	_, err := g.GenerateRaw(context.Background(), "(box 10)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "box")
}

func TestGenerateRawTimeout(t *testing.T) {
	// The deadline has long expired by the time evaluation starts, so
	// the sandbox result is abandoned.
	g := &Generator{Cells: 32, Timeout: time.Nanosecond}
	_, err := g.GenerateRaw(context.Background(), "(box 20 20 20)")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateRawParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &Generator{Cells: 32, Timeout: 10 * time.Second}
	_, err := g.GenerateRaw(ctx, "(box 20 20 20)")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestName(t *testing.T) {
	assert.Equal(t, "script", New().Name())
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
