// Package script is a backend whose prompt is a small Lisp scene
// description: primitives combined with boolean and transform
// operators, evaluated in a zygomys sandbox. The final value of the
// script must be a solid, which is then tessellated like any other
// backend output.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/printprep/pkg/generate"
	"github.com/chazu/printprep/pkg/generate/shapes"
	"github.com/chazu/printprep/pkg/mesh"
)

// Compile-time interface check.
var _ generate.RawGenerator = (*Generator)(nil)

// DefaultTimeout is the hard limit for a single script evaluation.
const DefaultTimeout = 30 * time.Second

const defaultCells = 64

// Generator evaluates scene scripts. Each call runs in a fresh sandbox
// so scripts cannot observe one another.
type Generator struct {
	// Cells is the marching cubes resolution; zero means the default.
	Cells int
	// Timeout bounds one evaluation; zero means DefaultTimeout.
	Timeout time.Duration
}

// New returns a Generator with default resolution and timeout.
func New() *Generator {
	return &Generator{Cells: defaultCells, Timeout: DefaultTimeout}
}

func (g *Generator) Name() string { return "script" }

// GenerateRaw evaluates prompt as a scene script and tessellates the
// resulting solid. Evaluation runs in its own goroutine with panic
// recovery; a script that loops forever is abandoned at the timeout.
func (g *Generator) GenerateRaw(ctx context.Context, prompt string) (*mesh.Mesh, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("empty script")
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type evalOut struct {
		solid sdf.SDF3
		err   error
	}
	ch := make(chan evalOut, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalOut{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		s, err := eval(prompt)
		ch <- evalOut{solid: s, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		m := shapes.Render(out.solid, g.cells())
		m.Name = "script"
		return m, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("script evaluation: %w", ctx.Err())
	}
}

func (g *Generator) cells() int {
	if g.Cells > 0 {
		return g.Cells
	}
	return defaultCells
}

// eval runs source in a fresh sandbox and returns its final solid.
// Sandbox mode keeps user scripts away from the filesystem and
// syscalls.
func eval(source string) (sdf.SDF3, error) {
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env)

	if err := env.LoadString(source); err != nil {
		return nil, parseEvalError(err)
	}
	val, err := env.Run()
	if err != nil {
		return nil, parseEvalError(err)
	}
	solid, ok := val.(*sexpSolid)
	if !ok {
		return nil, fmt.Errorf("script must evaluate to a solid, got %T (%s)", val, val.SexpString(nil))
	}
	return solid.s, nil
}

// EvalError is a script failure, carrying the source line when the
// sandbox reports one.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseEvalError converts a zygomys error into an EvalError, extracting
// line number information from the message when present.
func parseEvalError(err error) error {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return EvalError{Line: line, Message: strings.TrimSpace(m[2])}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return EvalError{Line: line, Message: strings.TrimSpace(m[2])}
	}

	// Fallback: no line info available.
	return EvalError{Message: strings.TrimSpace(msg)}
}

// sexpSolid carries an sdf.SDF3 through the zygomys environment.
type sexpSolid struct {
	s sdf.SDF3
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	bb := s.s.BoundingBox()
	return fmt.Sprintf("(solid %.1fx%.1fx%.1f)",
		bb.Max.X-bb.Min.X, bb.Max.Y-bb.Min.Y, bb.Max.Z-bb.Min.Z)
}

func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// registerBuiltins installs the scene vocabulary:
//
//	(box w d h) (sphere r) (cylinder h r)
//	(translate s x y z) (rotate s degx degy degz)
//	(union a b ...) (difference a b ...) (intersect a b)
func registerBuiltins(env *zygo.Zlisp) {
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		dims, err := floatArgs(name, args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := sdf.Box3D(v3.Vec{X: dims[0], Y: dims[1], Z: dims[2]}, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpSolid{s: s}, nil
	})

	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		dims, err := floatArgs(name, args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := sdf.Sphere3D(dims[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpSolid{s: s}, nil
	})

	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		dims, err := floatArgs(name, args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := sdf.Cylinder3D(dims[0], dims[1], 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpSolid{s: s}, nil
	})

	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("translate: expected a solid and 3 offsets, got %d arguments", len(args))
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		off, err := floatArgs(name, args[1:], 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		m := sdf.Translate3d(v3.Vec{X: off[0], Y: off[1], Z: off[2]})
		return &sexpSolid{s: sdf.Transform3D(s, m)}, nil
	})

	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("rotate: expected a solid and 3 angles, got %d arguments", len(args))
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		deg, err := floatArgs(name, args[1:], 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		xRad := deg[0] * math.Pi / 180.0
		yRad := deg[1] * math.Pi / 180.0
		zRad := deg[2] * math.Pi / 180.0
		m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
		return &sexpSolid{s: sdf.Transform3D(s, m)}, nil
	})

	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		solids, err := solidArgs(name, args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		acc := solids[0]
		for _, s := range solids[1:] {
			acc = sdf.Union3D(acc, s)
		}
		return &sexpSolid{s: acc}, nil
	})

	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		solids, err := solidArgs(name, args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		acc := solids[0]
		for _, s := range solids[1:] {
			acc = sdf.Difference3D(acc, s)
		}
		return &sexpSolid{s: acc}, nil
	})

	env.AddFunction("intersect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		solids, err := solidArgs(name, args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(solids) != 2 {
			return zygo.SexpNull, fmt.Errorf("intersect: expected exactly 2 solids, got %d", len(solids))
		}
		return &sexpSolid{s: sdf.Intersect3D(solids[0], solids[1])}, nil
	})
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (sdf.SDF3, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.s, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func floatArgs(name string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s: expected %d numeric arguments, got %d", name, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

func solidArgs(name string, args []zygo.Sexp, min int) ([]sdf.SDF3, error) {
	if len(args) < min {
		return nil, fmt.Errorf("%s: expected at least %d solids, got %d", name, min, len(args))
	}
	out := make([]sdf.SDF3, len(args))
	for i, a := range args {
		s, err := toSolid(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		out[i] = s
	}
	return out, nil
}
