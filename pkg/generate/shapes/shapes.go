// Package shapes is a parametric backend that renders a small
// vocabulary of primitive solids through an SDF kernel. It gives the
// pipeline a deterministic local mesh source where a neural backend
// would need a GPU service.
package shapes

import (
	"context"
	"fmt"
	"strings"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/printprep/pkg/generate"
	"github.com/chazu/printprep/pkg/mesh"
)

// Compile-time interface check.
var _ generate.RawGenerator = (*Generator)(nil)

// defaultCells controls marching cubes tessellation resolution.
const defaultCells = 64

// Generator renders the solid named by the first word of the prompt:
// box, cube, sphere or cylinder.
type Generator struct {
	// SizeMm is the nominal extent of generated shapes.
	SizeMm float64
	// Cells is the marching cubes resolution; zero means the default.
	Cells int
}

// New returns a Generator with the given nominal size. A non-positive
// size falls back to 50mm.
func New(sizeMm float64) *Generator {
	if sizeMm <= 0 {
		sizeMm = 50
	}
	return &Generator{SizeMm: sizeMm, Cells: defaultCells}
}

func (g *Generator) Name() string { return "shapes" }

// GenerateRaw builds the named solid and tessellates it. The output is
// welded into indexed form but carries no watertightness guarantee;
// downstream repair and validation deal with tessellator artifacts.
func (g *Generator) GenerateRaw(ctx context.Context, prompt string) (*mesh.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var shape string
	if fields := strings.Fields(strings.ToLower(prompt)); len(fields) > 0 {
		shape = fields[0]
	}

	s, err := g.solidFor(shape)
	if err != nil {
		return nil, err
	}

	m := Render(s, g.cells())
	m.Name = shape
	return m, nil
}

func (g *Generator) cells() int {
	if g.Cells > 0 {
		return g.Cells
	}
	return defaultCells
}

func (g *Generator) solidFor(shape string) (sdf.SDF3, error) {
	size := g.SizeMm
	switch shape {
	case "box":
		// 1:2:0.5 aspect with the longest edge at size.
		return sdf.Box3D(v3.Vec{X: size / 2, Y: size, Z: size / 4}, 0)
	case "cube":
		return sdf.Box3D(v3.Vec{X: size, Y: size, Z: size}, 0)
	case "sphere":
		return sdf.Sphere3D(size / 2)
	case "cylinder":
		return sdf.Cylinder3D(size, size/4, 0)
	default:
		return nil, fmt.Errorf("unknown shape %q: supported shapes are box, cube, sphere, cylinder", shape)
	}
}

// Render tessellates s with marching cubes and welds the triangle soup
// into an indexed mesh, so downstream topology checks see shared edges.
func Render(s sdf.SDF3, cells int) *mesh.Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	m := &mesh.Mesh{}
	seen := make(map[[3]float32]int, len(triangles))
	for _, tri := range triangles {
		var face mesh.Face
		for j := 0; j < 3; j++ {
			v := tri[j]
			key := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
			idx, ok := seen[key]
			if !ok {
				idx = len(m.Vertices)
				m.Vertices = append(m.Vertices, mesh.Vec3{
					X: float64(key[0]),
					Y: float64(key[1]),
					Z: float64(key[2]),
				})
				seen[key] = idx
			}
			face[j] = idx
		}
		// Welding collapses tessellator slivers into faces with a
		// repeated corner; drop those.
		if face[0] == face[1] || face[1] == face[2] || face[2] == face[0] {
			continue
		}
		m.Faces = append(m.Faces, face)
	}
	return m
}
