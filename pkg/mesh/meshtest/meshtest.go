// Package meshtest builds small deterministic solids for tests.
// Every closed shape here is watertight by construction, so golden-rule
// assertions never depend on a tessellator.
package meshtest

import "github.com/chazu/printprep/pkg/mesh"

// cuboidFaces triangulates the 8 box corners with outward winding.
// Corner order: bottom ring 0..3 counter-clockwise from min, then the
// top ring 4..7 directly above.
var cuboidFaces = []mesh.Face{
	{0, 3, 2}, {0, 2, 1}, // bottom (-Z)
	{4, 5, 6}, {4, 6, 7}, // top (+Z)
	{0, 1, 5}, {0, 5, 4}, // front (-Y)
	{3, 7, 6}, {3, 6, 2}, // back (+Y)
	{0, 4, 7}, {0, 7, 3}, // left (-X)
	{1, 2, 6}, {1, 6, 5}, // right (+X)
}

// Cuboid returns a closed axis-aligned box spanning min..max:
// 8 vertices, 12 outward-wound triangles.
func Cuboid(min, max mesh.Vec3) *mesh.Mesh {
	vertices := []mesh.Vec3{
		{X: min.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: max.Y, Z: max.Z},
		{X: min.X, Y: max.Y, Z: max.Z},
	}
	faces := make([]mesh.Face, len(cuboidFaces))
	copy(faces, cuboidFaces)
	return &mesh.Mesh{Name: "cuboid", Vertices: vertices, Faces: faces}
}

// Cube returns a closed cube with the given edge length, with its min
// corner at the origin.
func Cube(size float64) *mesh.Mesh {
	m := Cuboid(mesh.Vec3{}, mesh.Vec3{X: size, Y: size, Z: size})
	m.Name = "cube"
	return m
}

// OpenBox returns a cuboid with its top (+Z) face removed, leaving a
// single square boundary loop of four vertices.
func OpenBox(min, max mesh.Vec3) *mesh.Mesh {
	m := Cuboid(min, max)
	m.Name = "open_box"
	m.Faces = append(m.Faces[:2], m.Faces[4:]...)
	return m
}

// TwoBodies returns a large cube and a small detached cube in one mesh,
// with the small cube shifted clear of the large one along +X.
func TwoBodies(largeSize, smallSize, gap float64) *mesh.Mesh {
	m := Cube(largeSize)
	small := Cube(smallSize)
	small.Translate(mesh.Vec3{X: largeSize + gap})
	m.Concat(small)
	m.Name = "two_bodies"
	return m
}

// Inverted returns a clone of m with every face winding reversed, so
// normals point inward and the signed volume flips negative.
func Inverted(m *mesh.Mesh) *mesh.Mesh {
	c := m.Clone()
	for i, f := range c.Faces {
		c.Faces[i] = mesh.Face{f[0], f[2], f[1]}
	}
	return c
}

// Fin returns a non-manifold mesh: three triangles radiating from a
// shared spine edge, the third wound against the other two. Its
// boundary splits into one closed loop and one chain that dead-ends,
// so hole filling can patch only part of it.
func Fin() *mesh.Mesh {
	return &mesh.Mesh{
		Name: "fin",
		Vertices: []mesh.Vec3{
			{X: 0, Y: 0, Z: 0},   // spine start
			{X: 10, Y: 0, Z: 0},  // spine end
			{X: 5, Y: 10, Z: 0},  // +Y wing
			{X: 5, Y: 0, Z: 10},  // +Z wing
			{X: 5, Y: -10, Z: 0}, // -Y wing
		},
		Faces: []mesh.Face{{0, 1, 2}, {0, 1, 3}, {1, 0, 4}},
	}
}

// Degenerate returns a mesh whose single face has zero area (three
// collinear vertices).
func Degenerate() *mesh.Mesh {
	return &mesh.Mesh{
		Name: "degenerate",
		Vertices: []mesh.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 2, Y: 0, Z: 0},
		},
		Faces: []mesh.Face{{0, 1, 2}},
	}
}
