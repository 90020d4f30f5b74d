package mesh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/chazu/printprep/pkg/mesh"
	"github.com/chazu/printprep/pkg/mesh/meshtest"
)

func TestCuboidDerivedProperties(t *testing.T) {
	m := meshtest.Cuboid(mesh.Vec3{}, mesh.Vec3{X: 10, Y: 20, Z: 5})

	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 12, m.FaceCount())
	assert.InDelta(t, 1000.0, m.Volume(), 1e-9)
	assert.InDelta(t, 700.0, m.SurfaceArea(), 1e-9) // 2*(10*20 + 10*5 + 20*5)

	b := m.Bounds()
	assert.Equal(t, mesh.Vec3{}, b.Min)
	assert.Equal(t, mesh.Vec3{X: 10, Y: 20, Z: 5}, b.Max)
	assert.InDelta(t, 20.0, b.MaxExtent(), 1e-12)
	assert.InDelta(t, 5.0, b.MinExtent(), 1e-12)

	c := m.Centroid()
	assert.InDelta(t, 5.0, c.X, 1e-9)
	assert.InDelta(t, 10.0, c.Y, 1e-9)
	assert.InDelta(t, 2.5, c.Z, 1e-9)
}

func TestEmptyMeshProperties(t *testing.T) {
	m := &mesh.Mesh{}

	assert.True(t, m.IsEmpty())
	assert.Equal(t, 0, m.VertexCount())
	assert.Equal(t, 0, m.FaceCount())
	assert.Equal(t, mesh.Bounds{}, m.Bounds())
	assert.Zero(t, m.Volume())
	assert.Zero(t, m.SurfaceArea())
	assert.Equal(t, mesh.Vec3{}, m.Centroid())
	assert.False(t, m.IsWatertight())
	assert.Equal(t, 0, m.BodyCount())
}

func TestInvertedWindingFlipsVolumeSign(t *testing.T) {
	m := meshtest.Cube(10)
	inv := meshtest.Inverted(m)

	assert.InDelta(t, 1000.0, m.Volume(), 1e-9)
	assert.InDelta(t, -1000.0, inv.Volume(), 1e-9)
}

func TestCentroidFallsBackToVertexMean(t *testing.T) {
	m := meshtest.Degenerate()

	c := m.Centroid()
	assert.InDelta(t, 1.0, c.X, 1e-12)
	assert.Zero(t, c.Y)
	assert.Zero(t, c.Z)
}

func TestCloneIsIndependent(t *testing.T) {
	m := meshtest.Cube(10)
	c := m.Clone()

	c.Vertices[0] = mesh.Vec3{X: 99}
	c.Faces[0] = mesh.Face{1, 2, 3}

	assert.Equal(t, mesh.Vec3{}, m.Vertices[0])
	assert.Equal(t, mesh.Face{0, 3, 2}, m.Faces[0])
}

func TestTranslateAndScaleUniform(t *testing.T) {
	m := meshtest.Cube(10)

	m.Translate(mesh.Vec3{X: 1, Y: 2, Z: 3})
	b := m.Bounds()
	assert.Equal(t, mesh.Vec3{X: 1, Y: 2, Z: 3}, b.Min)

	m.ScaleUniform(2)
	b = m.Bounds()
	assert.Equal(t, mesh.Vec3{X: 2, Y: 4, Z: 6}, b.Min)
	assert.Equal(t, mesh.Vec3{X: 22, Y: 24, Z: 26}, b.Max)
}

func TestConcatReindexesFaces(t *testing.T) {
	m := meshtest.TwoBodies(10, 5, 2)

	require.Equal(t, 16, m.VertexCount())
	require.Equal(t, 24, m.FaceCount())
	assert.True(t, m.IsWatertight(), "two disjoint closed bodies are still watertight")
	assert.Equal(t, 2, m.BodyCount())
	assert.InDelta(t, 1000.0+125.0, m.Volume(), 1e-9)
}

func TestFaceNormalAndArea(t *testing.T) {
	m := meshtest.Cube(10)

	// Face 2 is on the top (+Z) plane.
	n := m.FaceNormal(2)
	assert.InDelta(t, 0.0, n.X, 1e-12)
	assert.InDelta(t, 0.0, n.Y, 1e-12)
	assert.InDelta(t, 1.0, n.Z, 1e-12)
	assert.InDelta(t, 50.0, m.FaceArea(2), 1e-9)

	d := meshtest.Degenerate()
	assert.Equal(t, mesh.Vec3{}, d.FaceNormal(0))
	assert.Zero(t, d.FaceArea(0))
}

// Volume of an axis-aligned box equals the product of its extents, and
// uniform scaling by f multiplies the volume by f cubed.
func TestProperty_CuboidVolumeScales(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dx := rapid.Float64Range(0.1, 100).Draw(rt, "dx")
		dy := rapid.Float64Range(0.1, 100).Draw(rt, "dy")
		dz := rapid.Float64Range(0.1, 100).Draw(rt, "dz")
		f := rapid.Float64Range(0.1, 10).Draw(rt, "f")

		m := meshtest.Cuboid(mesh.Vec3{}, mesh.Vec3{X: dx, Y: dy, Z: dz})
		want := dx * dy * dz
		assert.InEpsilon(rt, want, m.Volume(), 1e-9)

		m.ScaleUniform(f)
		assert.InEpsilon(rt, want*f*f*f, m.Volume(), 1e-9)
	})
}
