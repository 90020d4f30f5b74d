// Package repair attempts to make broken meshes watertight. Repair is
// best effort: a step that fails is logged and skipped, the remaining
// steps still run, and the result carries no watertightness guarantee.
// Callers must re-validate the returned mesh.
package repair

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/chazu/printprep/pkg/mesh"
)

// Options selects which repair steps run.
type Options struct {
	FillHoles             bool
	FixNormals            bool
	RemoveSmallComponents bool
	// MinComponentRatio is the vertex-count fraction below which a
	// disconnected body is discarded, in [0, 1].
	MinComponentRatio float64
}

// DefaultOptions enables every step and drops bodies smaller than 5% of
// the mesh's vertices.
func DefaultOptions() Options {
	return Options{
		FillHoles:             true,
		FixNormals:            true,
		RemoveSmallComponents: true,
		MinComponentRatio:     0.05,
	}
}

// Repair runs the repair steps on a copy of the mesh: fill holes, fix
// normals, remove small components. A mesh that is already watertight
// is returned unchanged, so repairing twice is the same as repairing
// once. The error return is reserved for invalid options; repair
// shortfalls are not errors.
func Repair(m *mesh.Mesh, opts Options, logger *zap.Logger) (*mesh.Mesh, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinComponentRatio < 0 || opts.MinComponentRatio > 1 {
		return nil, fmt.Errorf("min component ratio must be in [0, 1], got %.4f", opts.MinComponentRatio)
	}

	if m.IsWatertight() {
		logger.Info("mesh is already watertight, no repair needed")
		return m, nil
	}

	logger.Info("starting mesh repair",
		zap.Int("vertices", m.VertexCount()),
		zap.Int("faces", m.FaceCount()))

	out := m.Clone()

	if opts.FillHoles {
		runStep(logger, "fill holes", func() {
			fillHoles(out, logger)
		})
	}
	if opts.FixNormals {
		runStep(logger, "fix normals", func() {
			fixNormals(out, logger)
		})
	}
	if opts.RemoveSmallComponents {
		runStep(logger, "remove small components", func() {
			if out.BodyCount() > 1 {
				out = filterComponents(out, opts.MinComponentRatio, logger)
			}
		})
	}

	logger.Info("repair completed",
		zap.Int("vertices", out.VertexCount()),
		zap.Int("faces", out.FaceCount()),
		zap.Bool("watertight", out.IsWatertight()))

	return out, nil
}

// runStep executes one repair stage, turning a panic from malformed
// geometry into a logged warning so the remaining stages still run.
func runStep(logger *zap.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("repair step failed",
				zap.String("step", name),
				zap.Any("cause", r))
		}
	}()
	fn()
}

// fillHoles closes every boundary loop. A triangular hole is patched
// with a single reversed triangle; longer loops get a fan around the
// loop centroid. New faces traverse the boundary edges in reverse, so
// the patch winding matches the surrounding surface. Chains that do not
// close (non-manifold boundaries) are skipped.
func fillHoles(m *mesh.Mesh, logger *zap.Logger) {
	closed, open := m.BoundaryLoops()
	if len(open) > 0 {
		logger.Warn("skipping unclosable boundary chains", zap.Int("count", len(open)))
	}

	filled := 0
	for _, loop := range closed {
		if len(loop) < 3 {
			continue
		}
		if len(loop) == 3 {
			m.Faces = append(m.Faces, mesh.Face{loop[2], loop[1], loop[0]})
			filled++
			continue
		}

		var c mesh.Vec3
		for _, vi := range loop {
			c = c.Add(m.Vertices[vi])
		}
		c = c.Scale(1 / float64(len(loop)))
		ci := len(m.Vertices)
		m.Vertices = append(m.Vertices, c)
		for i, u := range loop {
			v := loop[(i+1)%len(loop)]
			m.Faces = append(m.Faces, mesh.Face{v, u, ci})
		}
		filled++
	}

	if filled > 0 {
		logger.Debug("filled boundary loops", zap.Int("count", filled))
	}
}

// fixNormals makes the winding consistent within each connected
// component by BFS from a seed face, flipping any face that traverses a
// shared edge in the same direction as its neighbor. A component that
// ends up consistently inside-out (negative signed volume) is flipped
// whole, so normals point outward.
func fixNormals(m *mesh.Mesh, logger *zap.Logger) {
	type edgeKey struct{ lo, hi int }
	key := func(a, b int) edgeKey {
		if a < b {
			return edgeKey{a, b}
		}
		return edgeKey{b, a}
	}

	byEdge := make(map[edgeKey][]int, len(m.Faces)*3)
	for i, f := range m.Faces {
		for k := 0; k < 3; k++ {
			e := key(f[k], f[(k+1)%3])
			byEdge[e] = append(byEdge[e], i)
		}
	}

	visited := make([]bool, len(m.Faces))
	flipped := 0
	for seed := range m.Faces {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		component := []int{seed}
		queue := []int{seed}
		for len(queue) > 0 {
			fi := queue[0]
			queue = queue[1:]
			f := m.Faces[fi]
			for k := 0; k < 3; k++ {
				a, b := f[k], f[(k+1)%3]
				for _, gi := range byEdge[key(a, b)] {
					if gi == fi || visited[gi] {
						continue
					}
					// Two consistently wound neighbors traverse their
					// shared edge in opposite directions.
					if traversesEdge(m.Faces[gi], a, b) {
						reverseFace(m, gi)
						flipped++
					}
					visited[gi] = true
					component = append(component, gi)
					queue = append(queue, gi)
				}
			}
		}

		if signedVolume(m, component) < 0 {
			for _, fi := range component {
				reverseFace(m, fi)
			}
			flipped += len(component)
		}
	}

	if flipped > 0 {
		logger.Debug("flipped faces to fix winding", zap.Int("count", flipped))
	}
}

// traversesEdge reports whether face f walks the directed edge a→b.
func traversesEdge(f mesh.Face, a, b int) bool {
	for k := 0; k < 3; k++ {
		if f[k] == a && f[(k+1)%3] == b {
			return true
		}
	}
	return false
}

func reverseFace(m *mesh.Mesh, i int) {
	f := m.Faces[i]
	m.Faces[i] = mesh.Face{f[0], f[2], f[1]}
}

// signedVolume sums the signed tetrahedra of a subset of faces.
func signedVolume(m *mesh.Mesh, faces []int) float64 {
	var v float64
	for _, fi := range faces {
		f := m.Faces[fi]
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		v += a.Dot(b.Cross(c))
	}
	return v / 6
}

// filterComponents drops disconnected bodies whose vertex count falls
// below ratio of the total, keeping at least the single largest body.
func filterComponents(m *mesh.Mesh, ratio float64, logger *zap.Logger) *mesh.Mesh {
	bodies := m.SplitBodies()
	sort.SliceStable(bodies, func(i, j int) bool {
		return bodies[i].VertexCount() > bodies[j].VertexCount()
	})

	total := 0
	for _, b := range bodies {
		total += b.VertexCount()
	}
	minVertices := int(float64(total) * ratio)

	var kept []*mesh.Mesh
	for _, b := range bodies {
		if b.VertexCount() >= minVertices {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		kept = bodies[:1]
		logger.Debug("no component met the threshold, keeping the largest",
			zap.Int("vertices", kept[0].VertexCount()))
	} else {
		logger.Debug("filtered components",
			zap.Int("kept", len(kept)),
			zap.Int("total", len(bodies)))
	}

	out := kept[0]
	for _, b := range kept[1:] {
		out.Concat(b)
	}
	return out
}
