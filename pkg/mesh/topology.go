package mesh

// edge is a directed edge between two vertex indices.
type edge struct {
	a, b int
}

// undirectedEdge is an edge with its endpoints in canonical order.
type undirectedEdge struct {
	lo, hi int
}

func undirected(a, b int) undirectedEdge {
	if a < b {
		return undirectedEdge{a, b}
	}
	return undirectedEdge{b, a}
}

// IsWatertight reports whether the mesh is a closed, consistently
// oriented surface: every directed edge appears exactly once and its
// opposite edge exists. Holes leave directed edges without an opposite,
// duplicated or non-manifold faces repeat a directed edge, and either
// condition fails the test.
func (m *Mesh) IsWatertight() bool {
	if m.IsEmpty() {
		return false
	}
	seen := make(map[edge]int, len(m.Faces)*3)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			e := edge{f[k], f[(k+1)%3]}
			if e.a == e.b {
				return false
			}
			seen[e]++
			if seen[e] > 1 {
				return false
			}
		}
	}
	for e := range seen {
		if seen[edge{e.b, e.a}] == 0 {
			return false
		}
	}
	return true
}

// unionFind is a disjoint-set forest over face indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// faceComponents assigns every face the root of its connected
// component. Faces are connected when they share an undirected edge;
// faces touching only at a vertex stay separate.
func (m *Mesh) faceComponents() []int {
	uf := newUnionFind(len(m.Faces))
	first := make(map[undirectedEdge]int, len(m.Faces)*3)
	for i, f := range m.Faces {
		for k := 0; k < 3; k++ {
			e := undirected(f[k], f[(k+1)%3])
			if j, ok := first[e]; ok {
				uf.union(i, j)
			} else {
				first[e] = i
			}
		}
	}
	roots := make([]int, len(m.Faces))
	for i := range roots {
		roots[i] = uf.find(i)
	}
	return roots
}

// BodyCount returns the number of connected components ("bodies") in
// the mesh. An empty mesh has zero bodies.
func (m *Mesh) BodyCount() int {
	if m.IsEmpty() {
		return 0
	}
	distinct := make(map[int]struct{}, 4)
	for _, r := range m.faceComponents() {
		distinct[r] = struct{}{}
	}
	return len(distinct)
}

// SplitBodies returns each connected component as its own mesh with
// reindexed vertices. Bodies are ordered by first appearance in the
// face list; vertices not referenced by any face are dropped.
func (m *Mesh) SplitBodies() []*Mesh {
	if m.IsEmpty() {
		return nil
	}
	roots := m.faceComponents()
	order := make(map[int]int, 4)
	var bodies []*Mesh
	var remaps []map[int]int
	for i, f := range m.Faces {
		bi, ok := order[roots[i]]
		if !ok {
			bi = len(bodies)
			order[roots[i]] = bi
			bodies = append(bodies, &Mesh{Name: m.Name})
			remaps = append(remaps, make(map[int]int))
		}
		b, remap := bodies[bi], remaps[bi]
		var nf Face
		for k, vi := range f {
			ni, seen := remap[vi]
			if !seen {
				ni = len(b.Vertices)
				remap[vi] = ni
				b.Vertices = append(b.Vertices, m.Vertices[vi])
			}
			nf[k] = ni
		}
		b.Faces = append(b.Faces, nf)
	}
	return bodies
}

// BoundaryLoops returns the mesh's open boundary as ordered vertex
// chains, following the direction of the boundary edges as they appear
// in the faces. A closed loop's last vertex connects back to its first;
// chains that dead-end on a non-manifold boundary are returned in open.
// A watertight mesh has no boundary at all.
func (m *Mesh) BoundaryLoops() (closed, open [][]int) {
	directed := make(map[edge]bool, len(m.Faces)*3)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			directed[edge{f[k], f[(k+1)%3]}] = true
		}
	}

	// Boundary edges in face order so the walk below is deterministic.
	outgoing := make(map[int][]int)
	var starts []int
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a != b && !directed[edge{b, a}] {
				outgoing[a] = append(outgoing[a], b)
				starts = append(starts, a)
			}
		}
	}

	take := func(from int) (int, bool) {
		outs := outgoing[from]
		if len(outs) == 0 {
			return 0, false
		}
		outgoing[from] = outs[1:]
		return outs[0], true
	}

	for _, start := range starts {
		if len(outgoing[start]) == 0 {
			continue
		}
		chain := []int{start}
		cur := start
		for {
			next, ok := take(cur)
			if !ok {
				open = append(open, chain)
				break
			}
			if next == start {
				closed = append(closed, chain)
				break
			}
			chain = append(chain, next)
			cur = next
		}
	}
	return closed, open
}
