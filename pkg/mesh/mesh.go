package mesh

// Face is a triangle, stored as three indices into the owning mesh's
// vertex slice. Counter-clockwise winding seen from outside the solid
// gives the outward normal (right-hand rule).
type Face [3]int

// Mesh is an indexed triangle mesh. Vertices are in millimeters.
type Mesh struct {
	Name     string
	Vertices []Vec3
	Faces    []Face
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no renderable geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Faces) == 0
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:     m.Name,
		Vertices: make([]Vec3, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
	}
	copy(c.Vertices, m.Vertices)
	copy(c.Faces, m.Faces)
	return c
}

// Translate moves every vertex by d, in place.
func (m *Mesh) Translate(d Vec3) {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(d)
	}
}

// ScaleUniform multiplies every vertex by f, in place. The scale is
// about the origin, so off-origin meshes also move.
func (m *Mesh) ScaleUniform(f float64) {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Scale(f)
	}
}

// Concat appends other's geometry to m, reindexing other's faces past
// m's existing vertices.
func (m *Mesh) Concat(other *Mesh) {
	offset := len(m.Vertices)
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, f := range other.Faces {
		m.Faces = append(m.Faces, Face{f[0] + offset, f[1] + offset, f[2] + offset})
	}
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max Vec3
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// MaxExtent returns the largest axis extent.
func (b Bounds) MaxExtent() float64 {
	s := b.Size()
	e := s.X
	if s.Y > e {
		e = s.Y
	}
	if s.Z > e {
		e = s.Z
	}
	return e
}

// MinExtent returns the smallest axis extent.
func (b Bounds) MinExtent() float64 {
	s := b.Size()
	e := s.X
	if s.Y < e {
		e = s.Y
	}
	if s.Z < e {
		e = s.Z
	}
	return e
}

// Bounds returns the axis-aligned bounding box of the mesh. An empty
// mesh has zero bounds.
func (m *Mesh) Bounds() Bounds {
	if len(m.Vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		if v.X < b.Min.X {
			b.Min.X = v.X
		}
		if v.Y < b.Min.Y {
			b.Min.Y = v.Y
		}
		if v.Z < b.Min.Z {
			b.Min.Z = v.Z
		}
		if v.X > b.Max.X {
			b.Max.X = v.X
		}
		if v.Y > b.Max.Y {
			b.Max.Y = v.Y
		}
		if v.Z > b.Max.Z {
			b.Max.Z = v.Z
		}
	}
	return b
}

// Volume returns the signed enclosed volume in mm³, computed as the sum
// of signed tetrahedra between each face and the origin. The result is
// only meaningful for a closed mesh; consistent outward winding gives a
// positive value, inverted winding a negative one.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, f := range m.Faces {
		a := m.Vertices[f[0]]
		b := m.Vertices[f[1]]
		c := m.Vertices[f[2]]
		v += a.Dot(b.Cross(c))
	}
	return v / 6
}

// SurfaceArea returns the total triangle area in mm².
func (m *Mesh) SurfaceArea() float64 {
	var area float64
	for i := range m.Faces {
		area += m.FaceArea(i)
	}
	return area
}

// FaceArea returns the area of face i in mm².
func (m *Mesh) FaceArea(i int) float64 {
	f := m.Faces[i]
	a := m.Vertices[f[0]]
	b := m.Vertices[f[1]]
	c := m.Vertices[f[2]]
	return b.Sub(a).Cross(c.Sub(a)).Length() / 2
}

// FaceNormal returns the unit normal of face i by the right-hand rule,
// or the zero vector for a degenerate face.
func (m *Mesh) FaceNormal(i int) Vec3 {
	f := m.Faces[i]
	a := m.Vertices[f[0]]
	b := m.Vertices[f[1]]
	c := m.Vertices[f[2]]
	return b.Sub(a).Cross(c.Sub(a)).Normalized()
}

// Centroid returns the area-weighted mean of the triangle centroids.
// When the total area is zero it falls back to the plain vertex mean,
// and an empty mesh yields the zero vector.
func (m *Mesh) Centroid() Vec3 {
	if len(m.Vertices) == 0 {
		return Vec3{}
	}
	var sum Vec3
	var total float64
	for i, f := range m.Faces {
		area := m.FaceArea(i)
		center := m.Vertices[f[0]].Add(m.Vertices[f[1]]).Add(m.Vertices[f[2]]).Scale(1.0 / 3)
		sum = sum.Add(center.Scale(area))
		total += area
	}
	if total > 0 {
		return sum.Scale(1 / total)
	}
	sum = Vec3{}
	for _, v := range m.Vertices {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(m.Vertices)))
}
