// Package stl encodes and decodes STL geometry, the interchange format
// consumed by slicers and print services.
//
// Both the binary and ASCII variants are handled. Decoding welds
// duplicate vertices, so topology checks on the result see shared edges
// rather than disconnected triangle soup.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/printprep/pkg/mesh"
)

const (
	headerSize = 80
	// recordSize is the byte length of one binary triangle record:
	// normal, three vertices and the attribute count.
	recordSize = 4*3*4 + 2
)

var le = binary.LittleEndian

// triRecord mirrors the on-disk layout of a binary STL triangle.
type triRecord struct {
	Normal     [3]float32
	V1, V2, V3 [3]float32
	Attr       uint16
}

// Encode writes m to w in the binary STL variant. The fixed header
// never begins with "solid", so readers that sniff the variant from
// the leading bytes classify the output as binary.
func Encode(w io.Writer, m *mesh.Mesh) error {
	if err := checkFaces(m); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	var header [headerSize]byte
	copy(header[:], "printprep binary stl")
	bw.Write(header[:])
	binary.Write(bw, le, uint32(len(m.Faces)))

	for i, f := range m.Faces {
		rec := triRecord{
			Normal: toF32(m.FaceNormal(i)),
			V1:     toF32(m.Vertices[f[0]]),
			V2:     toF32(m.Vertices[f[1]]),
			V3:     toF32(m.Vertices[f[2]]),
		}
		if err := binary.Write(bw, le, &rec); err != nil {
			return fmt.Errorf("writing triangle %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// EncodeASCII writes m to w in the text STL variant. Coordinates are
// printed with enough digits to survive the float32 round trip that
// decoding performs.
func EncodeASCII(w io.Writer, m *mesh.Mesh) error {
	if err := checkFaces(m); err != nil {
		return err
	}

	name := m.Name
	if name == "" {
		name = "mesh"
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for i, f := range m.Faces {
		n := m.FaceNormal(i)
		fmt.Fprintf(bw, "  facet normal %s %s %s\n", f32str(n.X), f32str(n.Y), f32str(n.Z))
		fmt.Fprintf(bw, "    outer loop\n")
		for _, vi := range f {
			v := m.Vertices[vi]
			fmt.Fprintf(bw, "      vertex %s %s %s\n", f32str(v.X), f32str(v.Y), f32str(v.Z))
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

// Decode reads an STL mesh from r, accepting either variant. ASCII
// files are recognized by the leading "solid" keyword; everything else
// is treated as binary.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stl data: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty stl data")
	}
	if bytes.HasPrefix(data, []byte("solid")) {
		return decodeASCII(data)
	}
	return decodeBinary(data)
}

// Write encodes m as binary STL at path, creating parent directories
// as needed.
func Write(path string, m *mesh.Mesh) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Encode(f, m); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// Read decodes the STL file at path. The mesh is named after the file
// when the contents do not carry a name of their own.
func Read(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

func decodeBinary(data []byte) (*mesh.Mesh, error) {
	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("binary stl too short: %d bytes", len(data))
	}
	count := int(le.Uint32(data[headerSize:]))
	want := headerSize + 4 + count*recordSize
	if len(data) < want {
		return nil, fmt.Errorf("binary stl truncated: header declares %d triangles (%d bytes), got %d bytes",
			count, want, len(data))
	}

	m := &mesh.Mesh{}
	weld := newWelder(m)
	records := data[headerSize+4:]
	for i := 0; i < count; i++ {
		tri := records[i*recordSize : (i+1)*recordSize]
		var face mesh.Face
		for v := 0; v < 3; v++ {
			const skipNormal = 3 * 4
			off := skipNormal + v*12
			var p [3]float32
			for c := range p {
				p[c] = math.Float32frombits(le.Uint32(tri[off+4*c:]))
			}
			face[v] = weld.index(p)
		}
		m.Faces = append(m.Faces, face)
	}
	return m, nil
}

func decodeASCII(data []byte) (*mesh.Mesh, error) {
	m := &mesh.Mesh{}
	weld := newWelder(m)

	var face mesh.Face
	nvert := 0
	line := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			if m.Name == "" && len(fields) > 1 {
				m.Name = strings.Join(fields[1:], " ")
			}
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates, got %d", line, len(fields)-1)
			}
			if nvert == 3 {
				return nil, fmt.Errorf("line %d: facet has more than 3 vertices", line)
			}
			var p [3]float32
			for c := range p {
				v, err := strconv.ParseFloat(fields[c+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: parsing coordinate %q: %w", line, fields[c+1], err)
				}
				p[c] = float32(v)
			}
			face[nvert] = weld.index(p)
			nvert++
		case "endfacet":
			if nvert != 3 {
				return nil, fmt.Errorf("line %d: facet has %d vertices, want 3", line, nvert)
			}
			m.Faces = append(m.Faces, face)
			nvert = 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning ascii stl: %w", err)
	}
	if nvert != 0 {
		return nil, errors.New("ascii stl ends inside a facet")
	}
	return m, nil
}

// welder maps identical float32 triples to a single vertex index.
// Binary STL repeats every corner once per triangle, so exact bit
// equality is enough to reassemble the shared edges.
type welder struct {
	m    *mesh.Mesh
	seen map[[3]float32]int
}

func newWelder(m *mesh.Mesh) *welder {
	return &welder{m: m, seen: make(map[[3]float32]int)}
}

func (w *welder) index(p [3]float32) int {
	if i, ok := w.seen[p]; ok {
		return i
	}
	i := len(w.m.Vertices)
	w.m.Vertices = append(w.m.Vertices, mesh.Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
	w.seen[p] = i
	return i
}

func checkFaces(m *mesh.Mesh) error {
	for i, f := range m.Faces {
		for _, vi := range f {
			if vi < 0 || vi >= len(m.Vertices) {
				return fmt.Errorf("face %d references vertex %d, mesh has %d vertices", i, vi, len(m.Vertices))
			}
		}
	}
	return nil
}

func toF32(v mesh.Vec3) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// f32str formats a coordinate with the shortest representation that
// parses back to the same float32.
func f32str(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'e', -1, 32)
}
