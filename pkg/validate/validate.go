// Package validate decides whether a mesh is fit for 3D printing.
//
// The golden rule: a mesh must be watertight with positive volume
// before it may be persisted. Critical failures land in Result.Errors
// and block printing; advisory findings land in Result.Warnings and do
// not. Validation is read-only and never fails itself; the outcome is
// always a Result.
package validate

import (
	"fmt"

	"github.com/chazu/printprep/pkg/mesh"
)

// Printability thresholds.
const (
	// MaxFaceCount is the face count above which slicers tend to choke.
	MaxFaceCount = 500_000
	// MinVolumeMm3 is the volume below which prints become unreliable.
	MinVolumeMm3 = 1.0
	// DegenerateFaceAreaMm2 is the area below which a face counts as
	// zero-area.
	DegenerateFaceAreaMm2 = 1e-10
)

// Stats summarizes the measurable properties of a validated mesh.
type Stats struct {
	VolumeMm3   float64
	AreaMm2     float64
	VertexCount int
	FaceCount   int
	BodyCount   int
	Watertight  bool
}

// Result bundles critical errors (blocking) and warnings (advisory)
// from all printability checks. Valid is true exactly when Errors is
// empty.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Stats    Stats
}

// ForPrinting checks a mesh for 3D printing suitability. It never
// mutates the mesh and never panics; every outcome, including an empty
// mesh, is reported through the Result.
func ForPrinting(m *mesh.Mesh) Result {
	var r Result

	// Missing geometry is terminal: no other check is meaningful.
	if len(m.Vertices) == 0 {
		r.Errors = append(r.Errors, "mesh has no vertices")
	}
	if len(m.Faces) == 0 {
		r.Errors = append(r.Errors, "mesh has no faces")
	}
	if len(r.Errors) > 0 {
		r.Stats.VertexCount = len(m.Vertices)
		r.Stats.FaceCount = len(m.Faces)
		return r
	}

	r.Stats = Stats{
		VolumeMm3:   m.Volume(),
		AreaMm2:     m.SurfaceArea(),
		VertexCount: len(m.Vertices),
		FaceCount:   len(m.Faces),
		BodyCount:   m.BodyCount(),
		Watertight:  m.IsWatertight(),
	}

	r.Errors = append(r.Errors, checkCritical(r.Stats)...)
	r.Warnings = append(r.Warnings, checkAdvisory(m, r.Stats)...)
	r.Valid = len(r.Errors) == 0
	return r
}

// checkCritical runs the blocking checks: watertightness and positive
// volume.
func checkCritical(s Stats) []string {
	var errs []string

	if !s.Watertight {
		errs = append(errs, "mesh is not watertight: every edge must be shared by exactly two faces to form a closed volume")
	}
	if s.VolumeMm3 <= 0 {
		errs = append(errs, fmt.Sprintf("invalid volume %.4f mm³: volume must be positive for a solid object", s.VolumeMm3))
	}

	return errs
}

// checkAdvisory runs the non-blocking checks: body count, tiny volume,
// polygon count, and degenerate faces.
func checkAdvisory(m *mesh.Mesh, s Stats) []string {
	var warnings []string

	if s.BodyCount > 1 {
		warnings = append(warnings, fmt.Sprintf("mesh has %d disconnected components; they may shift during printing or require separate prints", s.BodyCount))
	}

	if s.VolumeMm3 > 0 && s.VolumeMm3 < MinVolumeMm3 {
		warnings = append(warnings, fmt.Sprintf("very small volume (%.4f mm³); model may be too small to print reliably", s.VolumeMm3))
	}

	if s.FaceCount > MaxFaceCount {
		warnings = append(warnings, fmt.Sprintf("high polygon count (%d faces); consider decimating to improve slicing performance", s.FaceCount))
	}

	degenerate := 0
	for i := range m.Faces {
		if m.FaceArea(i) < DegenerateFaceAreaMm2 {
			degenerate++
		}
	}
	if degenerate > 0 {
		warnings = append(warnings, fmt.Sprintf("found %d degenerate (zero-area) faces; these should be removed", degenerate))
	}

	return warnings
}
