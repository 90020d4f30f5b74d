// Package scale normalizes mesh dimensions for printing. Scaling is
// always uniform, so aspect ratios survive; only the measuring axis is
// configurable.
package scale

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chazu/printprep/pkg/mesh"
)

// Axis selects which bounding-box extent is matched to the target size.
type Axis int

const (
	AxisMax Axis = iota // largest extent (default)
	AxisMin             // smallest extent
	AxisX
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisMax:
		return "max"
	case AxisMin:
		return "min"
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis converts a user-supplied axis name into an Axis. Matching
// is case-insensitive. Invalid names are rejected here so they never
// reach the scaling math.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max":
		return AxisMax, nil
	case "min":
		return AxisMin, nil
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return AxisMax, fmt.Errorf("invalid axis %q: must be one of max, min, x, y, z", s)
	}
}

// Options controls Normalize.
type Options struct {
	TargetSizeMm float64
	Axis         Axis
	Center       bool // move the centroid to the origin after scaling
}

// Normalize returns a copy of the mesh scaled uniformly so that its
// extent along the chosen axis equals TargetSizeMm. The input mesh is
// never modified. A mesh with zero extent along the axis cannot be
// scaled; the copy is returned as-is with a warning rather than an
// error, since downstream validation decides the mesh's fate.
func Normalize(m *mesh.Mesh, opts Options, logger *zap.Logger) (*mesh.Mesh, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TargetSizeMm <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %.4f", opts.TargetSizeMm)
	}

	current, err := axisExtent(m.Bounds(), opts.Axis)
	if err != nil {
		return nil, err
	}

	out := m.Clone()
	if current == 0 {
		logger.Warn("extent along scaling axis is zero, returning unscaled copy",
			zap.String("axis", opts.Axis.String()))
		return out, nil
	}

	factor := opts.TargetSizeMm / current
	out.ScaleUniform(factor)
	logger.Info("scaled mesh",
		zap.String("axis", opts.Axis.String()),
		zap.Float64("from_mm", current),
		zap.Float64("to_mm", opts.TargetSizeMm),
		zap.Float64("factor", factor))

	if opts.Center {
		c := out.Centroid()
		out.Translate(c.Scale(-1))
		logger.Debug("centered mesh at origin",
			zap.Float64("dx", -c.X), zap.Float64("dy", -c.Y), zap.Float64("dz", -c.Z))
	}

	return out, nil
}

// axisExtent measures the bounding box along the chosen axis.
func axisExtent(b mesh.Bounds, a Axis) (float64, error) {
	s := b.Size()
	switch a {
	case AxisMax:
		return b.MaxExtent(), nil
	case AxisMin:
		return b.MinExtent(), nil
	case AxisX:
		return s.X, nil
	case AxisY:
		return s.Y, nil
	case AxisZ:
		return s.Z, nil
	default:
		return 0, fmt.Errorf("invalid axis %d: must be one of max, min, x, y, z", int(a))
	}
}
