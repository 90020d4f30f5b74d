// Package pipeline chains repair, scaling and validation into the
// standard preparation pass a mesh goes through before it may be
// persisted. No mesh reaches disk without coming out of validation
// clean: that rule is enforced here, not left to callers.
package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/printprep/pkg/mesh"
	"github.com/chazu/printprep/pkg/repair"
	"github.com/chazu/printprep/pkg/scale"
	"github.com/chazu/printprep/pkg/stl"
	"github.com/chazu/printprep/pkg/validate"
)

// Config controls which preparation steps run.
type Config struct {
	// TargetSizeMm is the extent the largest axis is scaled to.
	TargetSizeMm float64
	// AutoRepair runs hole filling, normal fixes and debris removal on
	// meshes that arrive non-watertight.
	AutoRepair bool
	// AutoScale normalizes the mesh to TargetSizeMm and centers it on
	// the origin.
	AutoScale bool
}

// DefaultConfig returns the production settings: a 100mm target with
// repair and scaling enabled.
func DefaultConfig() Config {
	return Config{
		TargetSizeMm: 100,
		AutoRepair:   true,
		AutoScale:    true,
	}
}

// Result reports a single pipeline run. A mesh that fails validation
// is not an error: callers inspect Valid and the message slices to
// decide what to surface.
type Result struct {
	validate.Result

	// Mesh is the final geometry after whichever steps ran.
	Mesh *mesh.Mesh
	// Repaired and Scaled record which steps touched the mesh.
	Repaired bool
	Scaled   bool
	// OutputPath is where the mesh was written, empty when validation
	// failed or persistence was not requested.
	OutputPath string
}

// Pipeline prepares raw meshes for printing.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a pipeline from cfg. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg.TargetSizeMm <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %.4f", cfg.TargetSizeMm)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// Process runs m through the configured steps: repair when the mesh
// arrives non-watertight, scale to the target size, validate, and
// persist to outputPath only when validation passes. An empty
// outputPath skips persistence. The error return is reserved for bad
// inputs and the environment; validation failure comes back as a
// Result with Valid false.
func (p *Pipeline) Process(m *mesh.Mesh, outputPath string) (*Result, error) {
	if m == nil {
		return nil, errors.New("nil mesh")
	}

	p.logger.Info("processing mesh",
		zap.String("name", m.Name),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("faces", m.FaceCount()))

	res := &Result{Mesh: m}

	if p.cfg.AutoRepair && !m.IsWatertight() {
		repaired, err := repair.Repair(res.Mesh, repair.DefaultOptions(), p.logger)
		if err != nil {
			return nil, fmt.Errorf("repairing mesh: %w", err)
		}
		res.Mesh = repaired
		res.Repaired = true
	}

	if p.cfg.AutoScale {
		scaled, err := scale.Normalize(res.Mesh, scale.Options{
			TargetSizeMm: p.cfg.TargetSizeMm,
			Axis:         scale.AxisMax,
			Center:       true,
		}, p.logger)
		if err != nil {
			return nil, fmt.Errorf("scaling mesh: %w", err)
		}
		res.Mesh = scaled
		res.Scaled = true
	}

	res.Result = validate.ForPrinting(res.Mesh)
	if !res.Valid {
		p.logger.Warn("mesh failed validation, not persisting",
			zap.Strings("errors", res.Errors),
			zap.Strings("warnings", res.Warnings))
		return res, nil
	}
	p.logger.Info("mesh valid for printing",
		zap.Float64("volume_mm3", res.Stats.VolumeMm3),
		zap.Int("bodies", res.Stats.BodyCount),
		zap.Strings("warnings", res.Warnings))

	if outputPath != "" {
		if err := stl.Write(outputPath, res.Mesh); err != nil {
			return nil, fmt.Errorf("persisting mesh: %w", err)
		}
		res.OutputPath = outputPath
		p.logger.Info("mesh written", zap.String("path", outputPath))
	}
	return res, nil
}
