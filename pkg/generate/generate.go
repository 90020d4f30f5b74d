// Package generate defines the contract between mesh-producing
// backends and the rest of the system. A backend only knows how to
// turn a prompt into raw geometry; everything that guards the output,
// from the bare watertight gate to the full preparation pipeline,
// lives here so no backend can skip it.
package generate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/printprep/pkg/mesh"
	"github.com/chazu/printprep/pkg/pipeline"
	"github.com/chazu/printprep/pkg/stl"
	"github.com/chazu/printprep/pkg/validate"
)

// RawGenerator is the capability a backend must provide. The mesh it
// returns is raw: watertightness, orientation and scale are all the
// caller's problem.
type RawGenerator interface {
	// Name identifies the backend in logs and results.
	Name() string
	// GenerateRaw synthesizes geometry from a text prompt.
	GenerateRaw(ctx context.Context, prompt string) (*mesh.Mesh, error)
}

// Result reports one generation run. A mesh blocked from disk by the
// golden rule is not an error: Success is false, Reason says why, and
// the offending mesh stays attached for diagnostics.
type Result struct {
	Prompt  string
	Backend string
	Success bool
	// Reason explains a failed run in one line.
	Reason string
	// Mesh is the produced geometry, retained even on failure.
	Mesh *mesh.Mesh
	// Validation is set when the full pipeline ran, nil when only the
	// watertight gate was applied.
	Validation *validate.Result
	Repaired   bool
	Scaled     bool
	// OutputPath is where the mesh was written, empty when nothing
	// reached disk.
	OutputPath string
	Elapsed    time.Duration
}

// Options configures the pipeline-composed generation route.
type Options struct {
	// TargetSizeMm is the extent meshes are scaled to.
	TargetSizeMm float64
	// OutputDir receives valid meshes, named after their prompt.
	// Empty disables persistence.
	OutputDir string
	// AutoRepair and AutoScale are passed through to the pipeline.
	AutoRepair bool
	AutoScale  bool
}

// DefaultOptions mirrors the pipeline defaults with the conventional
// output directory.
func DefaultOptions() Options {
	return Options{
		TargetSizeMm: 100,
		OutputDir:    "outputs",
		AutoRepair:   true,
		AutoScale:    true,
	}
}

// Generate is the bare two-phase contract: produce a raw mesh, gate it
// on watertightness alone, and export it verbatim. No repair, no
// scaling. Backends that need those compose a Service instead; both
// routes refuse to persist a mesh that fails their gate.
func Generate(ctx context.Context, gen RawGenerator, prompt, outputPath string, logger *zap.Logger) (*Result, error) {
	if gen == nil {
		return nil, errors.New("nil backend")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt must not be blank")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	logger.Info("generating mesh",
		zap.String("backend", gen.Name()),
		zap.String("prompt", prompt))

	raw, err := gen.GenerateRaw(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", gen.Name(), err)
	}
	if raw == nil {
		return nil, fmt.Errorf("backend %s returned no mesh", gen.Name())
	}

	res := &Result{Prompt: prompt, Backend: gen.Name(), Mesh: raw}
	if !raw.IsWatertight() {
		res.Reason = "mesh is not watertight and cannot be saved: it must be repaired before it can be used for printing"
		res.Elapsed = time.Since(start)
		logger.Warn("raw mesh failed the watertight gate",
			zap.String("backend", gen.Name()),
			zap.Int("vertices", raw.VertexCount()),
			zap.Int("faces", raw.FaceCount()))
		return res, nil
	}

	if outputPath != "" {
		if err := stl.Write(outputPath, raw); err != nil {
			return nil, fmt.Errorf("exporting mesh: %w", err)
		}
		res.OutputPath = outputPath
	}
	res.Success = true
	res.Elapsed = time.Since(start)
	logger.Info("watertight mesh generated",
		zap.String("backend", gen.Name()),
		zap.Int("vertices", raw.VertexCount()),
		zap.Int("faces", raw.FaceCount()),
		zap.String("path", res.OutputPath),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// Service composes a backend with the full preparation pipeline. This
// is how production generation runs: raw output is repaired, scaled
// and validated, and only valid meshes are written out.
type Service struct {
	gen    RawGenerator
	pipe   *pipeline.Pipeline
	opts   Options
	logger *zap.Logger
}

// NewService wires gen to a pipeline built from opts. A nil logger
// disables logging.
func NewService(gen RawGenerator, opts Options, logger *zap.Logger) (*Service, error) {
	if gen == nil {
		return nil, errors.New("nil backend")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pipe, err := pipeline.New(pipeline.Config{
		TargetSizeMm: opts.TargetSizeMm,
		AutoRepair:   opts.AutoRepair,
		AutoScale:    opts.AutoScale,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Service{gen: gen, pipe: pipe, opts: opts, logger: logger}, nil
}

// Backend returns the name of the wrapped backend.
func (s *Service) Backend() string { return s.gen.Name() }

// Generate produces a mesh for prompt and runs it through the
// pipeline. Valid output lands in OutputDir under a name derived from
// the prompt; an invalid mesh comes back as a failed Result with the
// geometry and its validation report attached.
func (s *Service) Generate(ctx context.Context, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt must not be blank")
	}

	start := time.Now()
	s.logger.Info("generating mesh",
		zap.String("backend", s.gen.Name()),
		zap.String("prompt", prompt))

	raw, err := s.gen.GenerateRaw(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", s.gen.Name(), err)
	}
	if raw == nil {
		return nil, fmt.Errorf("backend %s returned no mesh", s.gen.Name())
	}

	var outputPath string
	if s.opts.OutputDir != "" {
		outputPath = filepath.Join(s.opts.OutputDir, SafeFilename(prompt))
	}

	proc, err := s.pipe.Process(raw, outputPath)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Prompt:     prompt,
		Backend:    s.gen.Name(),
		Success:    proc.Valid,
		Mesh:       proc.Mesh,
		Validation: &proc.Result,
		Repaired:   proc.Repaired,
		Scaled:     proc.Scaled,
		OutputPath: proc.OutputPath,
		Elapsed:    time.Since(start),
	}
	if !res.Success {
		res.Reason = "mesh failed validation"
		if len(proc.Errors) > 0 {
			res.Reason = proc.Errors[0]
		}
	}
	return res, nil
}

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	separators  = regexp.MustCompile(`[-\s]+`)
)

// SafeFilename derives a filesystem-safe STL file name from a prompt:
// lowercase, punctuation stripped, capped at 30 characters, runs of
// whitespace and hyphens collapsed to underscores.
func SafeFilename(prompt string) string {
	s := unsafeChars.ReplaceAllString(strings.ToLower(prompt), "")
	if r := []rune(s); len(r) > 30 {
		s = string(r[:30])
	}
	s = separators.ReplaceAllString(s, "_")
	if strings.Trim(s, "_") == "" {
		s = "mesh"
	}
	return s + ".stl"
}
