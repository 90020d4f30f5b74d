package generate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/printprep/pkg/generate"
	"github.com/chazu/printprep/pkg/mesh"
	"github.com/chazu/printprep/pkg/mesh/meshtest"
	"github.com/chazu/printprep/pkg/stl"
)

// stubBackend returns a canned mesh or error regardless of prompt.
type stubBackend struct {
	mesh *mesh.Mesh
	err  error
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) GenerateRaw(_ context.Context, _ string) (*mesh.Mesh, error) {
	return s.mesh, s.err
}

func TestGenerateExportsWatertightMesh(t *testing.T) {
	gen := &stubBackend{mesh: meshtest.Cube(10)}
	path := filepath.Join(t.TempDir(), "cube.stl")

	res, err := generate.Generate(context.Background(), gen, "a cube", path, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "stub", res.Backend)
	assert.Equal(t, path, res.OutputPath)
	assert.Nil(t, res.Validation, "the bare gate does not run full validation")

	onDisk, err := stl.Read(path)
	require.NoError(t, err)
	assert.True(t, onDisk.IsWatertight())
}

func TestGenerateBlocksNonWatertightMesh(t *testing.T) {
	open := meshtest.OpenBox(mesh.Vec3{}, mesh.Vec3{X: 10, Y: 10, Z: 10})
	gen := &stubBackend{mesh: open}
	path := filepath.Join(t.TempDir(), "open.stl")

	res, err := generate.Generate(context.Background(), gen, "an open box", path, zaptest.NewLogger(t))
	require.NoError(t, err, "a gated mesh is a result, not an error")

	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "not watertight")
	assert.Same(t, open, res.Mesh, "the failing mesh stays attached for diagnostics")
	assert.Empty(t, res.OutputPath)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateWithoutOutputPath(t *testing.T) {
	gen := &stubBackend{mesh: meshtest.Cube(10)}

	res, err := generate.Generate(context.Background(), gen, "a cube", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.OutputPath)
}

func TestGenerateContractViolations(t *testing.T) {
	_, err := generate.Generate(context.Background(), nil, "a cube", "", nil)
	assert.Error(t, err, "nil backend")

	gen := &stubBackend{mesh: meshtest.Cube(10)}
	for _, prompt := range []string{"", "   "} {
		_, err := generate.Generate(context.Background(), gen, prompt, "", nil)
		assert.Error(t, err, "blank prompt %q", prompt)
	}
}

func TestGenerateBackendErrorPropagates(t *testing.T) {
	backendErr := errors.New("accelerator unavailable")
	gen := &stubBackend{err: backendErr}

	_, err := generate.Generate(context.Background(), gen, "a cube", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
}

func TestGenerateRejectsNilMeshFromBackend(t *testing.T) {
	gen := &stubBackend{}
	_, err := generate.Generate(context.Background(), gen, "a cube", "", nil)
	assert.Error(t, err)
}

func TestServiceRepairsScalesAndPersists(t *testing.T) {
	open := meshtest.OpenBox(mesh.Vec3{}, mesh.Vec3{X: 10, Y: 10, Z: 10})
	dir := t.TempDir()

	svc, err := generate.NewService(&stubBackend{mesh: open}, generate.Options{
		TargetSizeMm: 50,
		OutputDir:    dir,
		AutoRepair:   true,
		AutoScale:    true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	res, err := svc.Generate(context.Background(), "a test box")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.Repaired)
	assert.True(t, res.Scaled)
	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.Valid)
	assert.Equal(t, filepath.Join(dir, "a_test_box.stl"), res.OutputPath)

	onDisk, err := stl.Read(res.OutputPath)
	require.NoError(t, err)
	assert.True(t, onDisk.IsWatertight())
	assert.InDelta(t, 50, onDisk.Bounds().MaxExtent(), 1e-3)
}

func TestServiceFailureCarriesMeshAndValidation(t *testing.T) {
	dir := t.TempDir()
	svc, err := generate.NewService(&stubBackend{mesh: meshtest.Degenerate()}, generate.Options{
		TargetSizeMm: 100,
		OutputDir:    dir,
		AutoRepair:   true,
		AutoScale:    true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	res, err := svc.Generate(context.Background(), "a flat sliver")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Reason)
	assert.NotNil(t, res.Mesh)
	require.NotNil(t, res.Validation)
	assert.NotEmpty(t, res.Validation.Errors)
	assert.Empty(t, res.OutputPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may reach disk for an invalid mesh")
}

func TestServiceWithoutOutputDir(t *testing.T) {
	svc, err := generate.NewService(&stubBackend{mesh: meshtest.Cube(10)}, generate.Options{
		TargetSizeMm: 100,
	}, nil)
	require.NoError(t, err)

	res, err := svc.Generate(context.Background(), "a cube")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.OutputPath)
}

func TestNewServiceContractViolations(t *testing.T) {
	_, err := generate.NewService(nil, generate.DefaultOptions(), nil)
	assert.Error(t, err, "nil backend")

	opts := generate.DefaultOptions()
	opts.TargetSizeMm = 0
	_, err = generate.NewService(&stubBackend{}, opts, nil)
	assert.Error(t, err, "non-positive target size")
}

func TestSafeFilename(t *testing.T) {
	cases := []struct {
		prompt string
		want   string
	}{
		{"A Test Box!", "a_test_box.stl"},
		{"spiral  vase-model", "spiral_vase_model.stl"},
		{"Box", "box.stl"},
		{"???", "mesh.stl"},
		{"abcdefghij klmnopqrst uvwxyz abcdef", "abcdefghij_klmnopqrst_uvwxyz_a.stl"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, generate.SafeFilename(tc.prompt), "prompt %q", tc.prompt)
	}
}
