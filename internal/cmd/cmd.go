// Package cmd wires the printprep command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/chazu/printprep/internal/config"
	"github.com/chazu/printprep/internal/ui"
	"github.com/chazu/printprep/pkg/generate"
	"github.com/chazu/printprep/pkg/generate/script"
	"github.com/chazu/printprep/pkg/generate/shapes"
	"github.com/chazu/printprep/pkg/jobs"
	"github.com/chazu/printprep/pkg/pipeline"
	"github.com/chazu/printprep/pkg/stl"
	"github.com/chazu/printprep/pkg/validate"
)

// version is stamped at build time via -ldflags.
var version = "dev"

type CLI struct {
	Config  string `help:"Path to a YAML config file (default printprep.yaml)" short:"c" type:"path"`
	Verbose bool   `help:"Enable debug logging" short:"v"`

	Generate *GenerateCmd `cmd:"" help:"Generate a mesh from a prompt and prepare it for printing"`
	Process  *ProcessCmd  `cmd:"" help:"Repair, scale, and validate an STL file"`
	Check    *CheckCmd    `cmd:"" help:"Validate an STL file without modifying it"`
	Version  *VersionCmd  `cmd:"" help:"Show version information"`
}

// setup loads configuration and builds the logger shared by the
// commands. The --verbose flag wins over the file setting.
func setup(cli *CLI) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return config.Config{}, nil, err
	}
	if cli.Verbose {
		cfg.Verbose = true
	}
	return cfg, newLogger(cfg.Verbose), nil
}

// newLogger builds a console logger on stderr. The default level is
// warn so styled output stays readable; verbose drops it to debug.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, _ := cfg.Build()
	return logger
}

// backendFor picks the generation backend named in cfg.
func backendFor(cfg config.Config) (generate.RawGenerator, error) {
	switch cfg.Backend {
	case "shapes":
		return shapes.New(cfg.TargetSizeMm), nil
	case "script":
		return script.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be shapes or script", cfg.Backend)
	}
}

type GenerateCmd struct {
	Prompt   []string `arg:"" help:"Shape prompt, e.g. \"box\", or a scene script with --backend script"`
	Backend  string   `help:"Generation backend: shapes or script" short:"b"`
	Size     float64  `help:"Target size in mm for the largest axis"`
	Out      string   `help:"Directory for generated meshes" short:"o"`
	NoRepair bool     `help:"Skip automatic repair"`
	NoScale  bool     `help:"Skip scaling to the target size"`
}

func (c *GenerateCmd) Run(cli *CLI) error {
	cfg, logger, err := setup(cli)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if c.Backend != "" {
		cfg.Backend = c.Backend
	}
	if c.Size != 0 {
		cfg.TargetSizeMm = c.Size
	}
	if c.Out != "" {
		cfg.OutputDir = c.Out
	}
	if c.NoRepair {
		cfg.AutoRepair = false
	}
	if c.NoScale {
		cfg.AutoScale = false
	}

	backend, err := backendFor(cfg)
	if err != nil {
		return err
	}
	svc, err := jobs.New(backend, generate.Options{
		TargetSizeMm: cfg.TargetSizeMm,
		OutputDir:    cfg.OutputDir,
		AutoRepair:   cfg.AutoRepair,
		AutoScale:    cfg.AutoScale,
	}, logger)
	if err != nil {
		return err
	}

	job, err := svc.Submit(context.Background(), strings.Join(c.Prompt, " "))
	if err != nil {
		return err
	}
	if job.Err != nil {
		return fmt.Errorf("generation failed: %w", job.Err)
	}
	res := job.Result

	ui.PrintHeader("Generate")
	ui.PrintKeyValue("Backend", res.Backend)
	ui.PrintKeyValue("Prompt", res.Prompt)
	if res.Repaired {
		ui.PrintStep("repaired mesh")
	}
	if res.Scaled {
		ui.PrintStep(fmt.Sprintf("scaled to %.0f mm", cfg.TargetSizeMm))
	}
	if res.Validation != nil {
		ui.PrintStats(res.Validation.Stats)
		for _, w := range res.Validation.Warnings {
			ui.PrintWarning(w)
		}
	}
	ui.PrintInfo(fmt.Sprintf("finished in %s", res.Elapsed.Round(time.Millisecond)))

	if !res.Success {
		ui.PrintError(res.Reason)
		os.Exit(1)
	}
	if res.OutputPath != "" {
		ui.PrintSuccess("saved " + res.OutputPath)
	} else {
		ui.PrintSuccess("mesh is printable")
	}
	return nil
}

type ProcessCmd struct {
	Input    string  `arg:"" type:"existingfile" help:"STL file to prepare"`
	Out      string  `help:"Output STL path (default <input>_print.stl)" short:"o"`
	Size     float64 `help:"Target size in mm for the largest axis"`
	NoRepair bool    `help:"Skip automatic repair"`
	NoScale  bool    `help:"Skip scaling to the target size"`
}

func (c *ProcessCmd) Run(cli *CLI) error {
	cfg, logger, err := setup(cli)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if c.Size != 0 {
		cfg.TargetSizeMm = c.Size
	}
	if c.NoRepair {
		cfg.AutoRepair = false
	}
	if c.NoScale {
		cfg.AutoScale = false
	}
	out := c.Out
	if out == "" {
		out = strings.TrimSuffix(c.Input, filepath.Ext(c.Input)) + "_print.stl"
	}

	m, err := stl.Read(c.Input)
	if err != nil {
		return err
	}

	pl, err := pipeline.New(pipeline.Config{
		TargetSizeMm: cfg.TargetSizeMm,
		AutoRepair:   cfg.AutoRepair,
		AutoScale:    cfg.AutoScale,
	}, logger)
	if err != nil {
		return err
	}
	res, err := pl.Process(m, out)
	if err != nil {
		return err
	}

	ui.PrintHeader("Process")
	ui.PrintKeyValue("Input", c.Input)
	if res.Repaired {
		ui.PrintStep("repaired mesh")
	}
	if res.Scaled {
		ui.PrintStep(fmt.Sprintf("scaled to %.0f mm", cfg.TargetSizeMm))
	}
	ui.PrintValidation(res.Result)
	if !res.Valid {
		os.Exit(1)
	}
	ui.PrintKeyValue("Output", res.OutputPath)
	return nil
}

type CheckCmd struct {
	Input string `arg:"" type:"existingfile" help:"STL file to validate"`
}

func (c *CheckCmd) Run() error {
	m, err := stl.Read(c.Input)
	if err != nil {
		return err
	}

	ui.PrintHeader("Check")
	ui.PrintKeyValue("Input", c.Input)
	r := validate.ForPrinting(m)
	ui.PrintValidation(r)
	if !r.Valid {
		os.Exit(1)
	}
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("printprep " + version)
	return nil
}

// Parse parses command line arguments and executes the appropriate command
func Parse() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("printprep"),
		kong.Description("Prepare meshes for 3D printing: generate, repair, scale, and validate"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(cli); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
