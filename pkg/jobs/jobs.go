// Package jobs serializes mesh generation: one job in flight at a
// time. Generation backends tend to wrap a single scarce resource
// (a GPU service, a license-bound kernel), so concurrent prompts are
// rejected outright rather than queued behind unbounded memory.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chazu/printprep/pkg/generate"
)

// ErrBusy is returned by Submit while another job is running. Callers
// surface it as "try again later".
var ErrBusy = errors.New("a generation job is already running")

// MaxTargetSizeMm bounds the configurable output size.
const MaxTargetSizeMm = 500

// Job records one generation run. Err is a transport or backend
// failure; a mesh rejected by validation shows up as a Result with
// Success false instead.
type Job struct {
	ID       string
	Prompt   string
	Result   *generate.Result
	Err      error
	Started  time.Time
	Finished time.Time
}

// Service owns the single-flight lock around a generation service.
type Service struct {
	svc    *generate.Service
	logger *zap.Logger

	mu      sync.Mutex
	busy    bool
	current string
}

// New builds a Service around gen. The target size must be in
// (0, MaxTargetSizeMm]; a nil logger disables logging.
func New(gen generate.RawGenerator, opts generate.Options, logger *zap.Logger) (*Service, error) {
	if opts.TargetSizeMm <= 0 || opts.TargetSizeMm > MaxTargetSizeMm {
		return nil, fmt.Errorf("target size must be in (0, %d]mm, got %.4f",
			MaxTargetSizeMm, opts.TargetSizeMm)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc, err := generate.NewService(gen, opts, logger)
	if err != nil {
		return nil, err
	}
	return &Service{svc: svc, logger: logger}, nil
}

// Submit runs one generation synchronously in the caller's goroutine.
// It returns ErrBusy while another job holds the slot and an error for
// a blank prompt; everything else, including backend failures, comes
// back recorded on the Job.
func (s *Service) Submit(ctx context.Context, prompt string) (*Job, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt must not be blank")
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	s.current = prompt
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.current = ""
		s.mu.Unlock()
	}()

	job := &Job{
		ID:      uuid.NewString(),
		Prompt:  prompt,
		Started: time.Now(),
	}
	s.logger.Info("job started",
		zap.String("job_id", job.ID),
		zap.String("backend", s.svc.Backend()),
		zap.String("prompt", prompt))

	job.Result, job.Err = s.svc.Generate(ctx, prompt)
	job.Finished = time.Now()

	switch {
	case job.Err != nil:
		s.logger.Error("job failed",
			zap.String("job_id", job.ID),
			zap.Error(job.Err))
	case !job.Result.Success:
		s.logger.Warn("job produced an unprintable mesh",
			zap.String("job_id", job.ID),
			zap.String("reason", job.Result.Reason))
	default:
		s.logger.Info("job finished",
			zap.String("job_id", job.ID),
			zap.String("output", job.Result.OutputPath),
			zap.Duration("elapsed", job.Finished.Sub(job.Started)))
	}
	return job, nil
}

// Status reports whether a job is running and, if so, its prompt.
func (s *Service) Status() (busy bool, current string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy, s.current
}
