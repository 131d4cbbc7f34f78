// Package processing is the validate-and-process entrypoint: scenario data is
// checked against the project definition, region processed, re-validated and
// recorded as a run.
package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/starford/nomenclature/internal/checksum"
	"github.com/starford/nomenclature/internal/codelist"
	"github.com/starford/nomenclature/internal/diagstore"
	"github.com/starford/nomenclature/internal/iamc"
	"github.com/starford/nomenclature/internal/models"
	"github.com/starford/nomenclature/internal/project"
	"github.com/starford/nomenclature/internal/region"
)

// ErrProjectUnavailable wraps errors loading the project definitions.
var ErrProjectUnavailable = errors.New("project unavailable")

// ProjectSource provides the current project. *project.Cache satisfies it.
type ProjectSource interface {
	Get() (*project.Project, error)
}

// Publisher is notified of completed runs. *sse.Broker satisfies it.
type Publisher interface {
	PublishRun(run models.RunSummary)
}

// Report is the outcome of one processing run.
type Report struct {
	Run         models.RunSummary   `json:"run"`
	Frame       *iamc.Frame         `json:"-"`
	Differences []region.Difference `json:"differences"`
}

// Service coordinates project definitions, region processing and run
// persistence.
type Service struct {
	source    ProjectSource
	store     diagstore.RunStore
	publisher Publisher
	rtol      float64
	atol      float64
	workers   int
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists every run and its differences.
func WithStore(s diagstore.RunStore) Option {
	return func(svc *Service) { svc.store = s }
}

// WithPublisher announces every completed run.
func WithPublisher(p Publisher) Option {
	return func(svc *Service) { svc.publisher = p }
}

// WithTolerance sets the reconciliation tolerances.
func WithTolerance(rtol, atol float64) Option {
	return func(svc *Service) {
		svc.rtol = rtol
		svc.atol = atol
	}
}

// WithWorkers bounds per-model concurrency.
func WithWorkers(n int) Option {
	return func(svc *Service) { svc.workers = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// NewService creates a processing service over source.
func NewService(source ProjectSource, opts ...Option) *Service {
	s := &Service{
		source:  source,
		rtol:    region.DefaultRTol,
		workers: 1,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Project returns the current project.
func (s *Service) Project() (*project.Project, error) {
	p, err := s.source.Get()
	if err != nil {
		return nil, fmt.Errorf("processing: %w: %w", ErrProjectUnavailable, err)
	}
	return p, nil
}

// Store returns the run store, or nil if runs are not persisted.
func (s *Service) Store() diagstore.RunStore {
	return s.store
}

// ProcessCSV reads a wide or long IAMC CSV and processes it. name is
// recorded as the run's source.
func (s *Service) ProcessCSV(ctx context.Context, name string, data []byte) (*Report, error) {
	f, err := iamc.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("processing: %w", err)
	}
	return s.process(ctx, f, name, checksum.Sum(data))
}

// Process validates f against the project definition, applies region
// processing when the project has model mappings, validates the resulting
// regions and records the run.
func (s *Service) Process(ctx context.Context, f *iamc.Frame) (*Report, error) {
	var buf bytes.Buffer
	if err := iamc.WriteCSV(&buf, f); err != nil {
		return nil, fmt.Errorf("processing: %w", err)
	}
	return s.process(ctx, f, "", checksum.Sum(buf.Bytes()))
}

func (s *Service) process(ctx context.Context, f *iamc.Frame, source, sum string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proj, err := s.Project()
	if err != nil {
		return nil, err
	}
	def := proj.Definition
	proc := proj.Processor(
		region.WithTolerance(s.rtol, s.atol),
		region.WithWorkers(s.workers),
		region.WithLogger(s.logger),
	)

	// Native region names are only checked after processing renamed them.
	dims := def.Dimensions()
	if proc != nil {
		dims = slices.DeleteFunc(dims, func(d string) bool { return d == codelist.DimRegion })
	}
	if err := def.Validate(f, s.logger, dims...); err != nil {
		return nil, fmt.Errorf("processing: validate: %w", err)
	}

	out, diffs := f, []region.Difference(nil)
	if proc != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := proc.Apply(f)
		if err != nil {
			return nil, fmt.Errorf("processing: %w", err)
		}
		out, diffs = res.Frame, res.Differences
		if _, ok := def.CodeList(codelist.DimRegion); ok {
			if err := def.Validate(out, s.logger, codelist.DimRegion); err != nil {
				return nil, fmt.Errorf("processing: validate output: %w", err)
			}
		}
	}
	if diffs == nil {
		diffs = []region.Difference{}
	}

	run := models.RunSummary{
		ID:         uuid.NewString(),
		Source:     source,
		Checksum:   sum,
		Models:     f.Models(),
		InputRows:  f.Len(),
		OutputRows: out.Len(),
		RTol:       s.rtol,
		ATol:       s.atol,
		CreatedAt:  time.Now().UTC(),
	}
	if s.store != nil {
		run, err = s.store.SaveRun(run, diffs)
		if err != nil {
			return nil, fmt.Errorf("processing: %w", err)
		}
	} else {
		run.Differences = len(diffs)
	}
	s.logger.Info("processing: run completed",
		slog.String("run_id", run.ID),
		slog.String("source", run.Source),
		slog.Int("input_rows", run.InputRows),
		slog.Int("output_rows", run.OutputRows),
		slog.Int("differences", run.Differences))

	if s.publisher != nil {
		s.publisher.PublishRun(run)
	}
	return &Report{Run: run, Frame: out, Differences: diffs}, nil
}
