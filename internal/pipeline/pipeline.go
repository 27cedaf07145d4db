package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
)

// Extractor reads the three raw datasets.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawTables, error)
}

// Transformer coerces raw rows into typed records.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawTables) (domain.Tables, error)
}

// Loader publishes a finished report to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, report domain.Report) error
}

// Run stages, in order.
const (
	StagePending   = "pending"
	StageExtract   = "extract"
	StageTransform = "transform"
	StageAnalyze   = "analyze"
	StageLoad      = "load"
	StageDone      = "done"
	StageFailed    = "failed"
)

// Pipeline orchestrates one extract-transform-analyze-load run.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	opts        domain.AnalyzeOptions
	logger      *slog.Logger
	metrics     *observability.Metrics
	stage       atomic.Value // string
}

// New creates a Pipeline. Loaders run in the order given.
func New(e Extractor, t Transformer, loaders []Loader, opts domain.AnalyzeOptions, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
	}
	p.stage.Store(StagePending)
	return p
}

// Stage returns the stage the run is currently in.
func (p *Pipeline) Stage() string {
	return p.stage.Load().(string)
}

// CheckReadiness returns nil once the report has been computed, or an error
// naming the stage the run is still in.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	switch stage := p.Stage(); stage {
	case StageLoad, StageDone:
		return nil
	default:
		return fmt.Errorf("report not ready: stage %s", stage)
	}
}

// Run executes the pipeline once. Extraction and transformation errors abort
// the run. Every loader is attempted even when an earlier one fails; the
// returned report is complete in that case and the error joins the failures.
func (p *Pipeline) Run(ctx context.Context, runID string) (report domain.Report, err error) {
	logger := p.logger.With("run_id", runID)
	defer func() {
		if err != nil {
			p.stage.Store(StageFailed)
			p.metrics.LastRunSuccess.Set(0)
			return
		}
		p.stage.Store(StageDone)
		p.metrics.LastRunSuccess.Set(1)
	}()

	p.stage.Store(StageExtract)
	start := time.Now()
	raw, err := p.extractor.Extract(ctx)
	p.observeStage(StageExtract, start)
	if err != nil {
		return domain.Report{}, fmt.Errorf("extract: %w", err)
	}
	logger.Info("extract finished",
		"collisions", len(raw.Collisions),
		"incomes", len(raw.Incomes),
		"potholes", len(raw.Potholes),
	)

	p.stage.Store(StageTransform)
	start = time.Now()
	tables, err := p.transformer.Transform(ctx, raw)
	p.observeStage(StageTransform, start)
	if err != nil {
		return domain.Report{}, fmt.Errorf("transform: %w", err)
	}
	p.recordStats(tables)
	logger.Info("transform finished",
		"collisions", len(tables.Collisions),
		"incomes", len(tables.Incomes),
		"potholes", len(tables.Potholes),
	)

	p.stage.Store(StageAnalyze)
	start = time.Now()
	report = domain.Analyze(tables, runID, p.opts)
	p.observeStage(StageAnalyze, start)

	p.stage.Store(StageLoad)
	start = time.Now()
	err = p.load(ctx, logger, report)
	p.observeStage(StageLoad, start)
	if err != nil {
		return report, err
	}

	logger.Info("run finished", "sinks", len(p.loaders))
	return report, nil
}

func (p *Pipeline) load(ctx context.Context, logger *slog.Logger, report domain.Report) error {
	var errs []error
	for _, l := range p.loaders {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := l.Load(ctx, report); err != nil {
			logger.Error("sink failed", "sink", l.Name(), "error", err)
			p.metrics.SinkErrors.WithLabelValues(l.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s sink: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) recordStats(t domain.Tables) {
	for _, ds := range []struct {
		name  string
		stats domain.TableStats
	}{
		{"collisions", t.CollisionStats},
		{"incomes", t.IncomeStats},
		{"potholes", t.PotholeStats},
	} {
		p.metrics.RowsRead.WithLabelValues(ds.name).Add(float64(ds.stats.Read))
		p.metrics.RowsKept.WithLabelValues(ds.name).Add(float64(ds.stats.Kept))
		for reason, n := range ds.stats.Dropped {
			p.metrics.RowsDropped.WithLabelValues(ds.name, string(reason)).Add(float64(n))
		}
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
