// Package pipeline drives a harvest run from catalogue to sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/common/metrics"
	"sdmx-harvester/internal/common/validation"
	"sdmx-harvester/internal/harvest"
	"sdmx-harvester/internal/notify"
	"sdmx-harvester/internal/record"
	"sdmx-harvester/internal/sdmx"
	"sdmx-harvester/internal/sink"
	"sdmx-harvester/internal/state"
)

type Config struct {
	Source            string
	BatchSize         int
	AllowedDimensions []string
	DataflowPattern   *regexp.Regexp
}

type RunOptions struct {
	// Force harvests even when the catalogue version is unchanged.
	Force bool
	// DryRun builds and validates records without writing them anywhere.
	DryRun bool
}

// RunObserver receives one call per finished run.
type RunObserver interface {
	RecordRun(ctx context.Context, source, status string, duration time.Duration, records int64)
}

// Dependencies are the collaborators of a Runner. Store, Notifier and
// Observer are optional.
type Dependencies struct {
	Source    harvest.DataflowSource
	Builder   *record.Builder
	Validator *validation.SchemaValidator
	Sink      sink.Sink
	Store     state.Store
	Notifier  notify.Notifier
	Observer  RunObserver
}

type Runner struct {
	cfg    Config
	deps   Dependencies
	logger logger.Logger
	now    func() time.Time
}

func NewRunner(cfg Config, deps Dependencies, log logger.Logger) *Runner {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Runner{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "pipeline", "source": cfg.Source}),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for report timestamps.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run performs one harvest. The report is always returned; the error is set
// when the report status is failed.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	rep := &Report{
		RunID:     uuid.NewString(),
		Source:    r.cfg.Source,
		DryRun:    opts.DryRun,
		StartedAt: r.now().UTC(),
	}
	log := r.logger.WithFields(map[string]interface{}{"runId": rep.RunID})

	log.Info("Harvest started", map[string]interface{}{
		"force":  opts.Force,
		"dryRun": opts.DryRun,
	})

	ex := harvest.NewExtractor(r.deps.Source, harvest.Options{
		AllowedDimensions: r.cfg.AllowedDimensions,
		DataflowPattern:   r.cfg.DataflowPattern,
		OnSkip: func(df sdmx.Dataflow, _ error) {
			rep.SkippedDataflows = append(rep.SkippedDataflows, df.ID)
		},
	}, log)

	if err := ex.Init(ctx); err != nil {
		return r.finish(ctx, log, rep, err)
	}
	rep.Version = ex.Version()
	rep.DataflowsListed = ex.Listed()
	rep.DataflowsSelected = ex.Selected()

	if !opts.Force && r.unchanged(ctx, log, rep.Version) {
		rep.Status = StatusUnchanged
		return r.finish(ctx, log, rep, nil)
	}

	it, err := ex.Iterator()
	if err != nil {
		return r.finish(ctx, log, rep, err)
	}

	runErr := r.drain(ctx, log, it, rep, opts.DryRun)

	stats := it.Stats()
	rep.DataflowsExpanded = stats.DataflowsExpanded
	rep.DataflowsSkipped = stats.DataflowsSkipped

	if runErr == nil && rep.RecordsEmitted == 0 && rep.DataflowsExpanded == 0 {
		runErr = commonerrors.NewNoRecordsError(r.cfg.Source)
	}

	return r.finish(ctx, log, rep, runErr)
}

// unchanged reports whether the last completed run saw version already.
// State errors are logged and treated as a miss.
func (r *Runner) unchanged(ctx context.Context, log logger.Logger, version string) bool {
	if r.deps.Store == nil || version == "" {
		return false
	}
	prev, err := r.deps.Store.Load(ctx, r.cfg.Source)
	if err != nil {
		log.Warn("Harvest state unavailable, harvesting anyway", map[string]interface{}{"error": err.Error()})
		return false
	}
	if prev == nil || prev.Version != version {
		return false
	}
	log.Info("Catalogue unchanged since last run", map[string]interface{}{
		"version":   version,
		"lastRunId": prev.RunID,
	})
	return true
}

// drain pulls every item, builds and validates its record and writes full
// batches. A fatal iterator error stops the run without writing the
// pending batch.
func (r *Runner) drain(ctx context.Context, log logger.Logger, it *harvest.Iterator, rep *Report, dryRun bool) error {
	batch := make([]*record.Document, 0, r.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if !dryRun {
			if err := r.deps.Sink.Write(ctx, batch); err != nil {
				return err
			}
		}
		rep.RecordsEmitted += int64(len(batch))
		metrics.HarvestRecordsEmitted.WithLabelValues(r.cfg.Source).Add(float64(len(batch)))
		batch = batch[:0]
		return nil
	}

	for item, err := range it.All(ctx) {
		if err != nil {
			return classify(err)
		}

		doc := r.deps.Builder.Build(item)
		if !r.valid(log, doc) {
			rep.RecordsRejected++
			metrics.HarvestRecordsRejected.WithLabelValues(r.cfg.Source).Inc()
			continue
		}

		batch = append(batch, doc)
		if len(batch) >= r.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

func (r *Runner) valid(log logger.Logger, doc *record.Document) bool {
	if r.deps.Validator == nil {
		return true
	}
	result, err := r.deps.Validator.Validate(doc)
	if err == nil && result.Valid {
		return true
	}

	var details string
	if err != nil {
		details = err.Error()
	} else {
		details = fmt.Sprint(result.Messages())
	}
	verr := commonerrors.NewRecordValidationFailedError(doc.Identifier.Value, details)
	log.Warn("Record rejected", map[string]interface{}{
		"identifier": doc.Identifier.Value,
		"errorCode":  verr.Code,
		"details":    verr.Details,
	})
	return false
}

// classify maps fatal iterator errors onto error codes.
func classify(err error) error {
	switch {
	case errors.Is(err, harvest.ErrInvariantViolation):
		return commonerrors.NewInvariantViolationError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return commonerrors.NewTimeoutError("harvest", err)
	default:
		return err
	}
}

func (r *Runner) finish(ctx context.Context, log logger.Logger, rep *Report, err error) (*Report, error) {
	rep.FinishedAt = r.now().UTC()
	switch {
	case err != nil:
		rep.Status = StatusFailed
		rep.Error = err.Error()
		if stdErr, ok := commonerrors.AsStandardError(err); ok && stdErr.Details != "" {
			rep.Error = fmt.Sprintf("%s: %s", stdErr.Message, stdErr.Details)
		}
	case rep.Status == "":
		rep.Status = StatusCompleted
	}

	metrics.HarvestRuns.WithLabelValues(rep.Source, rep.Status).Inc()
	metrics.HarvestRunDuration.WithLabelValues(rep.Source).Observe(rep.Duration().Seconds())
	metrics.HarvestDataflows.WithLabelValues(rep.Source, "expanded").Add(float64(rep.DataflowsExpanded))
	metrics.HarvestDataflows.WithLabelValues(rep.Source, "skipped").Add(float64(rep.DataflowsSkipped))

	// Bookkeeping uses its own context so a cancelled run is still reported.
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if rep.Status == StatusCompleted && !rep.DryRun && r.deps.Store != nil {
		saveErr := r.deps.Store.Save(bg, &state.RunState{
			Source:            rep.Source,
			Version:           rep.Version,
			RunID:             rep.RunID,
			Records:           rep.RecordsEmitted,
			DataflowsExpanded: rep.DataflowsExpanded,
			DataflowsSkipped:  rep.DataflowsSkipped,
			FinishedAt:        rep.FinishedAt,
		})
		if saveErr != nil {
			log.Error("Failed to save harvest state", map[string]interface{}{"error": saveErr.Error()})
		}
	}

	if rep.Status != StatusUnchanged && !rep.DryRun && r.deps.Notifier != nil {
		notifyErr := r.deps.Notifier.Notify(bg, notify.Notification{
			Subject: fmt.Sprintf("Harvest %s %s", rep.Source, rep.Status),
			Source:  rep.Source,
			Status:  rep.Status,
			RunID:   rep.RunID,
			Payload: rep,
		})
		if notifyErr != nil {
			log.Warn("Failed to publish run report", map[string]interface{}{"error": notifyErr.Error()})
		}
	}

	if r.deps.Observer != nil {
		r.deps.Observer.RecordRun(bg, rep.Source, rep.Status, rep.Duration(), rep.RecordsEmitted)
	}

	fields := map[string]interface{}{
		"status":            rep.Status,
		"version":           rep.Version,
		"recordsEmitted":    rep.RecordsEmitted,
		"recordsRejected":   rep.RecordsRejected,
		"dataflowsExpanded": rep.DataflowsExpanded,
		"dataflowsSkipped":  rep.DataflowsSkipped,
		"durationMs":        rep.Duration().Milliseconds(),
	}
	if err != nil {
		fields["error"] = rep.Error
		log.Error("Harvest failed", fields)
	} else {
		log.Info("Harvest finished", fields)
	}

	return rep, err
}
