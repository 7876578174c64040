package export

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
)

// Outcome labels reported to observers.
const (
	OutcomeOK       = "ok"
	OutcomeQuery    = "query_error"
	OutcomeWrite    = "write_error"
	OutcomeEncoding = "encoding_error"
	OutcomeError    = "error"
)

// Outcome classifies the result of an exporter run.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case IsWriteError(err):
		return OutcomeWrite
	case IsQueryError(err):
		return OutcomeQuery
	case IsEncodingError(err):
		return OutcomeEncoding
	}
	return OutcomeError
}

// RunRecorder persists the audit trail of export runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, run model.ExportRun) error
	FinishRun(ctx context.Context, id string, status model.RunStatus, rows int64, runErr error, at time.Time) error
}

// Observer is told about every export that reaches an exporter.
type Observer interface {
	ExportStarted(mode string)
	ExportFinished(exportType, mode, outcome string, rows int64, elapsed time.Duration)
}

// Request selects an export type, its filters and the strategy.
type Request struct {
	Type      string
	Filters   Filters
	Streaming bool
}

// Result describes a finished run.
type Result struct {
	RunID string
	Mode  string
	Rows  int64
}

// DispatcherConfig wires a Dispatcher. Runs, Observer and Logger are
// optional.
type DispatcherConfig struct {
	Registry  *Registry
	Buffered  Exporter
	Streaming Exporter
	Runs      RunRecorder
	Observer  Observer
	Logger    *zap.SugaredLogger
}

// Dispatcher resolves an export request to a definition and runs the
// selected exporter against it.
type Dispatcher struct {
	registry  *Registry
	buffered  Exporter
	streaming Exporter
	runs      RunRecorder
	observer  Observer
	logger    *zap.SugaredLogger

	now   func() time.Time
	newID func() string
}

// NewDispatcher creates a dispatcher from cfg.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		registry:  cfg.Registry,
		buffered:  cfg.Buffered,
		streaming: cfg.Streaming,
		runs:      cfg.Runs,
		observer:  cfg.Observer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Registry returns the registry requests are resolved against.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch runs req and writes the workbook into w. Missing or unknown
// types and invalid filters fail before any data store access. Exporter
// failures are returned as is; the run is never reported as successful
// when the exporter failed, even if part of the body was sent.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, w http.ResponseWriter) (Result, error) {
	def, err := d.registry.Resolve(req.Type)
	if err != nil {
		return Result{}, err
	}
	q, err := def.Build(req.Filters)
	if err != nil {
		return Result{}, err
	}

	exp := d.buffered
	if req.Streaming {
		exp = d.streaming
	}
	res := Result{RunID: d.newID(), Mode: exp.Mode()}
	log := d.logger.With("export_type", def.ID, "mode", res.Mode, "run_id", res.RunID)

	start := d.now()
	d.saveRun(ctx, model.ExportRun{
		ID:         res.RunID,
		ExportType: def.ID,
		Mode:       res.Mode,
		Status:     model.RunRunning,
		StartedAt:  start,
	}, log)
	if d.observer != nil {
		d.observer.ExportStarted(res.Mode)
	}

	log.Debugw("Export started", "args", len(q.Args))
	defer func() {
		if p := recover(); p != nil {
			d.complete(ctx, def.ID, res, errors.Newf("export panicked: %v", p), start, log)
			panic(p)
		}
	}()
	res.Rows, err = exp.Run(ctx, def, q, w)
	return d.complete(ctx, def.ID, res, err, start, log)
}

// complete records the outcome of a run that reached an exporter.
func (d *Dispatcher) complete(ctx context.Context, exportType string, res Result, err error, start time.Time, log *zap.SugaredLogger) (Result, error) {
	elapsed := d.now().Sub(start)

	status := model.RunCompleted
	if err != nil {
		status = model.RunFailed
	}
	// The request context may already be cancelled by a disconnect.
	d.finishRun(context.WithoutCancel(ctx), res, status, err, start.Add(elapsed), log)
	if d.observer != nil {
		d.observer.ExportFinished(exportType, res.Mode, Outcome(err), res.Rows, elapsed)
	}

	if err != nil {
		log.Errorw("Export failed", "rows", res.Rows, "duration_ms", elapsed.Milliseconds(), "error", err)
		return res, err
	}
	log.Infow("Export completed", "rows", res.Rows, "duration_ms", elapsed.Milliseconds())
	return res, nil
}

func (d *Dispatcher) saveRun(ctx context.Context, run model.ExportRun, log *zap.SugaredLogger) {
	if d.runs == nil {
		return
	}
	if err := d.runs.SaveRun(ctx, run); err != nil {
		log.Warnw("Recording export run failed", "error", err)
	}
}

func (d *Dispatcher) finishRun(ctx context.Context, res Result, status model.RunStatus, runErr error, at time.Time, log *zap.SugaredLogger) {
	if d.runs == nil {
		return
	}
	if err := d.runs.FinishRun(ctx, res.RunID, status, res.Rows, runErr, at); err != nil {
		log.Warnw("Finishing export run failed", "error", err)
	}
}
