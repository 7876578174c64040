package export

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sheet"
	"go-pricewatch/internal/sqlq"
	"go-pricewatch/internal/store"
)

// DefaultFlushRows is how many rows are written between pushes to the
// client when no other value is configured.
const DefaultFlushRows = 64

// StreamingExporter pumps rows from a cursor on a leased connection into a
// workbook written straight into the response. Memory use does not depend
// on the number of rows.
type StreamingExporter struct {
	source     Leaser
	flushEvery int
	logger     *zap.SugaredLogger
}

// NewStreamingExporter creates a streaming exporter. flushEvery is the
// number of rows between flushes to the client; values below 1 use
// DefaultFlushRows.
func NewStreamingExporter(source Leaser, flushEvery int, logger *zap.SugaredLogger) *StreamingExporter {
	if flushEvery < 1 {
		flushEvery = DefaultFlushRows
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StreamingExporter{source: source, flushEvery: flushEvery, logger: logger}
}

// Mode implements Exporter.
func (e *StreamingExporter) Mode() string { return model.ModeStreaming }

// Run implements Exporter. Headers are committed as soon as the cursor is
// open; from then on a failure truncates the body and is returned as a
// write error. A client that goes away surfaces as a failed write on the
// next flush, which ends the job. A panic releases the job before it
// propagates.
func (e *StreamingExporter) Run(ctx context.Context, def *Definition, q sqlq.Query, w http.ResponseWriter) (int64, error) {
	conn, err := e.source.Lease(ctx)
	if err != nil {
		return 0, mark(err, ErrQuery, "lease export connection")
	}
	job := newJob(conn, nil, e.logger)
	defer func() {
		if p := recover(); p != nil {
			job.finish(errors.Newf("export panicked: %v", p))
			panic(p)
		}
	}()

	rows, err := conn.QueryContext(ctx, q.Text, q.Args...)
	if err != nil {
		return 0, job.finish(mark(err, ErrQuery, "open export cursor"))
	}
	job.rows = rows

	cols, err := rows.Columns()
	if err != nil {
		return 0, job.finish(mark(err, ErrQuery, "read cursor columns"))
	}

	SetDownloadHeaders(w.Header(), def)
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	sw, err := sheet.NewStreamWriter(w, def.SheetName, def.Widths())
	if err != nil {
		return 0, job.finish(mark(err, ErrWrite, "open workbook"))
	}
	job.attach(sw)

	if err := sw.WriteRow(def.Headers(), true); err != nil {
		return 0, job.finish(rowFailure(err))
	}

	var n int64
	for rows.Next() {
		row, err := store.ScanRow(rows, cols)
		if err != nil {
			return n, job.finish(cursorFailure(err))
		}
		values, err := def.Cells(row)
		if err != nil {
			return n, job.finish(err)
		}
		if err := sw.WriteRow(values, false); err != nil {
			return n, job.finish(rowFailure(err))
		}
		n++
		if n%int64(e.flushEvery) == 0 {
			if err := flush(sw, rc); err != nil {
				return n, job.finish(err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return n, job.finish(cursorFailure(err))
	}

	if err := job.finish(nil); err != nil {
		return n, err
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, mark(err, ErrWrite, "flush response")
	}

	e.logger.Debugw("Streaming export written", "export_type", def.ID, "rows", n)
	return n, nil
}

func flush(sw *sheet.StreamWriter, rc *http.ResponseController) error {
	if err := sw.Flush(); err != nil {
		return mark(err, ErrWrite, "flush workbook")
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return mark(err, ErrWrite, "flush response")
	}
	return nil
}

// cursorFailure is a data store error after the body has started. It is
// reported as a write failure too, because the client only sees a
// truncated workbook.
func cursorFailure(err error) error {
	return errors.Mark(mark(err, ErrQuery, "read export cursor"), ErrWrite)
}

func rowFailure(err error) error {
	if errors.Is(err, sheet.ErrCellValue) {
		return mark(err, ErrEncoding, "encode row")
	}
	return mark(err, ErrWrite, "write row")
}
