package export

import (
	"sync"

	"go.uber.org/zap"

	"go-pricewatch/internal/sheet"
	"go-pricewatch/internal/store"
)

// Job owns the resources of one streaming export: the leased connection,
// the cursor open on it and the workbook writer bound to the response.
// finish releases all of them exactly once, whichever terminal event
// arrives first.
type Job struct {
	conn   store.Conn
	rows   store.Rows
	writer *sheet.StreamWriter
	logger *zap.SugaredLogger

	once sync.Once
	err  error
}

func newJob(conn store.Conn, rows store.Rows, logger *zap.SugaredLogger) *Job {
	return &Job{conn: conn, rows: rows, logger: logger}
}

func (j *Job) attach(w *sheet.StreamWriter) { j.writer = w }

// finish ends the job. A nil cause completes the workbook; any other cause
// aborts it so the output stays truncated. The cursor is closed and the
// connection released in both cases. Later calls return the first
// outcome without touching anything.
func (j *Job) finish(cause error) error {
	j.once.Do(func() {
		if j.writer != nil {
			if cause == nil {
				if err := j.writer.Close(); err != nil {
					cause = mark(err, ErrWrite, "finish workbook")
				}
			} else {
				j.writer.Abort()
			}
		}
		if j.rows != nil {
			if err := j.rows.Close(); err != nil {
				j.logger.Warnw("Closing export cursor failed", "error", err)
			}
		}
		if j.conn != nil {
			if err := j.conn.Close(); err != nil {
				j.logger.Warnw("Releasing export connection failed", "error", err)
			}
		}
		j.err = cause
		j.logger.Debugw("Export job released", "failed", cause != nil)
	})
	return j.err
}
