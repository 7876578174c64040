package store

import (
	"context"
	"database/sql"
	"time"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sqlq"
)

// SaveRun stores a new export run in the running state.
func (s *Store) SaveRun(ctx context.Context, run model.ExportRun) error {
	err := withRetry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO export_runs (id, export_type, mode, status, row_count, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID, run.ExportType, run.Mode, string(run.Status), run.RowCount, run.StartedAt.UTC())
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "save export run %s", run.ID)
	}
	return nil
}

// FinishRun moves a run to a terminal status. The error message is only
// written when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, id string, status model.RunStatus, rows int64, runErr error, at time.Time) error {
	var set sqlq.Set
	set.Add("status", string(status)).
		Add("row_count", rows)
	if runErr != nil {
		set.Add("error_message", runErr.Error())
	}
	set.Add("finished_at", at.UTC())

	q, _ := set.Update("export_runs", "id", id)
	var res sql.Result
	err := withRetry(ctx, s.retry, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, q.Text, q.Args...)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "finish export run %s", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("export run %s", id)
	}
	return nil
}

const runColumns = `id, export_type, mode, status, row_count, error_message, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (model.ExportRun, error) {
	var run model.ExportRun
	var status string
	var errMsg sql.NullString
	var finished sql.NullTime
	if err := sc.Scan(&run.ID, &run.ExportType, &run.Mode, &status, &run.RowCount, &errMsg, &run.StartedAt, &finished); err != nil {
		return run, err
	}
	run.Status = model.RunStatus(status)
	run.ErrorMessage = errMsg.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.ExportRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM export_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list export runs")
	}
	defer rows.Close()

	runs := []model.ExportRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan export run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate export runs")
	}
	return runs, nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (model.ExportRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM export_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return run, errors.NewNotFoundError("export run %s", id)
	}
	if err != nil {
		return run, errors.Wrapf(err, "get export run %s", id)
	}
	return run, nil
}
