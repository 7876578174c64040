package export

import (
	"context"
	"net/http"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sqlq"
	"go-pricewatch/internal/store"
)

// BufferedExporter loads the whole result set, builds the workbook in
// memory and only then writes the response. Nothing is written when any
// step fails, so the caller can still answer with an error status.
type BufferedExporter struct {
	source Querier
	logger *zap.SugaredLogger
}

// NewBufferedExporter creates a buffered exporter reading from source.
func NewBufferedExporter(source Querier, logger *zap.SugaredLogger) *BufferedExporter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &BufferedExporter{source: source, logger: logger}
}

// Mode implements Exporter.
func (e *BufferedExporter) Mode() string { return model.ModeBuffered }

// Run implements Exporter.
func (e *BufferedExporter) Run(ctx context.Context, def *Definition, q sqlq.Query, w http.ResponseWriter) (int64, error) {
	rows, err := e.source.QueryContext(ctx, q)
	if err != nil {
		return 0, mark(err, ErrQuery, "run export query")
	}
	all, err := store.ScanAll(rows)
	if err != nil {
		return 0, mark(err, ErrQuery, "read export rows")
	}

	body, err := buildWorkbook(def, all)
	if err != nil {
		return 0, err
	}

	SetDownloadHeaders(w.Header(), def)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		return 0, mark(err, ErrWrite, "write workbook")
	}

	e.logger.Debugw("Buffered export written", "export_type", def.ID, "rows", len(all), "bytes", len(body))
	return int64(len(all)), nil
}

func buildWorkbook(def *Definition, rows []model.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := def.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, mark(err, ErrEncoding, "name sheet")
	}

	for i, c := range def.Columns {
		if c.Width <= 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, mark(err, ErrEncoding, "column name")
		}
		if err := f.SetColWidth(sheet, col, col, float64(c.Width)); err != nil {
			return nil, mark(err, ErrEncoding, "set column width")
		}
	}

	header := def.Headers()
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, mark(err, ErrEncoding, "write header row")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, mark(err, ErrEncoding, "create header style")
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, mark(err, ErrEncoding, "header range")
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, mark(err, ErrEncoding, "style header row")
	}

	for i, row := range rows {
		values, err := def.Cells(row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, mark(err, ErrEncoding, "row cell")
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, mark(err, ErrEncoding, "write row")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, mark(err, ErrEncoding, "serialize workbook")
	}
	return buf.Bytes(), nil
}
