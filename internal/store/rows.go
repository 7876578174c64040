package store

import (
	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
)

// ScanRow reads the current row of rows into a column-name keyed map.
// Byte slices are copied into strings because drivers may reuse them.
func ScanRow(rows Rows, cols []string) (model.Row, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, errors.Wrap(err, "scan row")
	}

	row := make(model.Row, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}

// ScanAll drains rows into memory and closes them.
func ScanAll(rows Rows) ([]model.Row, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}

	var out []model.Row
	for rows.Next() {
		row, err := ScanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return out, nil
}
