package export

import (
	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sheet"
	"go-pricewatch/internal/sqlq"
	"go-pricewatch/pkg/utils"
)

// FilterKind selects how a filter value is coerced and compared.
type FilterKind string

const (
	KindSubstring FilterKind = "substring"
	KindEquals    FilterKind = "equals"
	KindInt       FilterKind = "int"
	KindBool      FilterKind = "bool"
	KindFrom      FilterKind = "from"
	KindTo        FilterKind = "to"
)

// FilterSpec declares one optional filter of an export type.
type FilterSpec struct {
	Name    string     `json:"name"`
	Kind    FilterKind `json:"kind"`
	Columns []string   `json:"-"`
}

// Substring matches the value anywhere in any of cols, case-insensitively.
func Substring(name string, cols ...string) FilterSpec {
	return FilterSpec{Name: name, Kind: KindSubstring, Columns: cols}
}

// Equals compares col with the value as text.
func Equals(name, col string) FilterSpec {
	return FilterSpec{Name: name, Kind: KindEquals, Columns: []string{col}}
}

// Int compares col with the value parsed as an integer.
func Int(name, col string) FilterSpec {
	return FilterSpec{Name: name, Kind: KindInt, Columns: []string{col}}
}

// Bool compares col with the value parsed as a boolean.
func Bool(name, col string) FilterSpec {
	return FilterSpec{Name: name, Kind: KindBool, Columns: []string{col}}
}

// From keeps rows whose col falls on or after the given date.
func From(name, col string) FilterSpec {
	return FilterSpec{Name: name, Kind: KindFrom, Columns: []string{col}}
}

// To keeps rows whose col falls on or before the given date.
func To(name, col string) FilterSpec {
	return FilterSpec{Name: name, Kind: KindTo, Columns: []string{col}}
}

func (fs FilterSpec) apply(w *sqlq.Where, d sqlq.Dialect, raw string) error {
	switch fs.Kind {
	case KindSubstring:
		w.Contains(raw, fs.Columns...)
	case KindEquals:
		w.Eq(fs.Columns[0], raw)
	case KindInt:
		n, err := utils.ParseInt(raw)
		if err != nil {
			return err
		}
		w.Eq(fs.Columns[0], n)
	case KindBool:
		b, err := utils.ParseBool(raw)
		if err != nil {
			return err
		}
		w.Eq(fs.Columns[0], b)
	case KindFrom:
		day, err := utils.ParseDate(raw)
		if err != nil {
			return err
		}
		w.Cmp(fs.Columns[0], ">=", d.TimeArg(day))
	case KindTo:
		day, err := utils.ParseDate(raw)
		if err != nil {
			return err
		}
		w.Cmp(fs.Columns[0], "<", d.TimeArg(day.AddDate(0, 0, 1)))
	default:
		return errors.Newf("unknown filter kind %q", fs.Kind)
	}
	return nil
}

// Definition is one export type: where its rows come from, which filters it
// accepts and how its sheet looks. Definitions are immutable once
// registered.
type Definition struct {
	ID           string
	FilenameStem string
	SheetName    string
	Columns      []model.Column

	// Filters are applied in declaration order.
	Filters []FilterSpec

	// Select is the SELECT ... FROM ... JOIN part of the query. Column
	// aliases must match Columns keys.
	Select string
	// Baseline conditions are always enforced and take no arguments.
	Baseline []string
	OrderBy  string

	Dialect sqlq.Dialect
}

// Build turns request filters into a parameterized query. It does no I/O
// and returns the same query for the same filters.
func (d *Definition) Build(f Filters) (sqlq.Query, error) {
	w := sqlq.NewWhere(d.Dialect, d.Baseline...)
	for _, fs := range d.Filters {
		raw, ok := f.Lookup(fs.Name)
		if !ok {
			continue
		}
		if err := fs.apply(w, d.Dialect, raw); err != nil {
			err = errors.Mark(errors.Wrapf(err, "filter %s", fs.Name), ErrInvalidFilter)
			return sqlq.Query{}, errors.Mark(err, errors.ErrInvalidRequest)
		}
	}
	tail := ""
	if d.OrderBy != "" {
		tail = "ORDER BY " + d.OrderBy
	}
	return sqlq.Select(d.Select, w, tail), nil
}

// Filename is the download file name.
func (d *Definition) Filename() string {
	return d.FilenameStem + ".xlsx"
}

// Headers returns the header row.
func (d *Definition) Headers() []any {
	out := make([]any, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Header
	}
	return out
}

// Widths returns the column widths in column order.
func (d *Definition) Widths() []int {
	out := make([]int, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Width
	}
	return out
}

// FilterNames lists the accepted filter names in application order.
func (d *Definition) FilterNames() []string {
	out := make([]string, len(d.Filters))
	for i, fs := range d.Filters {
		out[i] = fs.Name
	}
	return out
}

// Cells maps row onto the column schema. Missing keys become empty cells
// and keys outside the schema are ignored.
func (d *Definition) Cells(row model.Row) ([]any, error) {
	out := make([]any, len(d.Columns))
	for i, c := range d.Columns {
		v, err := sheet.Normalize(row[c.Key])
		if err != nil {
			return nil, mark(err, ErrEncoding, "column "+c.Key)
		}
		out[i] = v
	}
	return out, nil
}
