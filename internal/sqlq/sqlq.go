// Package sqlq builds parameterized SQL fragments. Values never reach the
// query text: every value becomes a positional $n argument.
package sqlq

import (
	"strconv"
	"strings"
	"time"
)

// Query is SQL text plus its positional arguments. The highest $n
// placeholder in Text equals len(Args).
type Query struct {
	Text string
	Args []any
}

// Dialect captures the few places where the supported databases differ.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// DialectForDriver maps a database/sql driver name to its dialect.
func DialectForDriver(driver string) (Dialect, bool) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, true
	case "sqlite3", "sqlite":
		return SQLite, true
	}
	return 0, false
}

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// LikeOp is the case-insensitive pattern operator. SQLite's LIKE already
// ignores ASCII case.
func (d Dialect) LikeOp() string {
	if d == SQLite {
		return "LIKE"
	}
	return "ILIKE"
}

// TimeArg renders a timestamp bound the way the dialect stores timestamps.
func (d Dialect) TimeArg(t time.Time) any {
	if d == SQLite {
		return t.Format("2006-01-02 15:04:05")
	}
	return t
}

// Placeholder returns the n-th positional placeholder.
func Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a LIKE pattern matching s anywhere, with LIKE
// metacharacters in s escaped for ESCAPE '\'.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Where accumulates AND-joined conditions.
type Where struct {
	dialect Dialect
	clauses []string
	args    []any
}

// NewWhere starts an empty condition list. Fixed conditions such as soft
// delete exclusion can be passed as baseline and take no arguments.
func NewWhere(d Dialect, baseline ...string) *Where {
	w := &Where{dialect: d}
	w.clauses = append(w.clauses, baseline...)
	return w
}

func (w *Where) bind(v any) string {
	w.args = append(w.args, v)
	return Placeholder(len(w.args))
}

// Cmp appends "col op $n".
func (w *Where) Cmp(col, op string, v any) *Where {
	w.clauses = append(w.clauses, col+" "+op+" "+w.bind(v))
	return w
}

// Eq appends "col = $n".
func (w *Where) Eq(col string, v any) *Where {
	return w.Cmp(col, "=", v)
}

// Contains appends one OR group matching s as a substring of any of cols.
// The group consumes a single argument shared by every comparison.
func (w *Where) Contains(s string, cols ...string) *Where {
	if len(cols) == 0 {
		return w
	}
	ph := w.bind(ContainsPattern(s))
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col + " " + w.dialect.LikeOp() + " " + ph + ` ESCAPE '\'`
	}
	if len(parts) == 1 {
		w.clauses = append(w.clauses, parts[0])
	} else {
		w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
	}
	return w
}

// Len is the number of conditions, baseline included.
func (w *Where) Len() int { return len(w.clauses) }

// Args returns the bound arguments in placeholder order.
func (w *Where) Args() []any { return w.args }

// SQL renders " WHERE a AND b", or "" when there are no conditions.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Select assembles base + WHERE + trailing clauses (ORDER BY and the like).
func Select(base string, w *Where, tail string) Query {
	text := base + w.SQL()
	if tail != "" {
		text += " " + tail
	}
	args := w.Args()
	if args == nil {
		args = []any{}
	}
	return Query{Text: text, Args: args}
}

// Set accumulates assignments for an UPDATE built from optional fields.
type Set struct {
	cols []string
	args []any
}

// Add assigns v to col.
func (s *Set) Add(col string, v any) *Set {
	s.cols = append(s.cols, col)
	s.args = append(s.args, v)
	return s
}

// AddIf assigns v to col only when present is true.
func (s *Set) AddIf(present bool, col string, v any) *Set {
	if present {
		s.Add(col, v)
	}
	return s
}

// Len is the number of assignments.
func (s *Set) Len() int { return len(s.cols) }

// Update renders "UPDATE table SET a = $1, b = $2 WHERE keyCol = $3".
// ok is false when there is nothing to assign.
func (s *Set) Update(table, keyCol string, key any) (q Query, ok bool) {
	if len(s.cols) == 0 {
		return Query{}, false
	}
	parts := make([]string, len(s.cols))
	for i, col := range s.cols {
		parts[i] = col + " = " + Placeholder(i+1)
	}
	args := append(append([]any{}, s.args...), key)
	text := "UPDATE " + table + " SET " + strings.Join(parts, ", ") +
		" WHERE " + keyCol + " = " + Placeholder(len(args))
	return Query{Text: text, Args: args}, true
}
