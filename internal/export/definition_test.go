package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sqlq"
)

func lookup(t *testing.T, d sqlq.Dialect, id string) *Definition {
	t.Helper()
	def, ok := DefaultRegistry(d).Lookup(id)
	require.True(t, ok, id)
	return def
}

func TestBuildSubstringFilterSharesOneArgument(t *testing.T) {
	def := lookup(t, sqlq.Postgres, TypeRegiones)

	q, err := def.Build(Filters{"q": "metro"})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT r.id AS id, r.nombre AS nombre, r.codigo AS codigo, r.activo AS activo FROM regiones r`+
			` WHERE r.deleted_at IS NULL AND (r.nombre ILIKE $1 ESCAPE '\' OR r.codigo ILIKE $1 ESCAPE '\')`+
			` ORDER BY r.nombre, r.id`,
		q.Text)
	assert.Equal(t, []any{"%metro%"}, q.Args)
	requirePlaceholdersMatchArgs(t, q)
}

func TestBuildSubstringEscapesPatternCharacters(t *testing.T) {
	def := lookup(t, sqlq.SQLite, TypeMarcas)

	q, err := def.Build(Filters{"q": `50%_off\`})
	require.NoError(t, err)
	assert.Contains(t, q.Text, `m.nombre LIKE $1 ESCAPE '\'`)
	assert.NotContains(t, q.Text, "ILIKE")
	assert.Equal(t, []any{`%50\%\_off\\%`}, q.Args)
}

func TestBuildBooleanFilter(t *testing.T) {
	def := lookup(t, sqlq.Postgres, TypeRegiones)

	q, err := def.Build(Filters{"active": "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(q.Text, " = "))
	assert.Contains(t, q.Text, "r.activo = $1")
	assert.Equal(t, []any{true}, q.Args)
}

func TestBuildFalsyFilterIsPresent(t *testing.T) {
	def := lookup(t, sqlq.Postgres, TypeProductos)

	absent, err := def.Build(Filters{})
	require.NoError(t, err)
	falsy, err := def.Build(Filters{"active": "false"})
	require.NoError(t, err)
	zero, err := def.Build(Filters{"brand": "0"})
	require.NoError(t, err)

	assert.NotEqual(t, absent.Text, falsy.Text)
	assert.Equal(t, []any{false}, falsy.Args)
	assert.Contains(t, zero.Text, "p.marca_id = $1")
	assert.Equal(t, []any{int64(0)}, zero.Args)
}

func TestBuildWithoutFiltersKeepsOnlyBaseline(t *testing.T) {
	for _, def := range Definitions(sqlq.Postgres) {
		t.Run(def.ID, func(t *testing.T) {
			q, err := def.Build(nil)
			require.NoError(t, err)
			assert.Empty(t, q.Args)
			assert.NotNil(t, q.Args)

			if len(def.Baseline) == 0 {
				assert.NotContains(t, q.Text, "WHERE")
				return
			}
			assert.Contains(t, q.Text, " WHERE "+strings.Join(def.Baseline, " AND ")+" ORDER BY ")
		})
	}
}

func TestBuildWildcardsContributeNothing(t *testing.T) {
	def := lookup(t, sqlq.Postgres, TypeTiendas)

	none, err := def.Build(nil)
	require.NoError(t, err)
	wild, err := def.Build(Filters{"q": "", "region": "*", "chain": "Todos", "active": " all "})
	require.NoError(t, err)
	assert.Equal(t, none, wild)
}

func TestBuildAppliesFiltersInDeclaredOrder(t *testing.T) {
	def := lookup(t, sqlq.Postgres, TypePrecios)

	q, err := def.Build(Filters{"to": "2024-03-31", "brand": "4", "region": "2", "from": "2024-03-01", "store": "9", "product": "11"})
	require.NoError(t, err)

	assert.Contains(t, q.Text,
		"t.region_id = $1 AND pr.tienda_id = $2 AND pr.producto_id = $3 AND p.marca_id = $4"+
			" AND pr.capturado_en >= $5 AND pr.capturado_en < $6")
	assert.Equal(t, []any{
		int64(2), int64(9), int64(11), int64(4),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}, q.Args)
}

func TestBuildDateBoundsOnSQLite(t *testing.T) {
	def := lookup(t, sqlq.SQLite, TypeCheckins)

	q, err := def.Build(Filters{"from": "2024-02-28", "to": "2024-02-28"})
	require.NoError(t, err)
	assert.NotContains(t, q.Text, "WHERE  AND")
	assert.Contains(t, q.Text, " WHERE c.creado_en >= $1 AND c.creado_en < $2 ")
	assert.Equal(t, []any{"2024-02-28 00:00:00", "2024-02-29 00:00:00"}, q.Args)
}

func TestBuildInvalidFilterValues(t *testing.T) {
	cases := []struct {
		id      string
		filters Filters
	}{
		{TypeRegiones, Filters{"active": "maybe"}},
		{TypeProductos, Filters{"brand": "acme"}},
		{TypePrecios, Filters{"from": "01/02/2024"}},
		{TypeObservaciones, Filters{"to": "2024-13-01"}},
	}
	for _, tc := range cases {
		_, err := lookup(t, sqlq.Postgres, tc.id).Build(tc.filters)
		require.Error(t, err, tc.id)
		assert.True(t, errors.Is(err, ErrInvalidFilter))
		assert.True(t, errors.IsInvalidRequest(err), tc.id)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	filters := Filters{"q": "leche", "kind": "faltante", "region": "3", "store": "7", "from": "2024-01-01", "to": "2024-01-31"}
	def := lookup(t, sqlq.Postgres, TypeObservaciones)

	first, err := def.Build(filters)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := def.Build(filters)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// Every combination of declared filters, each present or absent, yields a
// query whose placeholders match its arguments.
func TestBuildPlaceholderCountMatchesArgs(t *testing.T) {
	sample := map[FilterKind]string{
		KindSubstring: "x_y%",
		KindEquals:    "zz-valor",
		KindInt:       "987654",
		KindBool:      "off",
		KindFrom:      "2024-01-01",
		KindTo:        "2024-12-31",
	}
	for _, d := range []sqlq.Dialect{sqlq.Postgres, sqlq.SQLite} {
		for _, def := range Definitions(d) {
			for mask := 0; mask < 1<<len(def.Filters); mask++ {
				f := Filters{}
				want := 0
				for i, fs := range def.Filters {
					if mask&(1<<i) != 0 {
						f[fs.Name] = sample[fs.Kind]
						want++
					}
				}
				q, err := def.Build(f)
				require.NoError(t, err)
				require.Len(t, q.Args, want, "%s %v", def.ID, f)
				requirePlaceholdersMatchArgs(t, q)
				for _, v := range sample {
					require.NotContains(t, q.Text, v, "values must not reach the query text")
				}
			}
		}
	}
}

func TestCellsMapsByKey(t *testing.T) {
	def := &Definition{Columns: []model.Column{
		{Header: "A", Key: "a"},
		{Header: "B", Key: "b"},
		{Header: "C", Key: "c"},
	}}

	cells, err := def.Cells(model.Row{"c": []byte("tres"), "a": int32(1), "extra": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), nil, "tres"}, cells)

	_, err = def.Cells(model.Row{"a": struct{}{}})
	assert.True(t, IsEncodingError(err))
}

func TestDefinitionAccessors(t *testing.T) {
	def := lookup(t, sqlq.Postgres, TypeCheckins)
	assert.Equal(t, "checkins.xlsx", def.Filename())
	assert.Equal(t, []string{"region", "store", "user", "from", "to"}, def.FilterNames())
	assert.Equal(t, []any{"ID", "Fecha", "Usuario", "Tienda", "Región"}, def.Headers())
	assert.Equal(t, []int{10, 20, 24, 30, 20}, def.Widths())
}
