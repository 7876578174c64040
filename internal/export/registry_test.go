package export

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sqlq"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(sqlq.Postgres)

	var ids []string
	for _, d := range r.List() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"checkins", "marcas", "observaciones", "precios", "productos", "regiones", "tiendas"}, ids)

	def, ok := r.Lookup(TypeCheckins)
	require.True(t, ok)
	assert.Equal(t, "Check-ins", def.SheetName)
	assert.Empty(t, def.Baseline)

	_, ok = r.Lookup("usuarios")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	r := DefaultRegistry(sqlq.SQLite)

	def, err := r.Resolve(TypePrecios)
	require.NoError(t, err)
	assert.Equal(t, sqlq.SQLite, def.Dialect)

	for _, id := range []string{"", "  ", "usuarios"} {
		_, err := r.Resolve(id)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration), id)
		assert.True(t, errors.IsInvalidRequest(err), id)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	a := Definitions(sqlq.Postgres)[0]
	b := Definitions(sqlq.Postgres)[0]

	_, err := NewRegistry(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "registered twice")
	assert.False(t, errors.IsInvalidRequest(err))

	assert.Panics(t, func() { MustRegistry(a, b) })
}

func TestNewRegistryValidatesDefinitions(t *testing.T) {
	valid := func() *Definition {
		return &Definition{
			ID:           "x",
			FilenameStem: "x",
			SheetName:    "X",
			Columns:      []model.Column{{Header: "A", Key: "a"}},
			Select:       "SELECT a FROM x",
		}
	}
	_, err := NewRegistry(valid())
	require.NoError(t, err)

	cases := map[string]func(d *Definition){
		"no id":           func(d *Definition) { d.ID = "" },
		"no stem":         func(d *Definition) { d.FilenameStem = " " },
		"stem with slash": func(d *Definition) { d.FilenameStem = "../x" },
		"no sheet":        func(d *Definition) { d.SheetName = "" },
		"long sheet":      func(d *Definition) { d.SheetName = strings.Repeat("s", MaxSheetNameLen+1) },
		"bad sheet":       func(d *Definition) { d.SheetName = "a/b" },
		"no columns":      func(d *Definition) { d.Columns = nil },
		"no select":       func(d *Definition) { d.Select = "" },
		"empty key":       func(d *Definition) { d.Columns = append(d.Columns, model.Column{Header: "B"}) },
		"repeated key":    func(d *Definition) { d.Columns = append(d.Columns, model.Column{Header: "B", Key: "a"}) },
		"reserved filter": func(d *Definition) { d.Filters = []FilterSpec{Equals("type", "x.type")} },
		"repeated filter": func(d *Definition) { d.Filters = []FilterSpec{Equals("q", "a"), Equals("q", "b")} },
		"no filter col":   func(d *Definition) { d.Filters = []FilterSpec{Substring("q")} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := valid()
			mutate(d)
			_, err := NewRegistry(d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}

	d := valid()
	d.SheetName = strings.Repeat("ñ", MaxSheetNameLen)
	_, err = NewRegistry(d)
	assert.NoError(t, err, "the limit counts characters, not bytes")
}

func TestRegistryConcurrentLookups(t *testing.T) {
	r := DefaultRegistry(sqlq.Postgres)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range []string{TypeRegiones, TypeTiendas, "nope"} {
				if def, ok := r.Lookup(id); ok {
					_, err := def.Build(Filters{"q": "a", "active": "si"})
					assert.NoError(t, err)
				}
			}
		}()
	}
	wg.Wait()
}
