package export

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go-pricewatch/internal/errors"
)

// MaxSheetNameLen is the longest worksheet name spreadsheet applications
// accept.
const MaxSheetNameLen = 31

// Registry maps export type ids to definitions. It is filled once by
// NewRegistry and only read afterwards, so concurrent lookups need no
// locking.
type Registry struct {
	defs map[string]*Definition
	ids  []string
}

// NewRegistry validates defs and indexes them by id.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := validate(d); err != nil {
			return nil, errors.Mark(err, ErrConfiguration)
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, errors.Mark(errors.Newf("export type %q registered twice", d.ID), ErrConfiguration)
		}
		r.defs[d.ID] = d
		r.ids = append(r.ids, d.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

// MustRegistry is NewRegistry for static definition sets; it panics on an
// invalid set.
func MustRegistry(defs ...*Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

func validate(d *Definition) error {
	if d == nil {
		return errors.New("nil export definition")
	}
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("export definition without id")
	}
	if strings.TrimSpace(d.FilenameStem) == "" {
		return errors.Newf("export type %q: empty filename stem", d.ID)
	}
	if strings.ContainsAny(d.FilenameStem, `"/\`) {
		return errors.Newf("export type %q: filename stem %q contains a quote or path separator", d.ID, d.FilenameStem)
	}
	if err := validSheetName(d.SheetName); err != nil {
		return errors.Wrapf(err, "export type %q", d.ID)
	}
	if len(d.Columns) == 0 {
		return errors.Newf("export type %q: no columns", d.ID)
	}
	if strings.TrimSpace(d.Select) == "" {
		return errors.Newf("export type %q: empty select", d.ID)
	}
	keys := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if c.Key == "" {
			return errors.Newf("export type %q: column %q without key", d.ID, c.Header)
		}
		if keys[c.Key] {
			return errors.Newf("export type %q: column key %q repeated", d.ID, c.Key)
		}
		keys[c.Key] = true
	}
	names := make(map[string]bool, len(d.Filters))
	for _, fs := range d.Filters {
		if fs.Name == ParamType || fs.Name == ParamStream {
			return errors.Newf("export type %q: filter name %q is reserved", d.ID, fs.Name)
		}
		if names[fs.Name] {
			return errors.Newf("export type %q: filter %q repeated", d.ID, fs.Name)
		}
		if len(fs.Columns) == 0 {
			return errors.Newf("export type %q: filter %q has no column", d.ID, fs.Name)
		}
		names[fs.Name] = true
	}
	return nil
}

func validSheetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("empty sheet name")
	}
	if utf8.RuneCountInString(name) > MaxSheetNameLen {
		return errors.Newf("sheet name %q longer than %d characters", name, MaxSheetNameLen)
	}
	if strings.ContainsAny(name, `[]:*?/\`) {
		return errors.Newf("sheet name %q contains one of []:*?/\\", name)
	}
	return nil
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Resolve is Lookup returning a configuration error for a missing or
// unknown id.
func (r *Registry) Resolve(id string) (*Definition, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Mark(errors.NewInvalidRequestError("export type is required"), ErrConfiguration)
	}
	d, ok := r.defs[id]
	if !ok {
		return nil, errors.Mark(errors.NewInvalidRequestError("unknown export type %q", id), ErrConfiguration)
	}
	return d, nil
}

// List returns every definition ordered by id.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.defs[id]
	}
	return out
}
