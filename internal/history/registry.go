// Package history records create, update and delete operations on audited
// entities into an append-only history table.
package history

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// FieldKind tells scalar columns apart from to-one relations.
type FieldKind int

const (
	Scalar FieldKind = iota
	Relation
)

// Field describes one column of an audited entity.
type Field struct {
	Name     string
	Kind     FieldKind
	Excluded bool // never written to snapshots nor change sets
}

// Key is the name under which the field appears in history documents.
// Relations are stored as "<name>Id".
func (f Field) Key() string {
	if f.Kind == Relation {
		return f.Name + "Id"
	}
	return f.Name
}

// Descriptor lists the fields of one entity type.
type Descriptor struct {
	Table    string
	Fields   []Field
	Disabled bool // type level audit flag
}

// timestampFields never count as a change on their own.
var timestampFields = map[string]struct{}{
	"createdAt": {},
	"updatedAt": {},
}

// Registry holds the descriptors of every audited type. It is built once at
// startup and read concurrently afterwards.
type Registry struct {
	descriptors map[string]Descriptor
}

// NewRegistry validates and indexes descriptors by table.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{descriptors: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.Table == "" {
			return nil, errors.New("history descriptor without table")
		}
		if _, dup := r.descriptors[d.Table]; dup {
			return nil, errors.Newf("duplicate history descriptor for %q", d.Table)
		}
		seen := make(map[string]struct{}, len(d.Fields))
		for _, f := range d.Fields {
			if _, dup := seen[f.Key()]; dup {
				return nil, errors.Newf("duplicate field %q in %q descriptor", f.Key(), d.Table)
			}
			seen[f.Key()] = struct{}{}
		}
		r.descriptors[d.Table] = d
	}
	return r, nil
}

// Lookup returns the descriptor registered for table.
func (r *Registry) Lookup(table string) (Descriptor, bool) {
	d, ok := r.descriptors[table]
	return d, ok
}

// Enabled reports whether changes to table are recorded at all.
func (r *Registry) Enabled(table string) bool {
	d, ok := r.descriptors[table]
	return ok && !d.Disabled
}

// Tables returns the registered table names in order.
func (r *Registry) Tables() []string {
	tables := make([]string, 0, len(r.descriptors))
	for t := range r.descriptors {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
