// Package definitions holds the field catalog: for every selectable field key,
// the group it belongs to and the query terms a picked value implies.
package definitions

import (
	"errors"
	"fmt"

	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// FieldKey names a selectable field. Keys are unique across all groups.
type FieldKey string

// Definition describes one field key.
type Definition struct {
	Key         FieldKey
	Group       model.GroupKey
	Description string
	Build       translator.BuildFunc
}

// Registry is an immutable, validated set of definitions.
type Registry struct {
	defs  map[FieldKey]Definition
	order []FieldKey
}

var _ translator.Registry = (*Registry)(nil)

// NewRegistry validates defs and builds a registry. Duplicate or empty keys,
// unknown groups and missing builders are rejected.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[FieldKey]Definition, len(defs))}
	for _, d := range defs {
		if d.Key == "" {
			return nil, errors.New("definition with empty key")
		}
		if d.Build == nil {
			return nil, fmt.Errorf("definition %q has no builder", d.Key)
		}
		if !d.Group.Valid() {
			return nil, fmt.Errorf("definition %q has unknown group %q", d.Key, d.Group)
		}
		if existing, ok := r.defs[d.Key]; ok {
			return nil, fmt.Errorf("duplicate definition %q in groups %q and %q", d.Key, existing.Group, d.Group)
		}
		r.defs[d.Key] = d
		r.order = append(r.order, d.Key)
	}
	return r, nil
}

// Default returns the registry with every built-in group.
func Default() *Registry {
	var all []Definition
	all = append(all, growthDefinitions()...)
	all = append(all, profileDefinitions()...)
	all = append(all, transactionDefinitions()...)
	all = append(all, marketingDefinitions()...)
	r, err := NewRegistry(all...)
	if err != nil {
		panic(fmt.Sprintf("definitions: %v", err))
	}
	return r
}

// Lookup implements translator.Registry.
func (r *Registry) Lookup(name string) (translator.BuildFunc, bool) {
	d, ok := r.defs[FieldKey(name)]
	if !ok {
		return nil, false
	}
	return d.Build, true
}

// Get returns the full definition for key.
func (r *Registry) Get(key FieldKey) (Definition, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// Keys returns the field keys of group in declaration order.
func (r *Registry) Keys(group model.GroupKey) []FieldKey {
	var keys []FieldKey
	for _, k := range r.order {
		if r.defs[k].Group == group {
			keys = append(keys, k)
		}
	}
	return keys
}

// GroupOf returns the group a field key belongs to.
func (r *Registry) GroupOf(key FieldKey) (model.GroupKey, bool) {
	d, ok := r.defs[key]
	return d.Group, ok
}

// field returns a builder mapping the value onto path unchanged.
func field(path string) translator.BuildFunc {
	return func(value any) []translator.Term {
		return []translator.Term{{Field: path, Value: value}}
	}
}
