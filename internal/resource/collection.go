package resource

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrInvalidModel = errors.New("invalid model")
	ErrNotFound     = errors.New("record not found")
)

// Collection is the generic CRUD surface of one resource type.
type Collection interface {
	Schema() Schema
	Get(ctx context.Context) ([]Record, error)
	GetByID(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, attrs Attributes) (Record, error)
	Update(ctx context.Context, id int64, attrs Attributes) (Record, error)
	// Delete returns the number of removed records.
	Delete(ctx context.Context, id int64) (int64, error)
}

// Registry maps URL model names to collections. It is filled once at startup
// and only read afterwards.
type Registry struct {
	models map[string]Collection
}

func NewRegistry(collections ...Collection) *Registry {
	r := &Registry{models: make(map[string]Collection, len(collections))}
	for _, c := range collections {
		r.models[c.Schema().Name] = c
	}
	return r
}

func (r *Registry) Lookup(name string) (Collection, error) {
	c, ok := r.models[name]
	if !ok {
		return nil, ErrInvalidModel
	}
	return c, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
