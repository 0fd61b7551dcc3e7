package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/catalogapi/internal/resource"
)

// RecordsRepo is the in-process backing for one resource collection, used
// when no DATABASE_URL is configured and in tests.
type RecordsRepo struct {
	schema resource.Schema

	mu     sync.RWMutex
	nextID int64
	items  map[int64]resource.Record
}

func NewRecordsRepo(schema resource.Schema) *RecordsRepo {
	return &RecordsRepo{
		schema: schema,
		items:  make(map[int64]resource.Record),
	}
}

func (r *RecordsRepo) Schema() resource.Schema { return r.schema }

func (r *RecordsRepo) Get(ctx context.Context) ([]resource.Record, error) {
	r.mu.RLock()
	out := make([]resource.Record, 0, len(r.items))
	for _, rec := range r.items {
		out = append(out, cloneRecord(rec))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RecordsRepo) GetByID(ctx context.Context, id int64) (resource.Record, error) {
	r.mu.RLock()
	rec, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return resource.Record{}, resource.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *RecordsRepo) Create(ctx context.Context, attrs resource.Attributes) (resource.Record, error) {
	now := time.Now().UTC()

	// every schema field is present; unset ones are nil like a NULL column
	stored := make(resource.Attributes, len(r.schema.Fields))
	for _, f := range r.schema.Fields {
		stored[f.Name] = attrs[f.Name]
	}

	r.mu.Lock()
	r.nextID++
	rec := resource.Record{
		ID:         r.nextID,
		Attributes: stored,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.items[rec.ID] = rec
	r.mu.Unlock()

	return cloneRecord(rec), nil
}

func (r *RecordsRepo) Update(ctx context.Context, id int64, attrs resource.Attributes) (resource.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return resource.Record{}, resource.ErrNotFound
	}

	merged := rec.Attributes.Clone()
	for k, v := range attrs {
		merged[k] = v
	}
	rec.Attributes = merged
	rec.UpdatedAt = time.Now().UTC()
	r.items[id] = rec

	return cloneRecord(rec), nil
}

func (r *RecordsRepo) Delete(ctx context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return 0, nil
	}
	delete(r.items, id)
	return 1, nil
}

func cloneRecord(rec resource.Record) resource.Record {
	rec.Attributes = rec.Attributes.Clone()
	return rec
}
