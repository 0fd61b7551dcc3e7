package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/catalogapi/internal/resource"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordsRepo serves one resource collection from the table named after its
// schema. Column names come from the schema definition, never from requests.
type RecordsRepo struct {
	pool   *pgxpool.Pool
	schema resource.Schema
	obs    DBObserver

	selectCols string
}

func NewRecordsRepo(pool *pgxpool.Pool, schema resource.Schema, obs DBObserver) *RecordsRepo {
	cols := append([]string{"id"}, schema.FieldNames()...)
	cols = append(cols, "created_at", "updated_at")

	return &RecordsRepo{
		pool:       pool,
		schema:     schema,
		obs:        observerOrNoop(obs),
		selectCols: strings.Join(quoteAll(cols), ", "),
	}
}

func (r *RecordsRepo) Schema() resource.Schema { return r.schema }

func (r *RecordsRepo) table() string {
	return pgx.Identifier{r.schema.Name}.Sanitize()
}

func (r *RecordsRepo) op(name string) string {
	return r.schema.Name + "." + name
}

func (r *RecordsRepo) Get(ctx context.Context) ([]resource.Record, error) {
	var out []resource.Record

	err := r.obs.ObserveDB(r.op("get"), func() error {
		rows, err := r.pool.Query(ctx,
			fmt.Sprintf(`SELECT %s FROM %s ORDER BY id ASC`, r.selectCols, r.table()))
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]resource.Record, 0)
		for rows.Next() {
			rec, err := r.scan(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})

	return out, err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id int64) (resource.Record, error) {
	var rec resource.Record
	found := true

	err := r.obs.ObserveDB(r.op("get_by_id"), func() error {
		row := r.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, r.selectCols, r.table()), id)

		var err error
		rec, err = r.scan(row)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return resource.Record{}, err
	}
	if !found {
		return resource.Record{}, resource.ErrNotFound
	}
	return rec, nil
}

func (r *RecordsRepo) Create(ctx context.Context, attrs resource.Attributes) (resource.Record, error) {
	var (
		cols         []string
		placeholders []string
		args         []any
	)
	for _, name := range r.schema.FieldNames() {
		v, ok := attrs[name]
		if !ok {
			continue
		}
		args = append(args, v)
		cols = append(cols, pgx.Identifier{name}.Sanitize())
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`INSERT INTO %s DEFAULT VALUES RETURNING %s`, r.table(), r.selectCols)
	if len(cols) > 0 {
		query = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
			r.table(), strings.Join(cols, ", "), strings.Join(placeholders, ", "), r.selectCols)
	}

	var rec resource.Record
	err := r.obs.ObserveDB(r.op("create"), func() error {
		var err error
		rec, err = r.scan(r.pool.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		return resource.Record{}, err
	}
	return rec, nil
}

// Update only touches the columns present in attrs.
func (r *RecordsRepo) Update(ctx context.Context, id int64, attrs resource.Attributes) (resource.Record, error) {
	args := []any{id, time.Now().UTC()}
	sets := []string{`"updated_at" = $2`}

	for _, name := range r.schema.FieldNames() {
		v, ok := attrs[name]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{name}.Sanitize(), len(args)))
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 RETURNING %s`,
		r.table(), strings.Join(sets, ", "), r.selectCols)

	var rec resource.Record
	found := true

	err := r.obs.ObserveDB(r.op("update"), func() error {
		var err error
		rec, err = r.scan(r.pool.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return resource.Record{}, err
	}
	if !found {
		return resource.Record{}, resource.ErrNotFound
	}
	return rec, nil
}

func (r *RecordsRepo) Delete(ctx context.Context, id int64) (int64, error) {
	var n int64

	err := r.obs.ObserveDB(r.op("delete"), func() error {
		tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table()), id)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

func (r *RecordsRepo) scan(row pgx.Row) (resource.Record, error) {
	var rec resource.Record

	dest := make([]any, 0, len(r.schema.Fields)+3)
	dest = append(dest, &rec.ID)

	values := make([]any, len(r.schema.Fields))
	for i, f := range r.schema.Fields {
		switch f.Kind {
		case resource.KindInteger:
			values[i] = new(*int64)
		default:
			values[i] = new(*string)
		}
		dest = append(dest, values[i])
	}
	dest = append(dest, &rec.CreatedAt, &rec.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return resource.Record{}, err
	}

	// NULL columns come back as explicit nils, same as the memory store
	rec.Attributes = make(resource.Attributes, len(r.schema.Fields))
	for i, f := range r.schema.Fields {
		rec.Attributes[f.Name] = nil
		switch v := values[i].(type) {
		case **int64:
			if *v != nil {
				rec.Attributes[f.Name] = **v
			}
		case **string:
			if *v != nil {
				rec.Attributes[f.Name] = **v
			}
		}
	}
	return rec, nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = pgx.Identifier{n}.Sanitize()
	}
	return out
}
