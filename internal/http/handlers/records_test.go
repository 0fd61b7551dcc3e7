package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/catalogapi/internal/http/handlers"
	"github.com/geocoder89/catalogapi/internal/http/middlewares"
	"github.com/geocoder89/catalogapi/internal/resource"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake collection; unset functions return zero values.

type fakeCollection struct {
	getFn     func(ctx context.Context) ([]resource.Record, error)
	getByIDFn func(ctx context.Context, id int64) (resource.Record, error)
	createFn  func(ctx context.Context, attrs resource.Attributes) (resource.Record, error)
	updateFn  func(ctx context.Context, id int64, attrs resource.Attributes) (resource.Record, error)
	deleteFn  func(ctx context.Context, id int64) (int64, error)
}

func (f *fakeCollection) Schema() resource.Schema { return resource.Food }

func (f *fakeCollection) Get(ctx context.Context) ([]resource.Record, error) {
	if f.getFn != nil {
		return f.getFn(ctx)
	}
	return []resource.Record{}, nil
}

func (f *fakeCollection) GetByID(ctx context.Context, id int64) (resource.Record, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return resource.Record{}, nil
}

func (f *fakeCollection) Create(ctx context.Context, attrs resource.Attributes) (resource.Record, error) {
	if f.createFn != nil {
		return f.createFn(ctx, attrs)
	}
	return resource.Record{}, nil
}

func (f *fakeCollection) Update(ctx context.Context, id int64, attrs resource.Attributes) (resource.Record, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, attrs)
	}
	return resource.Record{}, nil
}

func (f *fakeCollection) Delete(ctx context.Context, id int64) (int64, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return 0, nil
}

func setupRecordsRouter(coll resource.Collection) *gin.Engine {
	h := handlers.NewRecordsHandler(nil)
	r := gin.New()

	g := r.Group("/api/v1/:model", middlewares.ResolveModel(resource.NewRegistry(coll)))
	g.GET("", h.GetAll)
	g.GET("/:id", h.GetOne)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRecordHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeCollection)
		wantStatusCode int
		wantBody       string
	}{
		{
			name: "success",
			body: `{"name":"apple","calories":95,"type":"fruit","color":"ignored"}`,
			repoSetUp: func(f *fakeCollection) {
				f.createFn = func(ctx context.Context, attrs resource.Attributes) (resource.Record, error) {
					if _, ok := attrs["color"]; ok {
						return resource.Record{}, errors.New("unknown field leaked into attributes")
					}
					if attrs["calories"] != int64(95) {
						return resource.Record{}, errors.New("calories not coerced")
					}
					return resource.Record{ID: 1, Attributes: attrs, CreatedAt: now, UpdatedAt: now}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
			wantBody:       `"name":"apple"`,
		},
		{
			name:           "missing required field",
			body:           `{"calories":95}`,
			wantStatusCode: http.StatusBadRequest,
			wantBody:       `"field":"name"`,
		},
		{
			name:           "wrong type",
			body:           `{"name":"apple","calories":"lots"}`,
			wantStatusCode: http.StatusBadRequest,
			wantBody:       `"field":"calories"`,
		},
		{
			name:           "integer out of range",
			body:           `{"name":"x","calories":1e19}`,
			wantStatusCode: http.StatusBadRequest,
			wantBody:       `"field":"calories"`,
		},
		{
			name:           "not an object",
			body:           `[1,2]`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "store failure",
			body: `{"name":"apple"}`,
			repoSetUp: func(f *fakeCollection) {
				f.createFn = func(ctx context.Context, attrs resource.Attributes) (resource.Record, error) {
					return resource.Record{}, errors.New("connection refused")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       `"message":"connection refused"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCollection{}
			if tt.repoSetUp != nil {
				tt.repoSetUp(fake)
			}

			w := do(setupRecordsRouter(fake), http.MethodPost, "/api/v1/food", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("body %s does not contain %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestGetOneRecordHandler(t *testing.T) {
	fake := &fakeCollection{
		getByIDFn: func(ctx context.Context, id int64) (resource.Record, error) {
			if id != 7 {
				return resource.Record{}, resource.ErrNotFound
			}
			return resource.Record{ID: 7, Attributes: resource.Attributes{"name": "bread"}}, nil
		},
	}
	r := setupRecordsRouter(fake)

	w := do(r, http.MethodGet, "/api/v1/food/7", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["id"] != float64(7) || got["name"] != "bread" {
		t.Fatalf("unexpected record: %v", got)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/food/7", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("If-None-Match: got %d, want 304", w.Code)
	}

	if w := do(r, http.MethodGet, "/api/v1/food/8", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing record: got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/food/abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got %d", w.Code)
	}
}

func TestGetAllRecordsHandler(t *testing.T) {
	fake := &fakeCollection{
		getFn: func(ctx context.Context) ([]resource.Record, error) {
			return []resource.Record{
				{ID: 1, Attributes: resource.Attributes{"name": "a"}},
				{ID: 2, Attributes: resource.Attributes{"name": "b"}},
			}, nil
		},
	}

	w := do(setupRecordsRouter(fake), http.MethodGet, "/api/v1/food", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}

	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("expected a bare JSON array: %v body=%s", err, w.Body.String())
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
}

func TestUpdateRecordHandler(t *testing.T) {
	fake := &fakeCollection{
		updateFn: func(ctx context.Context, id int64, attrs resource.Attributes) (resource.Record, error) {
			if id == 404 {
				return resource.Record{}, resource.ErrNotFound
			}
			return resource.Record{ID: id, Attributes: attrs}, nil
		},
	}
	r := setupRecordsRouter(fake)

	// partial updates skip the required check
	w := do(r, http.MethodPut, "/api/v1/food/3", `{"calories":10}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"calories":10`) {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}

	if w := do(r, http.MethodPut, "/api/v1/food/404", `{"calories":10}`); w.Code != http.StatusNotFound {
		t.Fatalf("missing record: got %d", w.Code)
	}
}

func TestDeleteRecordHandler(t *testing.T) {
	fake := &fakeCollection{
		deleteFn: func(ctx context.Context, id int64) (int64, error) {
			if id == 1 {
				return 1, nil
			}
			return 0, nil
		},
	}
	r := setupRecordsRouter(fake)

	for path, want := range map[string]string{
		"/api/v1/food/1": "1",
		"/api/v1/food/2": "0",
	} {
		w := do(r, http.MethodDelete, path, "")
		if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != want {
			t.Fatalf("%s: got %d %q, want 200 %q", path, w.Code, w.Body.String(), want)
		}
	}
}

func TestUnknownModel(t *testing.T) {
	w := do(setupRecordsRouter(&fakeCollection{}), http.MethodGet, "/api/v1/cars", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Invalid Model") {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
}
