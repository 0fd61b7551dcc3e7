package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoggerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := ContextWithRequestID(context.Background(), "req-123")
	log.InfoContext(ctx, "hello")
	log.DebugContext(ctx, "hidden outside dev")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one record, got %d: %s", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["request_id"] != "req-123" || rec["service"] != ServiceName {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestClassifyDBErr(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"unique":   {err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		"wrapped":  {err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "40P01"}), want: "deadlock"},
		"other pg": {err: &pgconn.PgError{Code: "42P01"}, want: "pg_42P01"},
		"deadline": {err: context.DeadlineExceeded, want: "timeout"},
		"conn":     {err: errors.New("failed to connect: connection refused"), want: "connection"},
		"unknown":  {err: errors.New("boom"), want: "unknown"},
	}

	for name, tt := range tests {
		if got := ClassifyDBErr(tt.err); got != tt.want {
			t.Fatalf("%s: got %q, want %q", name, got, tt.want)
		}
	}
}

func TestObserveDBCountsErrors(t *testing.T) {
	p := NewProm()

	_ = p.ObserveDB("food.get", func() error { return nil })
	err := p.ObserveDB("food.get", func() error { return &pgconn.PgError{Code: "23505"} })
	if err == nil {
		t.Fatalf("ObserveDB must return fn's error")
	}

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("food.get", "unique_violation")); got != 1 {
		t.Fatalf("db errors = %v, want 1", got)
	}
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm()

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(p.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	p.AuthFailed("bearer")

	if got := testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/ping", "200")); got != 1 {
		t.Fatalf("requests_total = %v, want 1", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `catalogapi_auth_failures_total{scheme="bearer"} 1`) {
		t.Fatalf("metrics output missing auth failure counter:\n%s", w.Body.String())
	}
}
