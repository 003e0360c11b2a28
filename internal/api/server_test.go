package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
	"github.com/nerrad567/gray-logic-gateway/migrations"
)

const testAPIKey = "0123456789ABCDEF"

// testRegistry creates a registry backed by a migrated in-memory database.
func testRegistry(t *testing.T) *device.Registry {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLocation(time.UTC)
	if err := registry.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	return registry
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
}

func testDeps(registry *device.Registry) Deps {
	return Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:       config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		APIKeys:  []string{testAPIKey},
		Logger:   testLogger(),
		Registry: registry,
		Version:  "test",
	}
}

// testServer creates a Server with a real registry backed by in-memory SQLite.
func testServer(t *testing.T) (*Server, *device.Registry) {
	t.Helper()

	registry := testRegistry(t)
	srv, err := New(testDeps(registry))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, registry
}

// do runs a request against the router and returns the recorder.
func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func apiPath(p string) string {
	return "/api/" + testAPIKey + p
}

// decodeList decodes a success/error list response.
func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]json.RawMessage {
	t.Helper()
	var list []map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v; body: %s", err, w.Body.String())
	}
	return list
}

// errorOf returns the error entry at i, failing when it is a success.
func errorOf(t *testing.T, list []map[string]json.RawMessage, i int) Error {
	t.Helper()
	raw, ok := list[i]["error"]
	if !ok {
		t.Fatalf("entry %d is not an error: %v", i, list[i])
	}
	var e Error
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return e
}

func TestNew_RequiresDeps(t *testing.T) {
	registry := testRegistry(t)

	tests := []struct {
		name   string
		modify func(*Deps)
	}{
		{"no logger", func(d *Deps) { d.Logger = nil }},
		{"no registry", func(d *Deps) { d.Registry = nil }},
		{"no api keys", func(d *Deps) { d.APIKeys = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(registry)
			tt.modify(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, registry := testServer(t)
	if _, err := registry.Add(context.Background(), device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	w := do(t, srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["nodes"] != float64(1) {
		t.Errorf("nodes = %v, want 1", resp["nodes"])
	}
	want := map[string]any{"lights": float64(1), "sensors": float64(0), "groups": float64(0)}
	if !reflect.DeepEqual(resp["resources"], want) {
		t.Errorf("resources = %v, want %v", resp["resources"], want)
	}
}

type stubChecker struct{ err error }

func (c stubChecker) HealthCheck(context.Context) error { return c.err }

func TestHealth_Degraded(t *testing.T) {
	registry := testRegistry(t)
	deps := testDeps(registry)
	deps.Health = map[string]HealthChecker{
		"database": stubChecker{},
		"mqtt":     stubChecker{err: errors.New("not connected")},
	}
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	w := do(t, srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["database"] != "ok" {
		t.Errorf("database check = %q, want ok", resp.Checks["database"])
	}
	if resp.Checks["mqtt"] != "not connected" {
		t.Errorf("mqtt check = %q, want not connected", resp.Checks["mqtt"])
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, apiPath("/lights"), nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestAPIKey_Rejected(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/api/wrongkey/lights", "/api/wrongkey", "/api/wrongkey/config"} {
		w := do(t, srv, http.MethodGet, path, "")
		if w.Code != http.StatusForbidden {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusForbidden)
			continue
		}
		e := errorOf(t, decodeList(t, w), 0)
		if e.Type != ErrTypeUnauthorized || e.Address != "/" || e.Description != "unauthorized user" {
			t.Errorf("GET %s error = %+v", path, e)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/secret/lights/1", "/api/***/lights/1"},
		{"/api/secret", "/api/***"},
		{"/api/", "/api/"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		if got := maskAPIKey(tt.in); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBodySizeLimit(t *testing.T) {
	srv, registry := testServer(t)
	if _, err := registry.Add(context.Background(), device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	body := `{"name":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	w := do(t, srv, http.MethodPut, apiPath("/lights/1"), body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if e := errorOf(t, decodeList(t, w), 0); e.Type != ErrTypeInvalidJSON {
		t.Errorf("error type = %d, want %d", e.Type, ErrTypeInvalidJSON)
	}
}

func TestMetricsMounted(t *testing.T) {
	registry := testRegistry(t)
	deps := testDeps(registry)
	deps.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "gateway_nodes 0\n") //nolint:errcheck // test handler
	})
	deps.MetricsPath = "/prom"
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	w := do(t, srv, http.MethodGet, "/prom", "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("gateway_nodes")) {
		t.Errorf("GET /prom = %d %q", w.Code, w.Body.String())
	}

	srv2, _ := testServer(t)
	if w := do(t, srv2, http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without handler = %d, want 404", w.Code)
	}
}

func TestServer_StartAndClose(t *testing.T) {
	srv, _ := testServer(t)

	if srv.Addr() != "" {
		t.Errorf("Addr() before Start = %q, want empty", srv.Addr())
	}
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
