package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
	"github.com/nerrad567/gray-logic-gateway/migrations"
)

const testAPIKey = "0123456789abcdef"

func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("GRAYLOGIC_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("GRAYLOGIC_CONFIG", "/etc/graylogic/gw.yaml")
		if got := getConfigPath(); got != "/etc/graylogic/gw.yaml" {
			t.Errorf("getConfigPath() = %q, want env value", got)
		}
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("GRAYLOGIC_CONFIG", "/etc/graylogic/gw.yaml")
		configPath = "/tmp/flag.yaml"
		defer func() { configPath = "" }()
		if got := getConfigPath(); got != "/tmp/flag.yaml" {
			t.Errorf("getConfigPath() = %q, want flag value", got)
		}
	})
}

func TestPrintDescriptors(t *testing.T) {
	var buf bytes.Buffer
	if err := printDescriptors(&buf); err != nil {
		t.Fatalf("printDescriptors() error: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "SUFFIX") {
		t.Errorf("missing header: %q", out[:20])
	}
	for _, want := range []string{"state/on", "state/temperature", "-27315..32767", "config/battery"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if lines := strings.Count(out, "\n"); lines != len(resource.Descriptors())+1 {
		t.Errorf("lines = %d, want %d", lines, len(resource.Descriptors())+1)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "graylogic-gw dev") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestRetry(t *testing.T) {
	policy := retryPolicy{initial: time.Millisecond, max: 5 * time.Millisecond, attempts: 3}

	calls, notified := 0, 0
	err := retry(context.Background(), policy, func() error {
		calls++
		return errors.New("broker down")
	}, func(error, time.Duration) { notified++ })
	if err == nil {
		t.Fatal("retry() error = nil, want failure")
	}
	if calls != 3 || notified != 2 {
		t.Errorf("calls = %d, notified = %d, want 3 and 2", calls, notified)
	}

	calls = 0
	err = retry(context.Background(), policy, func() error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	}, func(error, time.Duration) {})
	if err != nil || calls != 2 {
		t.Errorf("retry() = %v after %d calls, want success after 2", err, calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry(ctx, retryPolicy{initial: time.Millisecond}, func() error {
		calls++
		return errors.New("unreachable")
	}, func(error, time.Duration) {})
	if err == nil {
		t.Fatal("retry() error = nil, want failure")
	}
	if calls > 1 {
		t.Errorf("calls = %d after cancellation, want at most 1", calls)
	}
}

func TestEnsureConfigNode(t *testing.T) {
	registry := device.NewRegistry(nil)
	gw := config.GatewayConfig{ID: "00:21:2e:ff:ff:00:aa:00", Name: "Attic gateway"}

	for i := 0; i < 2; i++ {
		if err := ensureConfigNode(context.Background(), registry, gw); err != nil {
			t.Fatalf("ensureConfigNode() #%d error: %v", i, err)
		}
	}
	if n := registry.Count(resource.PrefixConfig); n != 1 {
		t.Fatalf("config nodes = %d, want 1", n)
	}
	n, err := registry.Get(resource.PrefixConfig, configNodeID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if n.Name() != "Attic gateway" || n.UniqueID() != gw.ID {
		t.Errorf("config node = %q %q", n.Name(), n.UniqueID())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, "/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, port int) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
gateway:
  id: gw-test
  name: Test gateway
  timezone: UTC
  api_keys:
    - %s

database:
  path: %s
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: 127.0.0.1
  port: %d
`, testAPIKey, filepath.Join(dir, "gateway.db"), port)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestRun_StartupAndShutdown(t *testing.T) {
	port := freePort(t)
	path := writeConfig(t, port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, path) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	var resp *http.Response
	var err error
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get(base + "/api/" + testAPIKey + "/config")
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("gateway did not come up: %v", err)
	}

	var cfg map[string]any
	decodeErr := json.NewDecoder(resp.Body).Decode(&cfg)
	resp.Body.Close()
	if decodeErr != nil {
		t.Fatalf("decode config: %v", decodeErr)
	}
	if cfg["name"] != "Test gateway" || cfg["uniqueid"] != "gw-test" {
		t.Errorf("config = %v", cfg)
	}

	metricsResp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200", metricsResp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error on shutdown: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}

func TestMigrateCommands(t *testing.T) {
	path := writeConfig(t, 8080)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	db.Close()

	execute := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(append(args, "--config", path))
		defer func() {
			rootCmd.SetArgs(nil)
			configPath = ""
		}()
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return buf.String()
	}

	out := execute("migrate", "status")
	if strings.Count(out, "applied") != 2 || strings.Contains(out, "pending") {
		t.Errorf("status after migrate:\n%s", out)
	}
	if !strings.Contains(out, "nodes: 0") {
		t.Errorf("status missing node count:\n%s", out)
	}

	out = execute("migrate", "down")
	if strings.Count(out, "applied") != 1 || !strings.Contains(out, "install_codes") {
		t.Errorf("status after down:\n%s", out)
	}
}
