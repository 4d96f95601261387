package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jonwraymond/reqprof/observe"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	want := defaultAppConfig()
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("loadConfig(\"\") = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "reqprof.yaml", `
server:
  port: 8080
  root: ./public
telemetry:
  service_name: shop
  export_interval_ms: 250
  excluded_routes: ["/favicon.ico", "/robots.txt"]
  tracing:
    enabled: false
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Root != "./public" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.ShutdownTimeoutMs != 10_000 {
		t.Errorf("ShutdownTimeoutMs = %d, want default", cfg.Server.ShutdownTimeoutMs)
	}
	if cfg.Telemetry.ServiceName != "shop" || cfg.Telemetry.ExportIntervalMs != 250 {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	if !reflect.DeepEqual(cfg.Telemetry.ExcludedRoutes, []string{"/favicon.ico", "/robots.txt"}) {
		t.Errorf("ExcludedRoutes = %v", cfg.Telemetry.ExcludedRoutes)
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("Tracing.Enabled = true, want false")
	}
	if cfg.Telemetry.MetricsPath != observe.DefaultMetricsPath {
		t.Errorf("MetricsPath = %q, want default", cfg.Telemetry.MetricsPath)
	}
	if !reflect.DeepEqual(cfg.Telemetry.Stages, observe.DefaultStages()) {
		t.Errorf("Stages = %v, want defaults", cfg.Telemetry.Stages)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, "reqprof.json", `{"telemetry": {"metrics_path": "m.log", "stages": ["request-counter", "latency"]}}`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Telemetry.MetricsPath != "m.log" {
		t.Errorf("MetricsPath = %q", cfg.Telemetry.MetricsPath)
	}
	if !reflect.DeepEqual(cfg.Telemetry.Stages, []string{"request-counter", "latency"}) {
		t.Errorf("Stages = %v", cfg.Telemetry.Stages)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := loadConfig(writeFile(t, "reqprof.toml", "")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("toml: error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: error = nil")
	}
	if _, err := loadConfig(writeFile(t, "bad.json", "{")); err == nil {
		t.Error("malformed json: error = nil")
	}
}

func TestAppConfig_Validate(t *testing.T) {
	cfg := defaultAppConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("Validate() error = %v, want ErrInvalidPort", err)
	}

	cfg = defaultAppConfig()
	cfg.Telemetry.Stages = []string{"nope"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with unknown stage: error = nil")
	}
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCmd_FlagOverrides(t *testing.T) {
	path := writeFile(t, "reqprof.yaml", "server:\n  port: 8080\ntelemetry:\n  service_name: shop\n")

	out, err := runCmd(t, "config", "-c", path, "--format", "json",
		"--port", "9100", "--interval", "500", "--no-tracing", "--log-level", "debug")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}

	var cfg appConfig
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want flag value 9100", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "shop" {
		t.Errorf("ServiceName = %q, want file value", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.ExportIntervalMs != 500 {
		t.Errorf("ExportIntervalMs = %d", cfg.Telemetry.ExportIntervalMs)
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("Tracing.Enabled = true after --no-tracing")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Version != version {
		t.Errorf("Version = %q, want %q", cfg.Telemetry.Version, version)
	}
}

func TestConfigCmd_YAML(t *testing.T) {
	out, err := runCmd(t, "config", "--service", "shop")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	for _, want := range []string{"service_name: shop", "port: 9000", "metrics_path: data/metrics/metrics.log"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCmd_Errors(t *testing.T) {
	if _, err := runCmd(t, "config", "--format", "toml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("--format toml: error = %v", err)
	}
	if _, err := runCmd(t, "config", "--port=-1"); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("--port -1: error = %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "reqprof dev ") {
		t.Errorf("version output = %q", out)
	}
}
