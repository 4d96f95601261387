package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/reqprof/observe"
)

// Configuration loading errors.
var (
	ErrUnsupportedFormat = errors.New("reqprof: unsupported config format")
	ErrInvalidPort       = errors.New("reqprof: port must be between 0 and 65535")
)

// DefaultPort is the port the profiled site is served on.
const DefaultPort = 9000

// appConfig is the full configuration file.
type appConfig struct {
	Server    serverConfig   `koanf:"server" json:"server"`
	Telemetry observe.Config `koanf:"telemetry" json:"telemetry"`
}

type serverConfig struct {
	Port              int    `koanf:"port" json:"port"`
	Root              string `koanf:"root" json:"root"`
	ShutdownTimeoutMs int    `koanf:"shutdown_timeout_ms" json:"shutdown_timeout_ms"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Server: serverConfig{
			Port:              DefaultPort,
			Root:              ".",
			ShutdownTimeoutMs: 10_000,
		},
		Telemetry: observe.DefaultConfig(),
	}
}

func (c *appConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	return c.Telemetry.Validate()
}

// loadConfig layers the file at path (if any) over the defaults.
func loadConfig(path string) (appConfig, error) {
	k := koanf.New(".")

	defaults, err := json.Marshal(defaultAppConfig())
	if err != nil {
		return appConfig{}, fmt.Errorf("reqprof: encode defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(defaults), kjson.Parser()); err != nil {
		return appConfig{}, fmt.Errorf("reqprof: load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return appConfig{}, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return appConfig{}, fmt.Errorf("reqprof: read config: %w", err)
		}
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return appConfig{}, fmt.Errorf("reqprof: parse %s: %w", path, err)
		}
	}

	var cfg appConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return appConfig{}, fmt.Errorf("reqprof: decode config: %w", err)
	}
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// encodeConfig renders cfg as YAML or JSON.
func encodeConfig(cfg appConfig, format string) ([]byte, error) {
	if format == "json" {
		return json.MarshalIndent(cfg, "", "  ")
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), kjson.Parser()); err != nil {
		return nil, err
	}
	return k.Marshal(kyaml.Parser())
}

// configFlags are the command line overrides shared by serve and config.
type configFlags struct {
	path            string
	port            int
	root            string
	service         string
	metricsPath     string
	spansPath       string
	intervalMs      int
	tracingExporter string
	noTracing       bool
	bridge          string
	logLevel        string
	logFile         string
}

func (f *configFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.path, "config", "c", "", "config file (.yaml, .yml or .json)")
	fl.IntVar(&f.port, "port", DefaultPort, "port to serve the profiled site on")
	fl.StringVar(&f.root, "root", ".", "directory served as the profiled site")
	fl.StringVar(&f.service, "service", observe.DefaultServiceName, "service name stamped on telemetry")
	fl.StringVar(&f.metricsPath, "metrics-path", observe.DefaultMetricsPath, "metrics log file")
	fl.StringVar(&f.spansPath, "spans-path", observe.DefaultSpansPath, "span log file")
	fl.IntVar(&f.intervalMs, "interval", observe.DefaultExportIntervalMs, "metrics export interval in milliseconds")
	fl.StringVar(&f.tracingExporter, "tracing-exporter", "file", "span exporter: file, stdout, otlp or none")
	fl.BoolVar(&f.noTracing, "no-tracing", false, "disable the span tree stage")
	fl.StringVar(&f.bridge, "metrics-bridge", "none", "mirror metrics to: stdout, otlp, prometheus or none")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fl.StringVar(&f.logFile, "log-file", "", "rotating log file (default stderr)")
}

// load reads the config file and applies the flags the user set.
func (f *configFlags) load(cmd *cobra.Command) (appConfig, error) {
	cfg, err := loadConfig(f.path)
	if err != nil {
		return appConfig{}, err
	}

	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("root") {
		cfg.Server.Root = f.root
	}
	if changed("service") {
		cfg.Telemetry.ServiceName = f.service
	}
	if changed("metrics-path") {
		cfg.Telemetry.MetricsPath = f.metricsPath
	}
	if changed("spans-path") {
		cfg.Telemetry.SpansPath = f.spansPath
	}
	if changed("interval") {
		cfg.Telemetry.ExportIntervalMs = f.intervalMs
	}
	if changed("tracing-exporter") {
		cfg.Telemetry.Tracing.Exporter = f.tracingExporter
	}
	if changed("no-tracing") {
		cfg.Telemetry.Tracing.Enabled = !f.noTracing
	}
	if changed("metrics-bridge") {
		cfg.Telemetry.Metrics.Bridge = f.bridge
	}
	if changed("log-level") {
		cfg.Telemetry.Logging.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Telemetry.Logging.File = f.logFile
	}
	cfg.Telemetry.Version = version

	if err := cfg.Validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}
