// Request profiler: serves a site and records per-request telemetry to
// append-only metric and span logs.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reqprof",
		Short:        "HTTP request profiler",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	return root
}

func serveCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a directory and profile every request",
		Long: "Serve a directory as a website and profile every request.\n\n" +
			"Request counts, errors, latency, throughput and process resource\n" +
			"samples are appended to the metrics log on a fixed interval. Each\n" +
			"request also writes a root and a child span to the span log.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)))
			if err != nil {
				return fmt.Errorf("reqprof: listen: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, ln, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)

	return cmd
}

func configCmd() *cobra.Command {
	var (
		flags  configFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
			}
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			data, err := encodeConfig(cfg, format)
			if err != nil {
				return err
			}
			_, _ = cmd.OutOrStdout().Write(data)
			if len(data) > 0 && data[len(data)-1] != '\n' {
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reqprof %s (commit %s, built %s)\n", version, commit, buildTime)
		},
	}
}
