package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/zioerenkl/AnonymityEngine/internal/config"
	"github.com/zioerenkl/AnonymityEngine/internal/execx"
	"github.com/zioerenkl/AnonymityEngine/internal/probe"
	"github.com/zioerenkl/AnonymityEngine/internal/tor"
	"github.com/zioerenkl/AnonymityEngine/internal/verifier"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the environment, the Tor proxy, and the IP-echo endpoints",
		Long: `Check reports whether the host can run rotations.

It probes the operating system and host capabilities, tests the SOCKS5
proxy, and queries every IP-echo endpoint once through Tor, printing a
per-endpoint health table.

Examples:
  # Check the default local Tor proxy
  anonymity-engine check

  # Check a proxy on a non-standard port
  anonymity-engine check --socks-port 9150`,
		Args: cobra.NoArgs,
		RunE: runCheckCmd,
	}

	cmd.Flags().IntP("socks-port", "s", config.DefaultSocksPort,
		"Local Tor SOCKS5 proxy port")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each endpoint request")
	cmd.Flags().String("service", config.DefaultServiceName,
		"Tor service name for systemctl and service")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()

	var err error
	if cfg.SocksPort, err = cmd.Flags().GetInt("socks-port"); err != nil {
		return err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.ServiceName, err = cmd.Flags().GetString("service"); err != nil {
		return err
	}

	logger, closeLog, err := newCheckLogger(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog()
	}()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	runner := execx.NewOSRunner()

	// Environment.
	verdict := probe.New(runner, cfg.ServiceName, cfg.TorBinary, probe.WithLogger(logger)).Run(ctx)
	fmt.Fprintln(out, "Environment:")
	if verdict.OK {
		fmt.Fprintf(out, "  tor binary:   %s\n", verdict.TorPath)
		fmt.Fprintf(out, "  capabilities: %s\n", verdict.Caps)
		for _, w := range verdict.Warnings {
			fmt.Fprintf(out, "  warning:      %s\n", w)
		}
	} else {
		fmt.Fprintf(out, "  NOT USABLE: %s\n", verdict.Reason)
	}
	fmt.Fprintf(out, "  service %q:  %s\n", cfg.ServiceName, serviceState(ctx, runner, cfg.ServiceName))
	fmt.Fprintln(out)

	// SOCKS proxy.
	client, err := tor.NewClient(cfg.SocksAddress(), cfg.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create Tor client: %w", err)
	}
	status := client.CheckConnection(ctx)
	fmt.Fprintf(out, "SOCKS5 proxy at %s: %s\n\n", cfg.SocksAddress(), status)
	if status != tor.ProxyStatusOK {
		fmt.Fprintln(out, "Skipping endpoint checks; the proxy is not reachable.")
		if !verdict.OK {
			return fmt.Errorf("environment check failed: %s", verdict.Reason)
		}
		return fmt.Errorf("tor proxy check failed: %s", status)
	}

	// Endpoints, once each, all in parallel.
	v := verifier.New(client.NewHTTPClient(), cfg.Endpoints,
		verifier.WithLogger(logger),
		verifier.WithRetries(1),
	)
	fmt.Fprintln(out, "IP-echo endpoints:")
	healthy := 0
	for _, h := range v.Sweep(ctx) {
		if h.Err != nil {
			fmt.Fprintf(out, "  FAIL %-35s %v\n", h.Endpoint, h.Err)
			continue
		}
		healthy++
		fmt.Fprintf(out, "  OK   %-35s %-15s %s\n",
			h.Endpoint, h.IP, h.Latency.Round(time.Millisecond))
	}

	if healthy == 0 {
		return fmt.Errorf("no IP-echo endpoint is reachable through the proxy")
	}
	if !verdict.OK {
		return fmt.Errorf("environment check failed: %s", verdict.Reason)
	}
	return nil
}

// serviceState reports the service manager's view of the Tor unit.
// "systemctl is-active" answers on stdout even for stopped units; a
// transport error means there is no systemd to ask.
func serviceState(ctx context.Context, runner execx.Runner, serviceName string) string {
	res, err := runner.Run(ctx, config.DefaultCommandTimeout, "systemctl", "is-active", serviceName)
	if err != nil || res.Output == "" {
		return "unknown (no systemd)"
	}
	return res.Output
}

// newCheckLogger builds a stderr-only logger for the check command.
// Check is a diagnostic; it does not write the rotation log file.
func newCheckLogger(cmd *cobra.Command) (*slog.Logger, func() error, error) {
	level := slog.LevelWarn
	if getVerboseFlag(cmd) {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return slog.New(handler), func() error { return nil }, nil
}
