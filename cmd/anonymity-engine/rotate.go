package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zioerenkl/AnonymityEngine/internal/config"
	"github.com/zioerenkl/AnonymityEngine/internal/execx"
	"github.com/zioerenkl/AnonymityEngine/internal/history"
	"github.com/zioerenkl/AnonymityEngine/internal/log"
	"github.com/zioerenkl/AnonymityEngine/internal/model"
	"github.com/zioerenkl/AnonymityEngine/internal/probe"
	"github.com/zioerenkl/AnonymityEngine/internal/report"
	"github.com/zioerenkl/AnonymityEngine/internal/rotation"
	"github.com/zioerenkl/AnonymityEngine/internal/service"
	"github.com/zioerenkl/AnonymityEngine/internal/tor"
	"github.com/zioerenkl/AnonymityEngine/internal/verifier"
)

// NewRotateCmd creates the rotate command.
func NewRotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate the Tor exit IP on a timer",
		Long: `Rotate reloads the local Tor daemon on a fixed interval and verifies
each new exit IP through the SOCKS5 proxy.

The interval and the number of changes can be given as flags; when
omitted, the command asks for them interactively. A change count of 0
rotates until interrupted.

Reload strategies are tried in order until one succeeds:
  1. sudo systemctl reload <service>
  2. sudo service <service> reload
  3. pkill -HUP <binary>

Examples:
  # Rotate every 60 seconds, 10 times
  anonymity-engine rotate --interval 60 --count 10

  # Rotate until interrupted, asking for the interval
  anonymity-engine rotate --count 0

  # Use a private embedded Tor daemon instead of the system service
  anonymity-engine rotate --embedded-tor --interval 60 --count 5`,
		Args: cobra.NoArgs,
		RunE: runRotateCmd,
	}

	// Tor connection flags
	cmd.Flags().IntP("socks-port", "s", config.DefaultSocksPort,
		"Local Tor SOCKS5 proxy port")
	cmd.Flags().Int("control-port", config.DefaultControlPort,
		"Local Tor control port")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each verification request and service-manager command")

	// Rotation behavior flags
	cmd.Flags().IntP("interval", "i", 0,
		"Seconds between rotations (10-3600, prompted if omitted)")
	cmd.Flags().IntP("count", "n", 0,
		"Number of IP changes, 0 for unlimited (prompted if omitted)")
	cmd.Flags().IntP("retries", "r", config.DefaultRetryAttempts,
		"Verification attempts per IP-echo endpoint")
	cmd.Flags().Duration("settle", config.DefaultSettleDelay,
		"Wait between a successful reload and verification")

	// Daemon flags
	cmd.Flags().String("service", config.DefaultServiceName,
		"Tor service name for systemctl and service")
	cmd.Flags().Bool("embedded-tor", false,
		"Launch a private Tor daemon instead of using the system service")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration and output flags
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: config.yaml in the XDG config directory)")
	cmd.Flags().String("log-file", "",
		"Log file path (default: anonymity-engine.log in the temp directory)")
	cmd.Flags().Bool("no-history", false,
		"Do not record the session in the history database")

	return cmd
}

// runRotateCmd executes the rotate command.
func runRotateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildRotateConfig(cmd)
	if err != nil {
		return err
	}

	// Ask for anything the flags and the config file left open.
	if cfg.Interval == 0 {
		cfg.Interval, err = promptInterval(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}
	if !cmd.Flags().Changed("count") && !cfg.ChangeCountSet {
		cfg.ChangeCount, err = promptCount(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging to stdout and the log file. An unwritable
	// log file degrades to stdout-only rather than refusing to run.
	logOpts := log.Options{
		Verbose:  getVerboseFlag(cmd),
		JSON:     getJSONLogFlag(cmd),
		FilePath: cfg.LogFilePath(),
	}
	logger, closeLog, err := log.New(cmd.OutOrStdout(), logOpts)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cannot open log file %s: %v\n", logOpts.FilePath, err)
		logOpts.FilePath = ""
		if logger, closeLog, err = log.New(cmd.OutOrStdout(), logOpts); err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
	}
	defer func() {
		_ = closeLog()
	}()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return runRotation(ctx, cmd, cfg, logger)
}

// buildRotateConfig creates a Config from defaults, the optional config
// file, and cobra command flags, in that precedence order.
func buildRotateConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	explicitPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = explicitPath

	// If the operator named a config file, a missing file is an error.
	// Otherwise a missing default file just means defaults.
	if configPath := config.FindConfigFile(explicitPath); configPath != "" {
		if err := config.LoadFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitPath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
	}

	if cfg.SocksPort, err = cmd.Flags().GetInt("socks-port"); err != nil {
		return nil, err
	}
	if cfg.ControlPort, err = cmd.Flags().GetInt("control-port"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = cmd.Flags().GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = cmd.Flags().GetDuration("settle"); err != nil {
		return nil, err
	}
	if cfg.ServiceName, err = cmd.Flags().GetString("service"); err != nil {
		return nil, err
	}
	if cfg.EmbeddedTor, err = cmd.Flags().GetBool("embedded-tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.NoHistory, err = cmd.Flags().GetBool("no-history"); err != nil {
		return nil, err
	}

	logFile, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	// Flags override the config file only when actually given.
	if cmd.Flags().Changed("interval") {
		seconds, err := cmd.Flags().GetInt("interval")
		if err != nil {
			return nil, err
		}
		cfg.Interval = time.Duration(seconds) * time.Second
	}
	if cmd.Flags().Changed("count") {
		if cfg.ChangeCount, err = cmd.Flags().GetInt("count"); err != nil {
			return nil, err
		}
		cfg.ChangeCountSet = true
	}

	return cfg, nil
}

// promptInterval asks for the rotation interval until a value within
// bounds is entered.
func promptInterval(in io.Reader, out io.Writer) (time.Duration, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Rotation interval in seconds (%d-%d): ",
			config.MinRotationInterval, config.MaxRotationInterval)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, errors.New("no rotation interval provided")
		}

		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || n < config.MinRotationInterval || n > config.MaxRotationInterval {
			fmt.Fprintf(out, "Please enter a number between %d and %d.\n",
				config.MinRotationInterval, config.MaxRotationInterval)
			continue
		}
		return time.Duration(n) * time.Second, nil
	}
}

// promptCount asks for the number of IP changes until a value within
// bounds is entered. Zero means unlimited.
func promptCount(in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Number of IP changes (0 for unlimited, max %d): ",
			config.MaxChangeCount)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, errors.New("no change count provided")
		}

		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || n < 0 || n > config.MaxChangeCount {
			fmt.Fprintf(out, "Please enter a number between 0 and %d.\n",
				config.MaxChangeCount)
			continue
		}
		return n, nil
	}
}

// replayChecker feeds an already-computed environment verdict to the
// rotation controller. The probe runs once, before the controller is
// built, because the capability set decides which reload strategies
// exist at all.
type replayChecker struct {
	verdict probe.Verdict
}

// Run returns the stored verdict.
func (r replayChecker) Run(context.Context) probe.Verdict {
	return r.verdict
}

// runRotation wires the components together and runs the session.
func runRotation(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	runner := execx.NewOSRunner()

	// Probe the environment first: the verdict is fatal on a bad host and
	// its capability set decides which reload strategies are available.
	envProber := probe.New(runner, cfg.ServiceName, cfg.TorBinary, probe.WithLogger(logger))
	verdict := envProber.Run(ctx)
	if !verdict.OK {
		return fmt.Errorf("environment check failed: %s", verdict.Reason)
	}

	var (
		client   *tor.Client
		embedded *tor.EmbeddedTor
		err      error
	)
	if cfg.EmbeddedTor {
		embedded = tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()

		client, err = embedded.NewClient(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("failed to create Tor client: %w", err)
		}
	} else {
		client, err = tor.NewClient(cfg.SocksAddress(), cfg.Timeout)
		if err != nil {
			return fmt.Errorf("failed to create Tor client: %w", err)
		}
	}

	ipProber := verifier.New(client.NewHTTPClient(), cfg.Endpoints,
		verifier.WithLogger(logger),
		verifier.WithRetries(cfg.RetryAttempts),
		verifier.WithBackoff(cfg.RetryBackoff),
	)

	supervisor := service.New(runner, cfg.ServiceName, cfg.TorBinary,
		service.WithLogger(logger),
		service.WithCommandTimeout(cfg.Timeout),
		service.WithConnectivityTest(func(ctx context.Context) bool {
			return client.CheckConnection(ctx) == tor.ProxyStatusOK
		}),
	)

	strategies := rotation.BuildStrategies(runner, rotation.StrategyConfig{
		ServiceName:    cfg.ServiceName,
		TorBinary:      cfg.TorBinary,
		CommandTimeout: cfg.Timeout,
		Caps:           verdict.Caps,
		Embedded:       cfg.EmbeddedTor,
	})

	ctrlOpts := []rotation.ControllerOption{
		rotation.WithLogger(logger),
		rotation.WithSettleDelay(cfg.SettleDelay),
	}
	if cfg.EmbeddedTor {
		// A private daemon has no system service to supervise.
		ctrlOpts = append(ctrlOpts, rotation.WithSkipSupervisor())
	}

	controller := rotation.NewController(
		replayChecker{verdict: verdict},
		supervisor,
		ipProber,
		strategies,
		cfg.Interval,
		cfg.ChangeCount,
		ctrlOpts...,
	)

	// A shutdown signal only sets the stop flag; the loop notices it at
	// the next sleep boundary and finishes cleanly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finishing current cycle...")
		controller.RequestStop()
	}()

	summary, runErr := controller.Run(ctx)

	// Persist even aborted sessions; partial history is still history.
	// The parent ctx may already be cancelled, so use a fresh one.
	if !cfg.NoHistory {
		if err := saveSession(context.Background(), cfg, summary, logger); err != nil {
			logger.Error("failed to save session history", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	writer := report.NewSimpleWriter(cmd.OutOrStdout(),
		report.WithVerbose(getVerboseFlag(cmd)))
	if _, err := writer.Write(summary); err != nil {
		return fmt.Errorf("failed to write session summary: %w", err)
	}
	return nil
}

// saveSession records the finished session in the history database.
func saveSession(ctx context.Context, cfg *config.Config, summary *model.SessionSummary, logger *slog.Logger) error {
	store, err := history.Open(cfg.HistoryDirPath(), history.DefaultOptions())
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	id, err := store.SaveSession(ctx, summary)
	if err != nil {
		return err
	}
	logger.Info("session recorded", "id", id, "dir", cfg.HistoryDirPath())
	return nil
}
