package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/config"
	"github.com/sarchlab/slicesim/logging"
	"github.com/spf13/cobra"
)

const nodeStopTimeout = 2 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario.",
	Long: "Run a scenario until its duration passes or the process is " +
		"interrupted. Without --scenario, the built-in smart-city scenario " +
		"runs. Settings are taken from the scenario, then from SLICESIM_* " +
		"environment variables and a .env file, then from flags.",
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("scenario", "", "Scenario file (YAML)")
	f.String("env", "", "Dotenv file to load (default .env if present)")
	f.Duration("duration", 0, "How long to run; 0 runs until interrupted")
	f.String("transform", "", "Transform: mask, aes-gcm or chacha20-poly1305")
	f.Int("monitor-port", 0, "Serve the monitor on this port; 0 picks one")
	f.Bool("no-monitor", false, "Do not serve the monitor")
	f.Bool("open-monitor", false, "Open the monitor in a browser")
	f.String("record", "", "Record samples into this file (.sqlite3 is added)")
	f.String("log-level", "", "Log level: trace, debug, info, warn or error")
	f.String("log-format", "", "Log format: console or json")
	f.String("log-file", "", "Also write JSON logs to this file")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	s, err := scenarioFromFlags(cmd)
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:  s.Logging.Level,
		Format: s.Logging.Format,
		File:   s.Logging.File,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	a, err := config.Build(s, logger)
	if err != nil {
		return err
	}

	if err := a.Start(); err != nil {
		a.Close(nodeStopTimeout)
		return err
	}

	if addr := a.MonitorAddress(); addr != "" && s.Monitoring.Open {
		if err := browser.OpenURL(addr); err != nil {
			logger.Warn().Err(err).Msg("cannot open the monitor")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wait(ctx, a, s.Duration, logger)

	err = a.Close(nodeStopTimeout)

	fmt.Fprintln(cmd.OutOrStdout(), "=== Final Metrics ===")
	fmt.Fprintln(cmd.OutOrStdout(), a.Snapshot().String())

	return err
}

func scenarioFromFlags(cmd *cobra.Command) (*config.Scenario, error) {
	f := cmd.Flags()

	envFile, _ := f.GetString("env")

	var err error
	if envFile != "" {
		err = config.LoadDotEnv(envFile)
	} else {
		err = config.LoadDotEnv()
	}

	if err != nil {
		return nil, err
	}

	path, _ := f.GetString("scenario")

	s, err := loadScenario(path)
	if err != nil {
		return nil, err
	}

	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}

	if f.Changed("duration") {
		s.Duration, _ = f.GetDuration("duration")
	}

	if f.Changed("transform") {
		s.Transform, _ = f.GetString("transform")
	}

	if f.Changed("monitor-port") {
		s.Monitoring.Enabled = true
		s.Monitoring.Port, _ = f.GetInt("monitor-port")
	}

	if noMonitor, _ := f.GetBool("no-monitor"); noMonitor {
		s.Monitoring.Enabled = false
	}

	if open, _ := f.GetBool("open-monitor"); open {
		s.Monitoring.Enabled = true
		s.Monitoring.Open = true
	}

	if f.Changed("record") {
		s.Recording.Enabled = true
		s.Recording.Path, _ = f.GetString("record")
	}

	if f.Changed("log-level") {
		s.Logging.Level, _ = f.GetString("log-level")
	}

	if f.Changed("log-format") {
		s.Logging.Format, _ = f.GetString("log-format")
	}

	if f.Changed("log-file") {
		s.Logging.File, _ = f.GetString("log-file")
	}

	return s, nil
}

// wait blocks until the context ends or, for a timed run, the duration
// passes. Timed runs with a monitor report their progress there.
func wait(
	ctx context.Context,
	a *config.Assembly,
	duration time.Duration,
	logger zerolog.Logger,
) {
	if duration <= 0 {
		<-ctx.Done()
		logger.Info().Msg("interrupted")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	if a.Monitor == nil {
		<-ctx.Done()
		return
	}

	seconds := uint64((duration + time.Second - 1) / time.Second)
	bar := a.Monitor.CreateProgressBar(
		fmt.Sprintf("Running %s", a.Scenario.Name), seconds)
	defer a.Monitor.CompleteProgressBar(bar)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bar.IncrementFinished(1)
		}
	}
}
