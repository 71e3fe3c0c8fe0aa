package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override scenario fields.
const (
	EnvTransform   = "SLICESIM_TRANSFORM"
	EnvMonitorPort = "SLICESIM_MONITOR_PORT"
	EnvLogLevel    = "SLICESIM_LOG_LEVEL"
	EnvDuration    = "SLICESIM_DURATION"
	EnvRecord      = "SLICESIM_RECORD"
	EnvSeed        = "SLICESIM_SEED"
)

// LoadDotEnv loads variables from the given files into the environment.
// Without files, it loads ".env" if the file exists. Variables already set
// are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) > 0 {
		return godotenv.Load(files...)
	}

	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// ApplyEnv overrides scenario fields with the SLICESIM_* variables that are
// set.
func (s *Scenario) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvTransform); ok && v != "" {
		s.Transform = v
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		s.Logging.Level = v
	}

	if v, ok := os.LookupEnv(EnvMonitorPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMonitorPort, err)
		}

		s.Monitoring.Enabled = true
		s.Monitoring.Port = port
	}

	if v, ok := os.LookupEnv(EnvDuration); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDuration, err)
		}

		s.Duration = d
	}

	if v, ok := os.LookupEnv(EnvRecord); ok && v != "" {
		s.Recording.Enabled = true
		s.Recording.Path = v
	}

	if v, ok := os.LookupEnv(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}

		s.Seed = seed
	}

	return nil
}
