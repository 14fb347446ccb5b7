package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/lessonvox/lessonvox/internal/config"
	"golang.org/x/term"
)

var logFile *os.File

// setupLog sends logs to stderr until the configuration is known.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)
	return func() error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}, nil
}

// configureLog applies the level and destination from cfg. Output that is
// not a terminal is written as JSON so it can be shipped by a collector.
func configureLog(cfg config.Config) error {
	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return fmt.Errorf("unable to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("unable to open log file: %w", err)
		}
		logFile = f
		out = f
	}
	log.SetOutput(out)

	if cfg.LogFile != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		log.SetFormatter(log.JSONFormatter)
	}
	return nil
}
