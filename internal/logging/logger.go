// Package logging wires the arbor structured logger for the acquisition
// pipeline: console and/or file output per configuration. Session log
// streaming is a separate concern, served by internal/orchestrator's own
// bounded per-session channel rather than by this package.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"

	"github.com/ternarybob/dno-gatherer/internal/config"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// Get returns the global logger, falling back to a bare console logger if
// Setup hasn't run yet.
func Get() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(writerConfig(nil, models.LogWriterTypeConsole, ""))
		globalLogger.Warn().Msg("using fallback logger - Setup() should be called during startup")
	}
	return globalLogger
}

// Setup configures the global logger from cfg: console and/or file output
// per cfg.Logging.Output.
func Setup(cfg *config.Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, o := range cfg.Logging.Output {
		switch o {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}

	if hasFile {
		execPath, err := os.Executable()
		if err != nil {
			logger = logger.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole, ""))
			logger.Warn().Err(err).Msg("failed to resolve executable path, falling back to console logging")
		} else {
			logsDir := filepath.Join(filepath.Dir(execPath), "logs")
			if err := os.MkdirAll(logsDir, 0755); err != nil {
				logger = logger.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole, ""))
				logger.Warn().Err(err).Str("logs_dir", logsDir).Msg("failed to create logs directory")
			} else {
				logFile := filepath.Join(logsDir, "dno-gatherer.log")
				logger = logger.WithFileWriter(writerConfig(cfg, models.LogWriterTypeFile, logFile))
			}
		}
	}

	if hasConsole || !hasFile {
		logger = logger.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole, ""))
	}

	logger = logger.WithLevelFromString(cfg.Logging.Level)

	loggerMutex.Lock()
	globalLogger = logger
	loggerMutex.Unlock()

	return logger
}

func writerConfig(cfg *config.Config, t models.LogWriterType, filename string) models.WriterConfiguration {
	timeFormat := "15:04:05.000"
	if cfg != nil && cfg.Logging.TimeFormat != "" {
		timeFormat = cfg.Logging.TimeFormat
	}
	return models.WriterConfiguration{
		Type:             t,
		FileName:         filename,
		TimeFormat:       timeFormat,
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
	}
}

// Stop flushes any remaining context logs before shutdown. Safe to call
// multiple times.
func Stop() {
	arborcommon.Stop()
}
