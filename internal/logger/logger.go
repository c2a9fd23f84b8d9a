// Package logger builds the daemon's zap logger: console output plus a
// lumberjack-rotated log file at --log-file, with a level that can be
// hot-reloaded from a watched config file without restarting the process.
package logger

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

// Config holds logger construction parameters, matching the CLI/env
// surface spec.md §6 defines: a textual level name and a log file path.
type Config struct {
	Level      string // Debug, Info, Warn, Error (case-insensitive)
	LogFile    string // rotated JSON log destination; "" disables file logging
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns the rotation parameters suitable for an
// unattended Pi-based daemon.
func DefaultConfig() Config {
	return Config{
		Level:      "Error",
		LogFile:    "/var/log/telescoped.log",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// ParseLevel maps the daemon's log-level names onto zapcore levels. An
// invalid name is a fatal startup condition per spec.md §6/§7.
func ParseLevel(name string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("logger: invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New builds a *zap.Logger plus the AtomicLevel backing it, so a caller
// can later rewire the level from a config watch.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	startLevel, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	atomicLevel := zap.NewAtomicLevelAt(startLevel)

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), atomicLevel))

	if cfg.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		jsonEncoder := zapcore.NewJSONEncoder(encoderCfg)
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(fileWriter), atomicLevel))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return log, atomicLevel, nil
}

// levelFile is the minimal shape a watched YAML config needs for hot
// reload: just the nested logger.level key.
type levelFile struct {
	Logger struct {
		Level string `yaml:"level"`
	} `yaml:"logger"`
}

// WatchLevel watches configPath with fsnotify and updates level whenever
// the file's logger.level key changes, so an operator can adjust
// verbosity on a running daemon without a restart. Returns a stop func;
// malformed files or unreadable levels are logged and otherwise ignored.
func WatchLevel(log *zap.Logger, level zap.AtomicLevel, configPath string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloadLevel(log, level, configPath)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug("config watch error", zap.Error(werr))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

func reloadLevel(log *zap.Logger, level zap.AtomicLevel, configPath string) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Debug("config reload: read failed", zap.Error(err))
		return
	}

	var parsed levelFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		log.Debug("config reload: parse failed", zap.Error(err))
		return
	}
	if parsed.Logger.Level == "" {
		return
	}

	newLevel, err := ParseLevel(parsed.Logger.Level)
	if err != nil {
		log.Debug("config reload: invalid level", zap.Error(err))
		return
	}

	if newLevel != level.Level() {
		level.SetLevel(newLevel)
		log.Info("log level reloaded", zap.String("level", newLevel.String()))
	}
}
