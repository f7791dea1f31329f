package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"topten/internal/config"
)

const (
	logLevelEnvKey  = "TOPTEN_LOG_LEVEL"
	logFormatEnvKey = "TOPTEN_LOG_FORMAT"
)

type levelSource int

const (
	levelFromDefault levelSource = iota
	levelFromConfig
	levelFromEnv
	levelFromFlag
)

// levelSetting is the winning log level candidate and where it came from.
type levelSetting struct {
	raw    string
	source levelSource
}

func (s levelSetting) fallbackWarning() string {
	switch s.source {
	case levelFromEnv:
		return fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, s.raw, config.DefaultLogLevel)
	case levelFromConfig:
		return fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", s.raw, config.DefaultLogLevel)
	}
	return ""
}

// configureLoggerForCLI installs the default slog logger on stderr. An invalid
// --log-level is an error; a bad env or config value falls back to info and
// comes back as a warning for the caller to print.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	setting := selectedLogLevel(flagLevel, os.Getenv(logLevelEnvKey), configLevel)
	level, err := parseLogLevel(setting.raw)
	if err != nil && setting.source == levelFromFlag {
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	}

	var warnings []string
	if err != nil {
		level = slog.LevelInfo
		warnings = append(warnings, setting.fallbackWarning())
	}

	jsonLogs, err := parseLogFormat(os.Getenv(logFormatEnvKey))
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("warning: %v; using text", err))
	}

	slog.SetDefault(newLogger(os.Stderr, level, jsonLogs))
	return strings.Join(warnings, "\n"), nil
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) levelSetting {
	for _, s := range []levelSetting{
		{raw: flagLevel, source: levelFromFlag},
		{raw: envLevel, source: levelFromEnv},
		{raw: configLevel, source: levelFromConfig},
	} {
		if strings.TrimSpace(s.raw) != "" {
			return s
		}
	}
	return levelSetting{source: levelFromDefault}
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = config.DefaultLogLevel
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}

	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// parseLogFormat reports whether logs should be JSON. Empty means text.
func parseLogFormat(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "text":
		return false, nil
	case "json":
		return true, nil
	}
	return false, fmt.Errorf("invalid %s=%q", logFormatEnvKey, raw)
}

func newLogger(w io.Writer, level slog.Level, jsonLogs bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
