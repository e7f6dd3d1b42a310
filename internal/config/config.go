// Package config reads the odmaps runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultSubsetURL = "http://localhost:8080/subset"
	defaultTimeout   = 30 * time.Minute
)

// Config holds settings shared by the download and plot commands.
type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// SubsetURL is the endpoint of the remote subset service.
	SubsetURL string
	Username  string
	Password  string
	// Timeout bounds a single subset request. Zero disables it.
	Timeout time.Duration

	// LandShapefile is an optional polygon shapefile drawn as land on maps.
	LandShapefile string
}

// LoadFromEnv reads the configuration from the environment and applies
// defaults for unset variables.
func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	subsetURL := strings.TrimSpace(os.Getenv("ODMAPS_SUBSET_URL"))
	if subsetURL == "" {
		subsetURL = defaultSubsetURL
	}
	if err := checkURL(subsetURL); err != nil {
		return Config{}, err
	}

	timeout := defaultTimeout
	if s := strings.TrimSpace(os.Getenv("ODMAPS_TIMEOUT")); s != "" {
		timeout, err = time.ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ODMAPS_TIMEOUT %q: %w", s, err)
		}
		if timeout < 0 {
			return Config{}, fmt.Errorf("invalid ODMAPS_TIMEOUT %q: must not be negative", s)
		}
	}

	return Config{
		AppEnv:        appEnv,
		LogLevel:      level,
		SubsetURL:     subsetURL,
		Username:      os.Getenv("COPERNICUSMARINE_SERVICE_USERNAME"),
		Password:      os.Getenv("COPERNICUSMARINE_SERVICE_PASSWORD"),
		Timeout:       timeout,
		LandShapefile: strings.TrimSpace(os.Getenv("ODMAPS_LAND_SHAPEFILE")),
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func checkURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid ODMAPS_SUBSET_URL %q: %w", s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid ODMAPS_SUBSET_URL %q: want an absolute http(s) URL", s)
	}
	return nil
}
