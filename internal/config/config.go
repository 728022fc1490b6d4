// Package config loads service configuration from the environment and
// validates it before any image is touched. Configuration errors are
// fatal to the invocation; nothing is processed on a bad config.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sizefit/sizefit/pkg/fit"
	"github.com/sizefit/sizefit/pkg/sizeexpr"
)

// Config holds application configuration
type Config struct {
	Port            int
	MaxUploadMB     int
	MaxConcurrent   int
	RateLimitPerSec int
	RateLimitBurst  int
	WorkerCount     int

	// Search defaults, overridable per request.
	Target        string
	TargetBytes   int64
	BaseFidelity  float64
	MinFidelity   float64
	OutputFormat  string
	StripMetadata bool
	UseTurbo      bool
}

// Load reads configuration from environment variables with defaults.
// Call Validate before use.
func Load() *Config {
	return &Config{
		Port:            getEnvInt("PORT", 8080),
		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", 25),
		MaxConcurrent:   getEnvInt("MAX_CONCURRENT", 50),
		RateLimitPerSec: getEnvInt("RATE_LIMIT", 10),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 20),
		WorkerCount:     getEnvInt("WORKER_COUNT", 10),
		Target:          getEnvStr("TARGET", "600kb"),
		BaseFidelity:    getEnvFloat("BASE_FIDELITY", 0.85),
		MinFidelity:     getEnvFloat("MIN_FIDELITY", 0.55),
		OutputFormat:    getEnvStr("OUTPUT_FORMAT", "jpeg"),
		StripMetadata:   getEnvBool("STRIP_METADATA", true),
		UseTurbo:        getEnvBool("USE_TURBO", false),
	}
}

// Validate normalizes and checks the configuration. Fidelities are
// clamped to the permitted range; an inverted fidelity pair or a
// malformed target is an error, never silently fixed.
func (c *Config) Validate() error {
	if c.Target == "none" || c.Target == "" {
		c.TargetBytes = sizeexpr.Unconstrained
	} else {
		target, err := sizeexpr.Parse(c.Target)
		if err != nil {
			return fmt.Errorf("config: target: %w", err)
		}
		c.TargetBytes = target
	}

	c.BaseFidelity = fit.ClampFidelity(c.BaseFidelity)
	c.MinFidelity = fit.ClampFidelity(c.MinFidelity)
	if c.MinFidelity > c.BaseFidelity {
		return fmt.Errorf("config: min fidelity %.2f above base fidelity %.2f", c.MinFidelity, c.BaseFidelity)
	}

	switch c.OutputFormat {
	case "jpeg", "jpg", "webp":
	default:
		return fmt.Errorf("config: unknown output format %q", c.OutputFormat)
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("config: worker count must be at least 1, got %d", c.WorkerCount)
	}
	return nil
}

// SearchParams returns the fit parameters this configuration implies.
func (c *Config) SearchParams() fit.Params {
	return fit.Params{
		TargetBytes:   c.TargetBytes,
		BaseFidelity:  c.BaseFidelity,
		MinFidelity:   c.MinFidelity,
		StripMetadata: c.StripMetadata,
	}
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvStr(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
