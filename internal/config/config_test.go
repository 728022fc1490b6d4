package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Target != "600kb" {
		t.Errorf("Target = %s, want 600kb", cfg.Target)
	}
	if cfg.BaseFidelity != 0.85 || cfg.MinFidelity != 0.55 {
		t.Errorf("Fidelities = %.2f/%.2f, want 0.85/0.55", cfg.BaseFidelity, cfg.MinFidelity)
	}
	if !cfg.StripMetadata {
		t.Error("StripMetadata should default to true")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("TARGET", "2mb")
	t.Setenv("BASE_FIDELITY", "0.9")
	t.Setenv("MIN_FIDELITY", "0.3")
	t.Setenv("OUTPUT_FORMAT", "webp")
	t.Setenv("USE_TURBO", "true")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.TargetBytes != 2*1024*1024 {
		t.Errorf("TargetBytes = %d, want 2MiB", cfg.TargetBytes)
	}
	if cfg.OutputFormat != "webp" || !cfg.UseTurbo {
		t.Errorf("Format/turbo = %s/%v", cfg.OutputFormat, cfg.UseTurbo)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"Empty target means unconstrained", func(c *Config) { c.Target = "" }, false},
		{"Target none means unconstrained", func(c *Config) { c.Target = "none" }, false},
		{"Malformed target", func(c *Config) { c.Target = "sixhundred" }, true},
		{"Zero target", func(c *Config) { c.Target = "0" }, true},
		{"Min above base", func(c *Config) { c.BaseFidelity, c.MinFidelity = 0.3, 0.8 }, true},
		{"Unknown format", func(c *Config) { c.OutputFormat = "avif" }, true},
		{"Zero workers", func(c *Config) { c.WorkerCount = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ClampsFidelity(t *testing.T) {
	cfg := Load()
	cfg.BaseFidelity = 5.0
	cfg.MinFidelity = -0.2

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.BaseFidelity != 1.0 {
		t.Errorf("BaseFidelity = %.2f, want clamped 1.0", cfg.BaseFidelity)
	}
	if cfg.MinFidelity != 0.1 {
		t.Errorf("MinFidelity = %.2f, want clamped 0.1", cfg.MinFidelity)
	}
}

func TestSearchParams(t *testing.T) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	p := cfg.SearchParams()
	if p.TargetBytes != 600*1024 {
		t.Errorf("TargetBytes = %d, want %d", p.TargetBytes, 600*1024)
	}
	if p.BaseFidelity != 0.85 || p.MinFidelity != 0.55 || !p.StripMetadata {
		t.Errorf("Params = %+v", p)
	}
}
