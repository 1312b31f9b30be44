package config

import (
	"reflect"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		DatabaseURL:    "postgres://localhost/contrib",
		Environment:    "development",
		DefaultCity:    "佛山",
		MaxUploadBytes: 10 << 20,
		JobQueueSize:   8,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ADDR", "")
	t.Setenv("DEFAULT_CITY", "")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.DefaultCity != "佛山" {
		t.Fatalf("expected default city 佛山, got %q", cfg.DefaultCity)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Fatalf("expected fallback upload limit, got %d", cfg.MaxUploadBytes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid"},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = " " },
			wantErr: "DATABASE_URL",
		},
		{
			name: "production requires encryption key",
			mutate: func(c *Config) {
				c.Environment = "production"
			},
			wantErr: "DATA_ENCRYPTION_KEY",
		},
		{
			name:    "tiny upload limit",
			mutate:  func(c *Config) { c.MaxUploadBytes = 10 },
			wantErr: "MAX_UPLOAD_BYTES",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.RateLimitPerMinute = -1 },
			wantErr: "RATE_LIMIT_PER_MINUTE",
		},
		{
			name:    "missing font file",
			mutate:  func(c *Config) { c.PDFFontPath = "/nonexistent/font.ttf" },
			wantErr: "PDF_FONT_PATH",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStatusReportsMissingVars(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	status := cfg.Status()
	if status.Configured {
		t.Fatal("expected unconfigured status")
	}
	if !reflect.DeepEqual(status.MissingVars, []string{"DATABASE_URL"}) {
		t.Fatalf("unexpected missing vars %v", status.MissingVars)
	}

	if ok := validConfig().Status(); !ok.Configured || len(ok.MissingVars) != 0 {
		t.Fatalf("expected configured status, got %+v", ok)
	}
}
