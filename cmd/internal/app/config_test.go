package app

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PACKS_HTTP_ADDR", "PACKS_DATABASE_URL", "PACKS_DB_SCHEMA", "PACKS_CORS_ALLOWED_ORIGINS", "PACKS_PURGE_INTERVAL"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" || cfg.DBSchema != "packs" || cfg.CORSMaxAgeSeconds != 3600 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ReadTimeout != 15*time.Second || cfg.DBMaxConns != 10 || !cfg.MetricsEnabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PurgeInterval != 0 || len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("purger and CORS must be off by default: %+v", cfg)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PACKS_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("PACKS_DB_SCHEMA", " tenant_a ")
	t.Setenv("PACKS_CORS_ALLOWED_ORIGINS", "https://a.example.com/, ,http://127.0.0.1:*")
	t.Setenv("PACKS_PURGE_INTERVAL", "10m")
	t.Setenv("PACKS_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.DBSchema != "tenant_a" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if got := strings.Join(cfg.CORSAllowedOrigins, "|"); got != "https://a.example.com|http://127.0.0.1:*" {
		t.Fatalf("origins=%q", got)
	}
	if cfg.PurgeInterval != 10*time.Minute || cfg.MetricsEnabled {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"bad schema":       {"PACKS_DB_SCHEMA": "drop table;"},
		"bad duration":     {"PACKS_PURGE_INTERVAL": "soon"},
		"negative purge":   {"PACKS_PURGE_INTERVAL": "-1m"},
		"apply without db": {"PACKS_DB_APPLY_SCHEMA": "true", "PACKS_DATABASE_URL": ""},
		"pool bounds":      {"PACKS_DB_MIN_CONNS": "20", "PACKS_DB_MAX_CONNS": "5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Parallel()

	if err := ValidateSecurityConfig(Config{}); err != nil {
		t.Fatalf("no db: %v", err)
	}
	withDB := Config{DatabaseURL: "postgres://localhost/packs"}
	if err := ValidateSecurityConfig(withDB); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	withDB.TokenHMACKey = "short"
	if err := ValidateSecurityConfig(withDB); err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected short key error, got %v", err)
	}
	withDB.TokenHMACKey = strings.Repeat("k", 32)
	if err := ValidateSecurityConfig(withDB); err != nil {
		t.Fatalf("valid key: %v", err)
	}
}
