package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://u:p@db:5432/assess")
	path := writeConfig(t, `
server:
  port: "9090"
postgres:
  url: "postgres://ignored"
history:
  retries: 3
  retryInterval: "50ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.History.Retries != 3 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Postgres.URL != "postgres://u:p@db:5432/assess" {
		t.Fatalf("expected env override, got %s", cfg.Postgres.URL)
	}
	if got := TTLDuration(cfg.History.RetryInterval, time.Second); got != 50*time.Millisecond {
		t.Fatalf("expected 50ms, got %v", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"port":          "server:\n  port: \"http\"\n",
		"minio keys":    "minio:\n  endpoint: \"localhost:9000\"\n",
		"duration":      "quiz:\n  ttl: \"ten minutes\"\n",
		"retries":       "history:\n  retries: -1\n",
		"redis address": "redis:\n  addr: \"not an address\"\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil || !strings.Contains(err.Error(), "invalid config") {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestSampleConfigIsValid(t *testing.T) {
	if _, err := Load(filepath.Join("..", "..", "config", "config.yaml")); err != nil {
		t.Fatalf("sample config: %v", err)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
