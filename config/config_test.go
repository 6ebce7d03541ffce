package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetenv clears keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetenv(t, "HTTP_ADDR", "SHUTDOWN_TIMEOUT", "POSTGRES_DSN", "REDIS_ADDR", "LOG_LEVEL", "LOG_FORMAT")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Got HTTPAddr %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Got ShutdownTimeout %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.PostgresDSN != "" || cfg.RedisAddr != "" {
		t.Errorf("Got backends %q %q, want none", cfg.PostgresDSN, cfg.RedisAddr)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("REDIS_ADDR=localhost:6379\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv sets variables for the whole process.
	unsetenv(t, "REDIS_ADDR")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Got RedisAddr %q, want localhost:6379", cfg.RedisAddr)
	}
	level, _ := cfg.Level()
	if level != slog.LevelWarn {
		t.Errorf("Got level %v, want environment value WARN", level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "Level", key: "LOG_LEVEL", val: "loud"},
		{name: "Format", key: "LOG_FORMAT", val: "xml"},
		{name: "Duration", key: "SHUTDOWN_TIMEOUT", val: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Errorf("Load() with %s=%s succeeded, want error", tt.key, tt.val)
			}
		})
	}
}
