package repo

import (
	"testing"
	"time"
)

func TestDBConfigFromEnv(t *testing.T) {
	t.Setenv("DB_URL", "postgresql://u:p@db:5432/x")
	t.Setenv("DB_MAX_CONNS", "4")

	cfg := DBConfigFromEnv().withDefaults()
	if cfg.DSN != "postgresql://u:p@db:5432/x" {
		t.Errorf("expected DSN from env, got %q", cfg.DSN)
	}
	if cfg.MaxConns != 4 {
		t.Errorf("expected 4 conns, got %d", cfg.MaxConns)
	}
	if cfg.PingTimeout != 5*time.Second {
		t.Errorf("expected 5s ping timeout, got %v", cfg.PingTimeout)
	}
}

func TestDBConfig_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("DB_MAX_CONNS", "many")

	cfg := DBConfigFromEnv().withDefaults()
	if cfg.DSN != defaultDSN {
		t.Errorf("expected default DSN, got %q", cfg.DSN)
	}
	if cfg.MaxConns != 10 {
		t.Errorf("expected 10 conns, got %d", cfg.MaxConns)
	}
}
