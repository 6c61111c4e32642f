package config

import (
	"reflect"
	"testing"
	"time"
)

var allKeys = []string{
	"PORT", "LISTEN_ADDR", "WS_PATH", "ALLOWED_ORIGINS", "STATUS_ADDR",
	"REDIS_URL", "LOBBY_TTL_SEC", "DATABASE_URL", "MESSAGES_DIR",
	"WS_PING_INTERVAL_SEC", "WS_WRITE_TIMEOUT_SEC", "WS_SEND_BUFFER",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3001" || cfg.WSPath != "/ws" || !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.LobbyTTL() != 24*time.Hour || cfg.PingInterval() != 30*time.Second || cfg.WriteTimeout() != 5*time.Second || cfg.WSSendBuffer != 64 {
		t.Fatalf("numeric defaults = %+v", cfg)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" || cfg.StatusAddr != "" {
		t.Fatalf("optional components should be off: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4000")
	t.Setenv("WS_PATH", "socket")
	t.Setenv("ALLOWED_ORIGINS", " example.com , *.example.org ,")
	t.Setenv("STATUS_ADDR", ":9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOBBY_TTL_SEC", "60")
	t.Setenv("WS_SEND_BUFFER", "-3")
	t.Setenv("WS_PING_INTERVAL_SEC", "abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":4000" || cfg.WSPath != "/socket" || cfg.StatusAddr != ":9090" {
		t.Fatalf("addresses = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"example.com", "*.example.org"}) {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.LobbyTTLSec != 60 || cfg.WSSendBuffer != 64 || cfg.WSPingIntervalSec != 30 {
		t.Fatalf("numbers = %+v", cfg)
	}

	t.Setenv("LISTEN_ADDR", "127.0.0.1:5000")
	cfg, _ = Load()
	if cfg.ListenAddr != "127.0.0.1:5000" {
		t.Fatalf("LISTEN_ADDR should win, got %q", cfg.ListenAddr)
	}
}

func TestLoadRejectsSharedStatusAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATUS_ADDR", ":3001")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}
