package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr     string
	WSPath         string
	AllowedOrigins []string
	StatusAddr     string

	RedisURL    string
	LobbyTTLSec int
	DatabaseURL string

	MessagesDir string

	WSPingIntervalSec int
	WSWriteTimeoutSec int
	WSSendBuffer      int
}

func (c *AppConfig) LobbyTTL() time.Duration { return time.Duration(c.LobbyTTLSec) * time.Second }

func (c *AppConfig) PingInterval() time.Duration {
	return time.Duration(c.WSPingIntervalSec) * time.Second
}

func (c *AppConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WSWriteTimeoutSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":3001",
		WSPath:            "/ws",
		AllowedOrigins:    []string{"*"},
		LobbyTTLSec:       86400,
		WSPingIntervalSec: 30,
		WSWriteTimeoutSec: 5,
		WSSendBuffer:      64,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ListenAddr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_PATH")); v != "" {
		if !strings.HasPrefix(v, "/") {
			v = "/" + v
		}
		cfg.WSPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		var origins []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				origins = append(origins, s)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	cfg.StatusAddr = strings.TrimSpace(os.Getenv("STATUS_ADDR"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	positiveInt("LOBBY_TTL_SEC", &cfg.LobbyTTLSec)
	positiveInt("WS_PING_INTERVAL_SEC", &cfg.WSPingIntervalSec)
	positiveInt("WS_WRITE_TIMEOUT_SEC", &cfg.WSWriteTimeoutSec)
	positiveInt("WS_SEND_BUFFER", &cfg.WSSendBuffer)

	if cfg.StatusAddr != "" && cfg.StatusAddr == cfg.ListenAddr {
		return nil, errors.New("STATUS_ADDR must differ from the websocket listen address")
	}
	return cfg, nil
}

// positiveInt overwrites *dst when key holds a positive integer.
func positiveInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}
