package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/obslog"
)

const defaultTTL = 24 * time.Hour

// State of a code in the shared directory.
type State string

const (
	StateLobby  State = "LOBBY"
	StateActive State = "ACTIVE"
)

// Meta is stored as JSON under duel:code:<code>.
type Meta struct {
	Code      string    `json:"code"`
	State     State     `json:"state"`
	Creator   string    `json:"creator"`
	Instance  string    `json:"instance"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a Redis-backed join-code directory shared by every server process
// pointed at the same Redis.
type Store struct {
	rdb      *redis.Client
	ttl      time.Duration
	instance string
	now      func() time.Time
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl, instance: uuid.NewString(), now: time.Now}
}

// Open connects to redisURL and verifies the connection.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb, ttl), nil
}

func (s *Store) Close() error { return s.rdb.Close() }

// Instance identifies this process in stored metadata.
func (s *Store) Instance() string { return s.instance }

func (s *Store) keyMeta(code string) string { return "duel:code:" + strings.TrimSpace(code) }
func (s *Store) keyLobby() string           { return "duel:lobby" }

// Reserve claims code with SETNX. The lobby index is only touched on success.
func (s *Store) Reserve(ctx context.Context, code, creator string) (bool, error) {
	meta := Meta{Code: code, State: StateLobby, Creator: creator, Instance: s.instance, CreatedAt: s.now().UTC()}
	raw, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, s.keyMeta(code), raw, s.ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		obslog.L().Debug("lobby_code_collision", zap.String("code", code))
		return false, nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, s.keyLobby(), code)
	pipe.Expire(ctx, s.keyLobby(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("lobby index: %w", err)
	}
	return true, nil
}

// Load returns the metadata for code, or nil when it is unknown or expired.
func (s *Store) Load(ctx context.Context, code string) (*Meta, error) {
	raw, err := s.rdb.Get(ctx, s.keyMeta(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkStarted flips code to ACTIVE and drops it from the lobby index.
func (s *Store) MarkStarted(ctx context.Context, code string) error {
	key := s.keyMeta(code)
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		pipe := tx.TxPipeline()
		if err == nil {
			var m Meta
			if uErr := json.Unmarshal(raw, &m); uErr != nil {
				return uErr
			}
			m.State = StateActive
			next, mErr := json.Marshal(m)
			if mErr != nil {
				return mErr
			}
			pipe.SetArgs(ctx, key, next, redis.SetArgs{KeepTTL: true})
		}
		pipe.SRem(ctx, s.keyLobby(), code)
		_, pErr := pipe.Exec(ctx)
		return pErr
	}, key)
}

// Release forgets code.
func (s *Store) Release(ctx context.Context, code string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyMeta(code))
	pipe.SRem(ctx, s.keyLobby(), code)
	_, err := pipe.Exec(ctx)
	return err
}

// ListWaiting returns lobby entries oldest first. Index members whose
// metadata expired are pruned.
func (s *Store) ListWaiting(ctx context.Context) ([]Meta, error) {
	codes, err := s.rdb.SMembers(ctx, s.keyLobby()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Meta, 0, len(codes))
	var stale []any
	for _, c := range codes {
		m, err := s.Load(ctx, c)
		if err != nil {
			return nil, err
		}
		if m == nil {
			stale = append(stale, c)
			continue
		}
		if m.State != StateLobby {
			continue
		}
		out = append(out, *m)
	}
	if len(stale) > 0 {
		if err := s.rdb.SRem(ctx, s.keyLobby(), stale...).Err(); err != nil {
			obslog.L().Warn("lobby_prune_error", zap.Int("stale", len(stale)), zap.Error(err))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
