package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "codenames:history:"
	redisIndexKey  = "codenames:history:index"
)

// RedisStore keeps each record as a JSON string and maintains a sorted set
// of game ids scored by last update.
type RedisStore struct {
	rdb *redis.Client
}

// RedisConfig selects the server used by RedisStore.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	slog.Info("History store connected", "backend", "redis", "addr", cfg.Addr)
	return &RedisStore{rdb: rdb}, nil
}

func recordKey(gameID string) string {
	return redisKeyPrefix + gameID
}

func (s *RedisStore) Save(ctx context.Context, r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", r.GameID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(r.GameID), data, 0)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(r.UpdatedAt.UnixMilli()),
			Member: r.GameID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", r.GameID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, gameID string) (*Record, error) {
	data, err := s.rdb.Get(ctx, recordKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", gameID, err)
	}
	r, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("record %s is corrupted: %w", gameID, err)
	}
	return r, nil
}

// List returns every indexed game, newest first.
func (s *RedisStore) List(ctx context.Context) ([]Summary, error) {
	ids, err := s.rdb.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history index: %w", err)
	}
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history records: %w", err)
	}

	out := make([]Summary, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			out = append(out, Summary{GameID: ids[i], Error: errCorrupted})
			continue
		}
		r, err := decodeRecord([]byte(raw))
		if err != nil {
			slog.Warn("Corrupted history record", "game_id", ids[i], "error", err)
			out = append(out, Summary{GameID: ids[i], Error: errCorrupted})
			continue
		}
		out = append(out, summarize(r))
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Open builds the store selected by backend.
func Open(ctx context.Context, backend, dir string, redisCfg RedisConfig) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileStore(dir)
	case BackendRedis:
		return NewRedisStore(ctx, redisCfg)
	}
	return nil, fmt.Errorf("unknown history backend %q", backend)
}
