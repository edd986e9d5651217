package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis mirror.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix roots every key and the pub/sub channel.
	Prefix string `json:"prefix"`
}

func (c *RedisConfig) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "rescue"
	}
}

// RedisMirror keeps the latest snapshot of every entity under
// <prefix>:<collection>:<id> and publishes each entry on <prefix>:events.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror connects and pings the server.
func NewRedisMirror(ctx context.Context, cfg RedisConfig) (*RedisMirror, error) {
	cfg.setDefaults()
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisMirror{client: rdb, prefix: cfg.Prefix}, nil
}

// Key returns the key holding an entity snapshot.
func (m *RedisMirror) Key(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", m.prefix, collection, id)
}

// Channel is the pub/sub channel carrying every entry.
func (m *RedisMirror) Channel() string { return m.prefix + ":events" }

// Apply overwrites the snapshot and announces the change in one transaction.
func (m *RedisMirror) Apply(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.Collection, e.ID, err)
	}
	msg, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	_, err = m.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, m.Key(e.Collection, e.ID), data, 0)
		p.Publish(ctx, m.Channel(), msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis mirror %s: %w", e.ID, err)
	}
	return nil
}

// Close closes the client.
func (m *RedisMirror) Close() error { return m.client.Close() }
