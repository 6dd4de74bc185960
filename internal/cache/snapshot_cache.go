package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/internal/pipeline"
)

const snapshotKey = "ddmrp:snapshot:latest"

// SnapshotCache keeps the last published snapshot so a restarted process can
// serve stale plans while it refreshes.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context) (*pipeline.Snapshot, error)
	SetSnapshot(ctx context.Context, snap *pipeline.Snapshot) error
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSnapshotCache struct{}

func NewSnapshotCache(client *redis.Client, cfg config.CacheConfig) SnapshotCache {
	if client == nil || !cfg.Enabled {
		return &noopSnapshotCache{}
	}
	return &redisSnapshotCache{
		client: client,
		ttl:    ttlOr(cfg.SnapshotTTLSeconds, defaultSnapshotTTL),
	}
}

func NewNoopSnapshotCache() SnapshotCache {
	return &noopSnapshotCache{}
}

// GetSnapshot returns nil without error when nothing is cached.
func (c *redisSnapshotCache) GetSnapshot(ctx context.Context) (*pipeline.Snapshot, error) {
	payload, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap pipeline.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot cache: %w", err)
	}
	return &snap, nil
}

func (c *redisSnapshotCache) SetSnapshot(ctx context.Context, snap *pipeline.Snapshot) error {
	if snap == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot cache: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopSnapshotCache) GetSnapshot(ctx context.Context) (*pipeline.Snapshot, error) {
	return nil, nil
}

func (n *noopSnapshotCache) SetSnapshot(ctx context.Context, snap *pipeline.Snapshot) error {
	return nil
}

var (
	_ pipeline.SnapshotStore = (*redisSnapshotCache)(nil)
	_ pipeline.SnapshotStore = (*noopSnapshotCache)(nil)
)
