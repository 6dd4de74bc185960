package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

const (
	itemPageKeyPrefix = "ddmrp:items"
	summaryKeyPrefix  = "ddmrp:summary"
)

// PageCache memoizes item listings and portfolio summaries per snapshot.
// Keys embed the snapshot sequence, so a new snapshot never reads pages
// computed from an older one.
type PageCache interface {
	GetItemPage(ctx context.Context, seq uint64, filter domain.ItemFilter) (*domain.ItemPage, bool, error)
	SetItemPage(ctx context.Context, seq uint64, filter domain.ItemFilter, page *domain.ItemPage) error
	GetSummary(ctx context.Context, seq uint64) (*domain.PortfolioSummary, bool, error)
	SetSummary(ctx context.Context, seq uint64, summary *domain.PortfolioSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisPageCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPageCache struct{}

func NewPageCache(client *redis.Client, cfg config.CacheConfig) PageCache {
	if client == nil || !cfg.Enabled {
		return &noopPageCache{}
	}
	return &redisPageCache{client: client, ttl: defaultPageTTL}
}

func NewNoopPageCache() PageCache {
	return &noopPageCache{}
}

func (c *redisPageCache) GetItemPage(ctx context.Context, seq uint64, filter domain.ItemFilter) (*domain.ItemPage, bool, error) {
	var page domain.ItemPage
	ok, err := c.get(ctx, buildItemPageKey(seq, filter), &page)
	if !ok || err != nil {
		return nil, false, err
	}
	return &page, true, nil
}

func (c *redisPageCache) SetItemPage(ctx context.Context, seq uint64, filter domain.ItemFilter, page *domain.ItemPage) error {
	return c.set(ctx, buildItemPageKey(seq, filter), page)
}

func (c *redisPageCache) GetSummary(ctx context.Context, seq uint64) (*domain.PortfolioSummary, bool, error) {
	var summary domain.PortfolioSummary
	ok, err := c.get(ctx, fmt.Sprintf("%s:%d", summaryKeyPrefix, seq), &summary)
	if !ok || err != nil {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *redisPageCache) SetSummary(ctx context.Context, seq uint64, summary *domain.PortfolioSummary) error {
	return c.set(ctx, fmt.Sprintf("%s:%d", summaryKeyPrefix, seq), summary)
}

func (c *redisPageCache) InvalidateAll(ctx context.Context) error {
	if err := deleteKeysWithPrefix(ctx, c.client, itemPageKeyPrefix, scanBatchSize); err != nil {
		return err
	}
	return deleteKeysWithPrefix(ctx, c.client, summaryKeyPrefix, scanBatchSize)
}

func (c *redisPageCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *redisPageCache) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopPageCache) GetItemPage(ctx context.Context, seq uint64, filter domain.ItemFilter) (*domain.ItemPage, bool, error) {
	return nil, false, nil
}

func (n *noopPageCache) SetItemPage(ctx context.Context, seq uint64, filter domain.ItemFilter, page *domain.ItemPage) error {
	return nil
}

func (n *noopPageCache) GetSummary(ctx context.Context, seq uint64) (*domain.PortfolioSummary, bool, error) {
	return nil, false, nil
}

func (n *noopPageCache) SetSummary(ctx context.Context, seq uint64, summary *domain.PortfolioSummary) error {
	return nil
}

func (n *noopPageCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildItemPageKey(seq uint64, filter domain.ItemFilter) string {
	return fmt.Sprintf("%s:%d:%s", itemPageKeyPrefix, seq, itemFilterHash(filter))
}

func itemFilterHash(filter domain.ItemFilter) string {
	parts := []string{}

	if filter.Status != "" {
		parts = append(parts, "status="+strings.ToLower(strings.TrimSpace(string(filter.Status))))
	}
	if filter.Zone != "" {
		parts = append(parts, "zone="+strings.ToLower(strings.TrimSpace(string(filter.Zone))))
	}
	if filter.ABC != "" {
		parts = append(parts, "abc="+strings.ToUpper(strings.TrimSpace(filter.ABC)))
	}
	if filter.Category != "" {
		parts = append(parts, "category="+strings.ToUpper(strings.TrimSpace(filter.Category)))
	}
	if filter.Search != "" {
		parts = append(parts, "search="+strings.ToLower(strings.TrimSpace(filter.Search)))
	}
	if filter.SortField != "" {
		parts = append(parts, "sort="+strings.ToLower(filter.SortField)+":"+strings.ToLower(filter.SortDirection))
	}
	if filter.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", filter.Page))
	}
	if filter.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("page_size=%d", filter.PageSize))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
