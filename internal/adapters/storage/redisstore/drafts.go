package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key of the shared draft slot.
const DefaultKey = "taskboard:taskDraft"

// Drafts keeps the task modal draft in Redis so several terminals share it.
type Drafts struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ app.DraftStore = (*Drafts)(nil)

// NewDrafts wraps client. A blank key uses DefaultKey; ttl <= 0 keeps the
// draft until it is cleared.
func NewDrafts(client *redis.Client, key string, ttl time.Duration) *Drafts {
	if client == nil {
		panic("redisstore.NewDrafts: client is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Drafts{client: client, key: key, ttl: ttl}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, key string) (*Drafts, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewDrafts(client, key, 0), nil
}

// Close closes the underlying client.
func (d *Drafts) Close() error {
	return d.client.Close()
}

// Save writes the draft.
func (d *Drafts) Save(ctx context.Context, draft domain.Draft) error {
	raw, err := domain.EncodeDraft(draft)
	if err != nil {
		return err
	}
	if err := d.client.Set(ctx, d.key, raw, d.ttl).Err(); err != nil {
		return fmt.Errorf("redis set draft: %w", err)
	}
	return nil
}

// Load reads the draft; a missing key reports no draft.
func (d *Drafts) Load(ctx context.Context) (domain.Draft, bool, error) {
	raw, err := d.client.Get(ctx, d.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Draft{}, false, nil
	}
	if err != nil {
		return domain.Draft{}, false, fmt.Errorf("redis get draft: %w", err)
	}
	draft, err := domain.DecodeDraft(raw)
	if err != nil {
		return domain.Draft{}, false, err
	}
	return draft, true, nil
}

// Clear deletes the draft.
func (d *Drafts) Clear(ctx context.Context) error {
	if err := d.client.Del(ctx, d.key).Err(); err != nil {
		return fmt.Errorf("redis del draft: %w", err)
	}
	return nil
}
