package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepository stores items as JSON strings with a set index per email
type RedisRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRepository creates a repository using keys under prefix
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "pricecompare"
	}
	return &RedisRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) itemKey(id string) string    { return r.prefix + ":item:" + id }
func (r *RedisRepository) emailKey(email string) string { return r.prefix + ":email:" + email }
func (r *RedisRepository) allKey() string               { return r.prefix + ":items" }

// Create assigns an ID and stores the item with its indexes
func (r *RedisRepository) Create(ctx context.Context, item Item) (Item, error) {
	item.ID = uuid.NewString()
	item.CreatedAt = r.now().UTC()

	data, err := json.Marshal(item)
	if err != nil {
		return Item{}, fmt.Errorf("marshal tracked item: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.itemKey(item.ID), data, 0)
		pipe.SAdd(ctx, r.emailKey(item.Email), item.ID)
		pipe.SAdd(ctx, r.allKey(), item.ID)
		return nil
	})
	if err != nil {
		return Item{}, fmt.Errorf("store tracked item: %w", err)
	}
	return item, nil
}

// Get returns the item with id
func (r *RedisRepository) Get(ctx context.Context, id string) (Item, error) {
	data, err := r.client.Get(ctx, r.itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("load tracked item: %w", err)
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return Item{}, fmt.Errorf("decode tracked item: %w", err)
	}
	return item, nil
}

// ListByEmail returns an email's items, oldest first
func (r *RedisRepository) ListByEmail(ctx context.Context, email string) ([]Item, error) {
	return r.listSet(ctx, r.emailKey(email))
}

// List returns every item, oldest first
func (r *RedisRepository) List(ctx context.Context) ([]Item, error) {
	return r.listSet(ctx, r.allKey())
}

func (r *RedisRepository) listSet(ctx context.Context, key string) ([]Item, error) {
	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("list tracked items: %w", err)
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		item, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sortByCreation(items)
	return items, nil
}

// Update replaces an existing item
func (r *RedisRepository) Update(ctx context.Context, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal tracked item: %w", err)
	}
	ok, err := r.client.SetXX(ctx, r.itemKey(item.ID), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("update tracked item: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes the item and its index entries
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	item, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.itemKey(id))
		pipe.SRem(ctx, r.emailKey(item.Email), id)
		pipe.SRem(ctx, r.allKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete tracked item: %w", err)
	}
	return nil
}
