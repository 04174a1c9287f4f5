package storage

import (
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/relation"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const latestAtKey = "snapshot:latest:taken_at"

type cachedSnapshot struct {
	ID      string
	TakenAt time.Time
	Payload []byte
}

// latestCache тримає payload найновішого знімка. Latest повертає
// relation.ErrNotFound, коли кеш порожній.
type latestCache interface {
	Latest(ctx context.Context) (cachedSnapshot, error)
	Put(ctx context.Context, c cachedSnapshot) error
	Drop(ctx context.Context) error
}

type redisCache struct {
	rdb *redis.Client
}

func (c redisCache) Latest(ctx context.Context) (cachedSnapshot, error) {
	vals, err := c.rdb.MGet(ctx, latestIDKey, latestAtKey, latestKey).Result()
	if err != nil {
		return cachedSnapshot{}, err
	}
	id, _ := vals[0].(string)
	at, _ := vals[1].(string)
	payload, _ := vals[2].(string)
	if id == "" || payload == "" {
		return cachedSnapshot{}, fmt.Errorf("cached snapshot: %w", relation.ErrNotFound)
	}
	takenAt, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return cachedSnapshot{}, fmt.Errorf("cached snapshot time %q: %w", at, err)
	}
	return cachedSnapshot{ID: id, TakenAt: takenAt, Payload: []byte(payload)}, nil
}

func (c redisCache) Put(ctx context.Context, snap cachedSnapshot) error {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, latestKey, snap.Payload, 0)
	pipe.Set(ctx, latestIDKey, snap.ID, 0)
	pipe.Set(ctx, latestAtKey, snap.TakenAt.Format(time.RFC3339Nano), 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (c redisCache) Drop(ctx context.Context) error {
	return c.rdb.Del(ctx, latestKey, latestIDKey, latestAtKey).Err()
}

// offerLatest кешує record, якщо в кеші немає новішого знімка.
// "Найновіший" означає найпізніший taken_at, як і в запитах до БД та у FileStore.
func offerLatest(ctx context.Context, c latestCache, record SnapshotRecord) error {
	current, err := c.Latest(ctx)
	switch {
	case err == nil && record.TakenAt.Before(current.TakenAt):
		return nil
	case err != nil && !errors.Is(err, relation.ErrNotFound):
		// Невідомо, що в кеші: краще його скинути, ніж лишити старий знімок.
		log.Printf("ERROR: Failed to read cached snapshot: %v", err)
		return c.Drop(ctx)
	}
	return c.Put(ctx, cachedSnapshot{ID: record.ID, TakenAt: record.TakenAt, Payload: record.Payload})
}

// cachedLatest returns the cached snapshot; ok is false when the cache is empty or unusable.
func cachedLatest(ctx context.Context, c latestCache) (models.Snapshot, bool) {
	cached, err := c.Latest(ctx)
	if err != nil {
		if !errors.Is(err, relation.ErrNotFound) {
			log.Printf("ERROR: Failed to read cached snapshot: %v", err)
		}
		return models.Snapshot{}, false
	}
	var snap models.Snapshot
	if err := json.Unmarshal(cached.Payload, &snap); err != nil {
		log.Printf("ERROR: Cached snapshot %s is corrupt, falling back to database: %v", cached.ID, err)
		return models.Snapshot{}, false
	}
	return snap, true
}

// forgetCached drops the cache when it holds snapshot id.
func forgetCached(ctx context.Context, c latestCache, id string) error {
	cached, err := c.Latest(ctx)
	switch {
	case errors.Is(err, relation.ErrNotFound):
		return nil
	case err == nil && cached.ID != id:
		return nil
	}
	return c.Drop(ctx)
}
