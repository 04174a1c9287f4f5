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
	"gorm.io/gorm"
)

const (
	// EventsChannel is the Redis Pub/Sub channel change events go to.
	EventsChannel = "chatgraph:events"

	latestKey   = "snapshot:latest"
	latestIDKey = "snapshot:latest:id"
)

// Event is published after every command that changed the store.
type Event struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	TakenAt  time.Time `json:"taken_at"`
	Users    int       `json:"users"`
	Chats    int       `json:"chats"`
	Messages int       `json:"messages"`
}

// Storage persists snapshots of a models.Store and spreads change events.
type Storage interface {
	SaveSnapshot(ctx context.Context, label string, snap models.Snapshot) (string, error)
	LoadSnapshot(ctx context.Context, id string) (models.Snapshot, error)
	LatestSnapshot(ctx context.Context) (models.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error)
	FindSnapshotsWithUser(ctx context.Context, phone string) ([]SnapshotInfo, error)
	DeleteSnapshot(ctx context.Context, id string) error

	PublishEvent(ctx context.Context, event Event) error
}

// Service зберігає знімки в PostgreSQL, а останній з них кешує в Redis.
// Redis може бути nil (наприклад, для admin CLI).
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client

	cache latestCache
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	s := &Service{
		DB:    db,
		Redis: rdb,
	}
	if rdb != nil {
		s.cache = redisCache{rdb: rdb}
	}
	return s
}

// Migrate створює або оновлює таблицю знімків.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(&SnapshotRecord{})
}

// SaveSnapshot записує знімок у PostgreSQL і оновлює кеш останнього знімка.
func (s *Service) SaveSnapshot(ctx context.Context, label string, snap models.Snapshot) (string, error) {
	record, err := newSnapshotRecord(label, snap)
	if err != nil {
		return "", err
	}

	if err := s.DB.WithContext(ctx).Create(&record).Error; err != nil {
		log.Printf("ERROR: Failed to save snapshot %s: %v", label, err)
		return "", err
	}

	// Кеш не критичний: помилка Redis лише логується.
	if s.cache != nil {
		if err := offerLatest(ctx, s.cache, record); err != nil {
			log.Printf("ERROR: Failed to cache snapshot %s: %v", record.ID, err)
		}
	}
	return record.ID, nil
}

func (s *Service) LoadSnapshot(ctx context.Context, id string) (models.Snapshot, error) {
	var record SnapshotRecord
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Snapshot{}, fmt.Errorf("snapshot %s: %w", id, relation.ErrNotFound)
	}
	if err != nil {
		log.Printf("ERROR: Failed to load snapshot %s: %v", id, err)
		return models.Snapshot{}, err
	}
	return record.decode()
}

// LatestSnapshot спочатку читає кеш Redis, а якщо його немає, то бере найновіший запис з БД.
func (s *Service) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	if s.cache != nil {
		if snap, ok := cachedLatest(ctx, s.cache); ok {
			return snap, nil
		}
	}

	var record SnapshotRecord
	err := s.DB.WithContext(ctx).Order("taken_at desc").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Snapshot{}, fmt.Errorf("latest snapshot: %w", relation.ErrNotFound)
	}
	if err != nil {
		log.Printf("ERROR: Failed to load latest snapshot: %v", err)
		return models.Snapshot{}, err
	}
	return record.decode()
}

// ListSnapshots повертає знімки від найновішого. limit <= 0 означає без обмеження.
func (s *Service) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	query := s.DB.WithContext(ctx).Omit("payload").Order("taken_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []SnapshotRecord
	if err := query.Find(&records).Error; err != nil {
		log.Printf("ERROR: Failed to list snapshots: %v", err)
		return nil, err
	}
	return infos(records), nil
}

// FindSnapshotsWithUser шукає знімки, в яких є користувач з даним телефоном.
func (s *Service) FindSnapshotsWithUser(ctx context.Context, phone string) ([]SnapshotInfo, error) {
	var records []SnapshotRecord
	err := s.DB.WithContext(ctx).
		Omit("payload").
		Where("? = ANY(phones)", phone).
		Order("taken_at desc").
		Find(&records).Error
	if err != nil {
		log.Printf("ERROR: Failed to find snapshots with user %s: %v", phone, err)
		return nil, err
	}
	return infos(records), nil
}

func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	result := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&SnapshotRecord{})
	if result.Error != nil {
		log.Printf("ERROR: Failed to delete snapshot %s: %v", id, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("snapshot %s: %w", id, relation.ErrNotFound)
	}

	if s.cache != nil {
		if err := forgetCached(ctx, s.cache, id); err != nil {
			log.Printf("ERROR: Failed to drop cached snapshot %s: %v", id, err)
		}
	}
	return nil
}

// PublishEvent публікує подію в Redis Pub/Sub
func (s *Service) PublishEvent(ctx context.Context, event Event) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, EventsChannel, payload).Err()
}

// SubscribeEvents підписується на канал подій.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, EventsChannel)
}
