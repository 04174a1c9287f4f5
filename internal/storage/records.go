package storage

import (
	"chatgraph/backend/internal/models"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SnapshotRecord is one row of the snapshots table. The counters and phones
// are denormalized from the payload for listing and lookup.
type SnapshotRecord struct {
	ID        string         `gorm:"primaryKey;type:uuid"`
	Label     string         `gorm:"size:128;index"`
	TakenAt   time.Time      `gorm:"index"`
	Users     int            `gorm:"not null;default:0"`
	Chats     int            `gorm:"not null;default:0"`
	Messages  int            `gorm:"not null;default:0"`
	Phones    pq.StringArray `gorm:"type:text[]"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (SnapshotRecord) TableName() string { return "snapshots" }

func newSnapshotRecord(label string, snap models.Snapshot) (SnapshotRecord, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return SnapshotRecord{
		ID:       uuid.NewString(),
		Label:    label,
		TakenAt:  snap.TakenAt,
		Users:    len(snap.Users),
		Chats:    len(snap.Chats),
		Messages: len(snap.Messages),
		Phones:   pq.StringArray(snap.Phones()),
		Payload:  datatypes.JSON(payload),
	}, nil
}

func (r SnapshotRecord) decode() (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(r.Payload, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", r.ID, err)
	}
	return snap, nil
}

func (r SnapshotRecord) info() SnapshotInfo {
	return SnapshotInfo{
		ID:       r.ID,
		Label:    r.Label,
		TakenAt:  r.TakenAt,
		Users:    r.Users,
		Chats:    r.Chats,
		Messages: r.Messages,
	}
}

func infos(records []SnapshotRecord) []SnapshotInfo {
	out := make([]SnapshotInfo, 0, len(records))
	for _, r := range records {
		out = append(out, r.info())
	}
	return out
}
