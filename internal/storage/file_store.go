package storage

import (
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/relation"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileStore keeps every snapshot as a JSON file in one directory. It is used
// when no database is configured. Events are not published anywhere.
type FileStore struct {
	Dir string
}

var _ Storage = (*FileStore)(nil)

type snapshotFile struct {
	Info     SnapshotInfo    `json:"info"`
	Phones   []string        `json:"phones"`
	Snapshot models.Snapshot `json:"snapshot"`
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.Dir, id+".json")
}

// SaveSnapshot пише знімок у тимчасовий файл і потім перейменовує його.
func (f *FileStore) SaveSnapshot(_ context.Context, label string, snap models.Snapshot) (string, error) {
	record, err := newSnapshotRecord(label, snap)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(snapshotFile{Info: record.info(), Phones: record.Phones, Snapshot: snap}, "", "  ")
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(f.Dir, ".snapshot-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), f.path(record.ID)); err != nil {
		log.Printf("ERROR: Failed to save snapshot %s: %v", label, err)
		return "", err
	}
	return record.ID, nil
}

func (f *FileStore) read(id string) (snapshotFile, error) {
	b, err := os.ReadFile(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return snapshotFile{}, fmt.Errorf("snapshot %s: %w", id, relation.ErrNotFound)
	}
	if err != nil {
		return snapshotFile{}, err
	}
	var file snapshotFile
	if err := json.Unmarshal(b, &file); err != nil {
		return snapshotFile{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return file, nil
}

func (f *FileStore) LoadSnapshot(_ context.Context, id string) (models.Snapshot, error) {
	file, err := f.read(id)
	if err != nil {
		return models.Snapshot{}, err
	}
	return file.Snapshot, nil
}

func (f *FileStore) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	files, err := f.all()
	if err != nil {
		return models.Snapshot{}, err
	}
	if len(files) == 0 {
		return models.Snapshot{}, fmt.Errorf("latest snapshot: %w", relation.ErrNotFound)
	}
	return files[0].Snapshot, nil
}

func (f *FileStore) ListSnapshots(_ context.Context, limit int) ([]SnapshotInfo, error) {
	files, err := f.all()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	out := make([]SnapshotInfo, 0, len(files))
	for _, file := range files {
		out = append(out, file.Info)
	}
	return out, nil
}

func (f *FileStore) FindSnapshotsWithUser(_ context.Context, phone string) ([]SnapshotInfo, error) {
	files, err := f.all()
	if err != nil {
		return nil, err
	}
	var out []SnapshotInfo
	for _, file := range files {
		if slices.Contains(file.Phones, phone) {
			out = append(out, file.Info)
		}
	}
	return out, nil
}

func (f *FileStore) DeleteSnapshot(_ context.Context, id string) error {
	err := os.Remove(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("snapshot %s: %w", id, relation.ErrNotFound)
	}
	return err
}

func (f *FileStore) PublishEvent(context.Context, Event) error {
	return nil
}

// all reads every snapshot file, newest first. Unreadable files are skipped.
func (f *FileStore) all() ([]snapshotFile, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, err
	}
	var files []snapshotFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		file, err := f.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			log.Printf("ERROR: Skipping snapshot file %s: %v", name, err)
			continue
		}
		files = append(files, file)
	}
	slices.SortStableFunc(files, func(a, b snapshotFile) int {
		return b.Info.TakenAt.Compare(a.Info.TakenAt)
	})
	return files, nil
}
