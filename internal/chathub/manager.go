package chathub

import (
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/relation"
	"chatgraph/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrStopped is returned by Submit once the hub no longer runs.
var ErrStopped = errors.New("chathub: stopped")

// snapshotTimeout bounds the final snapshot taken while shutting down.
const snapshotTimeout = 10 * time.Second

// command — одна операція над Store, яку виконує цикл Run.
type command struct {
	name     string
	fn       func(*models.Store) error
	readOnly bool
	done     chan error
}

// ManagerService is the single actor that owns a models.Store: commands are
// queued through Submit and executed one by one by Run, so the store never
// sees two of them at once.
type ManagerService struct {
	Store    *models.Store
	Storage  storage.Storage
	Interval time.Duration

	commandCh chan command
	quitCh    chan struct{}
	doneCh    chan struct{}
	quitOnce  sync.Once
}

// NewManagerService (interval <= 0 вимикає періодичні знімки)
func NewManagerService(store *models.Store, s storage.Storage, interval time.Duration) *ManagerService {
	return &ManagerService{
		Store:     store,
		Storage:   s,
		Interval:  interval,
		commandCh: make(chan command),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Submit queues fn and waits for its result. A successful command publishes
// an Event named after it.
func (m *ManagerService) Submit(ctx context.Context, name string, fn func(*models.Store) error) error {
	return m.enqueue(ctx, command{name: name, fn: fn, done: make(chan error, 1)})
}

// Query is Submit for fn that only reads the store: no event, no snapshot.
func (m *ManagerService) Query(ctx context.Context, fn func(*models.Store) error) error {
	return m.enqueue(ctx, command{name: "query", fn: fn, readOnly: true, done: make(chan error, 1)})
}

func (m *ManagerService) enqueue(ctx context.Context, cmd command) error {
	select {
	case m.commandCh <- cmd:
	case <-m.doneCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes queued commands until ctx is cancelled or Shutdown is called,
// then saves a last snapshot.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.doneCh)
	log.Println("INFO: Chat hub started.")

	var tick <-chan time.Time
	if m.Interval > 0 {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	dirty := false
	for {
		select {
		case cmd := <-m.commandCh:
			if err := m.execute(ctx, cmd); err == nil && !cmd.readOnly {
				dirty = true
			}

		case <-tick:
			if !dirty {
				continue
			}
			if _, err := m.saveSnapshot(ctx, "periodic"); err == nil {
				dirty = false
			}

		case <-m.quitCh:
			m.finalSnapshot()
			return

		case <-ctx.Done():
			m.finalSnapshot()
			return
		}
	}
}

// Shutdown stops Run and waits until the final snapshot is written.
func (m *ManagerService) Shutdown(ctx context.Context) error {
	m.quitOnce.Do(func() { close(m.quitCh) })
	select {
	case <-m.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot saves the current state under label, in turn with other commands.
func (m *ManagerService) Snapshot(ctx context.Context, label string) (string, error) {
	var id string
	err := m.Query(ctx, func(*models.Store) error {
		var err error
		id, err = m.saveSnapshot(ctx, label)
		return err
	})
	return id, err
}

// RestoreLatest завантажує останній знімок у Store. Викликати до Run.
// Якщо знімків ще немає, Store лишається порожнім.
func (m *ManagerService) RestoreLatest(ctx context.Context) error {
	snap, err := m.Storage.LatestSnapshot(ctx)
	if errors.Is(err, relation.ErrNotFound) {
		log.Println("INFO: No snapshot found, starting with an empty store.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest snapshot: %w", err)
	}
	if err := m.Store.Restore(snap); err != nil {
		return err
	}
	log.Printf("INFO: Restored snapshot from %s: %d users, %d chats, %d messages.",
		snap.TakenAt.Format(time.RFC3339), len(snap.Users), len(snap.Chats), len(snap.Messages))
	return nil
}

// execute runs one command. A panicking command is reported as an error and
// does not take the hub down.
func (m *ManagerService) execute(ctx context.Context, cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.name, r)
		}
		if err != nil {
			log.Printf("ERROR: Command %s failed (%s): %v", cmd.name, relation.Kind(err), err)
		}
		cmd.done <- err
	}()

	if err := cmd.fn(m.Store); err != nil {
		return err
	}
	if cmd.readOnly {
		return nil
	}

	event := storage.Event{Name: cmd.name, At: m.Store.Now()}
	if err := m.Storage.PublishEvent(ctx, event); err != nil {
		// Команда вже виконана, тому помилка публікації лише логується.
		log.Printf("ERROR: Failed to publish event %s: %v", cmd.name, err)
	}
	return nil
}

func (m *ManagerService) saveSnapshot(ctx context.Context, label string) (string, error) {
	id, err := m.Storage.SaveSnapshot(ctx, label, m.Store.Snapshot())
	if err != nil {
		log.Printf("ERROR: Failed to save %s snapshot: %v", label, err)
		return "", err
	}
	log.Printf("INFO: Saved %s snapshot %s.", label, id)
	return id, nil
}

func (m *ManagerService) finalSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	m.saveSnapshot(ctx, "shutdown")
	log.Println("INFO: Chat hub stopped.")
}
