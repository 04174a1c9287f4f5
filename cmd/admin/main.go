package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"chatgraph/backend/internal/chathub"
	"chatgraph/backend/internal/config"
	"chatgraph/backend/internal/localization"
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/storage"
)

type admin struct {
	st     storage.Storage
	svc    *storage.Service
	loc    *localization.Localizer
	lang   string
	limits config.Limits
}

func main() {
	cfg := config.Load()

	loc, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		log.Printf("INFO: using built-in locales: %v", err)
		loc = localization.Builtin()
	}

	if len(os.Args) < 2 {
		fmt.Println(loc.GetString(cfg.Language, "cli.usage"))
		os.Exit(1)
	}

	limits, err := cfg.Limits()
	if err != nil {
		log.Fatalf("failed to load limits: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, svc, err := storage.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up storage: %v", err)
	}
	a := &admin{st: st, svc: svc, loc: loc, lang: cfg.Language, limits: limits}

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "list":
		limit := 20
		if len(args) > 0 {
			if limit, err = strconv.Atoi(args[0]); err != nil {
				a.usage()
			}
		}
		err = a.list(ctx, limit)
	case "inspect":
		a.need(args, 1)
		err = a.inspect(ctx, args[0])
	case "user":
		a.need(args, 1)
		err = a.user(ctx, args[0])
	case "export":
		a.need(args, 2)
		err = a.export(ctx, args[0], args[1])
	case "import":
		a.need(args, 1)
		label := "import"
		if len(args) > 1 {
			label = args[1]
		}
		err = a.importFile(ctx, args[0], label)
	case "verify":
		a.need(args, 1)
		err = a.verify(args[0])
	case "delete":
		a.need(args, 1)
		err = a.delete(ctx, args[0])
	case "watch":
		err = a.watch(ctx)
	default:
		fmt.Println(loc.Format(a.lang, "cli.unknown_command", command))
		a.usage()
	}

	if err != nil {
		fmt.Println(loc.Error(a.lang, err))
		os.Exit(1)
	}
}

func (a *admin) usage() {
	fmt.Println(a.loc.GetString(a.lang, "cli.usage"))
	os.Exit(1)
}

func (a *admin) need(args []string, n int) {
	if len(args) < n {
		a.usage()
	}
}

func (a *admin) printInfos(infos []storage.SnapshotInfo) {
	if len(infos) == 0 {
		fmt.Println(a.loc.GetString(a.lang, "cli.list.empty"))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, a.loc.GetString(a.lang, "cli.list.header"))
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			info.ID, info.TakenAt.Format(time.RFC3339), info.Label, info.Users, info.Chats, info.Messages)
	}
	w.Flush()
}

func (a *admin) list(ctx context.Context, limit int) error {
	infos, err := a.st.ListSnapshots(ctx, limit)
	if err != nil {
		return err
	}
	a.printInfos(infos)
	return nil
}

func (a *admin) inspect(ctx context.Context, id string) error {
	snap, err := a.st.LoadSnapshot(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(a.loc.Format(a.lang, "cli.inspect.summary",
		snap.TakenAt.Format(time.RFC3339), len(snap.Users), len(snap.Chats), len(snap.Folders),
		len(snap.Packs), len(snap.Stickers), len(snap.Messages), snap.Drafts()))
	return nil
}

func (a *admin) user(ctx context.Context, phone string) error {
	infos, err := a.st.FindSnapshotsWithUser(ctx, phone)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println(a.loc.Format(a.lang, "cli.user.none", phone))
		return nil
	}
	a.printInfos(infos)
	return nil
}

func (a *admin) export(ctx context.Context, id, file string) error {
	snap, err := a.st.LoadSnapshot(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return err
	}
	fmt.Println(a.loc.Format(a.lang, "cli.export.done", id, file))
	return nil
}

// readChecked reads a snapshot file and restores it into a scratch store with
// the configured limits, so only a consistent object graph gets past it.
func readChecked(file string, limits config.Limits) (models.Snapshot, *models.Store, error) {
	var snap models.Snapshot
	data, err := os.ReadFile(file)
	if err != nil {
		return snap, nil, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, nil, fmt.Errorf("decode %s: %w", file, err)
	}
	store := models.NewStore(models.WithLimits(limits))
	if err := store.Restore(snap); err != nil {
		return snap, nil, err
	}
	return snap, store, nil
}

func (a *admin) importFile(ctx context.Context, file, label string) error {
	snap, _, err := readChecked(file, a.limits)
	if err != nil {
		return err
	}
	id, err := a.st.SaveSnapshot(ctx, label, snap)
	if err != nil {
		return err
	}
	fmt.Println(a.loc.Format(a.lang, "cli.import.done", file, id))
	return nil
}

func (a *admin) verify(file string) error {
	_, store, err := readChecked(file, a.limits)
	if err != nil {
		return err
	}
	fmt.Println(a.loc.Format(a.lang, "cli.verify.ok",
		file, store.Users().Len(), store.Chats().Len(), store.MessageCount()))
	return nil
}

func (a *admin) delete(ctx context.Context, id string) error {
	if err := a.st.DeleteSnapshot(ctx, id); err != nil {
		return err
	}
	fmt.Println(a.loc.Format(a.lang, "cli.delete.done", id))
	return nil
}

func (a *admin) watch(ctx context.Context) error {
	if a.svc == nil || a.svc.Redis == nil {
		fmt.Println(a.loc.GetString(a.lang, "cli.watch.unavailable"))
		return nil
	}
	fmt.Println(a.loc.Format(a.lang, "cli.watch.start", storage.EventsChannel))
	err := chathub.WatchEvents(ctx, a.svc.SubscribeEvents(ctx), func(e storage.Event) {
		fmt.Println(a.loc.Format(a.lang, "cli.watch.event", e.At.Format(time.RFC3339), e.Name))
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
