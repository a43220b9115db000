package daemon_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storybuilder/internal/config"
	"storybuilder/internal/daemon"
	"storybuilder/internal/kvstore"
	"storybuilder/internal/logging"
	"storybuilder/internal/testsupport"
	"storybuilder/internal/workspace"
)

var testStart = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(context.Background(), cfg, logging.NewNop(), daemon.Options{
		Clock: testsupport.NewFakeClock(testStart),
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if d.Addr() == "" {
		t.Fatal("expected listening address after start")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Backend != config.BackendMemory {
		t.Fatalf("backend = %q", status.Backend)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q, want %q", status.LockFilePath, cfg.LockPath())
	}
	if status.Story.Status != "All changes saved" {
		t.Fatalf("story status = %q", status.Story.Status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}

	// The lock is released, so a fresh daemon can take over.
	newDaemon(t, cfg)
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	newDaemon(t, cfg)

	_, err := daemon.New(context.Background(), cfg, logging.NewNop(), daemon.Options{})
	if !errors.Is(err, workspace.ErrLocked) {
		t.Fatalf("second daemon error = %v, want ErrLocked", err)
	}
}

func TestDaemonCloseSavesUnsavedEdits(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendFile))
	d := newDaemon(t, cfg)

	sess := d.Workspace().Session()
	if _, err := sess.AddNode("<p>kept on shutdown</p>"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if !sess.Dirty() {
		t.Fatal("expected dirty session after edit")
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err := kvstore.OpenFile(cfg.DocumentFilePath(), kvstore.Limits{})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer store.Close()
	value, ok, err := store.Get(context.Background(), cfg.Storage.StoryKey)
	if err != nil || !ok {
		t.Fatalf("Get story = %v, %v", ok, err)
	}
	if !strings.Contains(value, "kept on shutdown") {
		t.Fatalf("stored document %q missing edit", value)
	}
}
