package workspace_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"storybuilder/internal/config"
	"storybuilder/internal/session"
	"storybuilder/internal/story"
	"storybuilder/internal/testsupport"
	"storybuilder/internal/workspace"
)

func open(t *testing.T, cfg *config.Config, opts workspace.Options) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Open(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("workspace.Open: %v", err)
	}
	return ws
}

func contents(nodes []story.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Content)
	}
	return out
}

func TestSecondWorkspaceIsLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := open(t, cfg, workspace.Options{})

	if _, err := workspace.Open(context.Background(), cfg, workspace.Options{}); !errors.Is(err, workspace.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := open(t, cfg, workspace.Options{})
	_ = second.Close(context.Background())
}

func TestPersistentBackendsSurviveReopen(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))
			ctx := context.Background()

			ws := open(t, cfg, workspace.Options{})
			sess := ws.Session()
			_, _ = sess.AddNode("A")
			_, _ = sess.AddNode("B")
			if res := sess.Save(ctx, true); res.Err != nil {
				t.Fatalf("Save: %v", res.Err)
			}
			if _, err := sess.ToggleTheme(ctx); err != nil {
				t.Fatal(err)
			}
			if err := ws.Close(ctx); err != nil {
				t.Fatal(err)
			}

			reopened := open(t, cfg, workspace.Options{})
			defer reopened.Close(ctx)
			if got := contents(reopened.Session().Nodes()); !reflect.DeepEqual(got, []string{"A", "B"}) {
				t.Fatalf("nodes after reopen = %v", got)
			}
			if name, _ := reopened.Session().Theme(ctx); name != "dark" {
				t.Fatalf("theme after reopen = %q", name)
			}
		})
	}
}

func TestFlushOnClose(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendSQLite))
	ctx := context.Background()

	ws := open(t, cfg, workspace.Options{FlushOnClose: true})
	_, _ = ws.Session().AddNode("unsaved")
	if err := ws.Close(ctx); err != nil {
		t.Fatal(err)
	}

	reopened := open(t, cfg, workspace.Options{})
	defer reopened.Close(ctx)
	if got := contents(reopened.Session().Nodes()); !reflect.DeepEqual(got, []string{"unsaved"}) {
		t.Fatalf("flushed nodes = %v", got)
	}
}

func TestNotificationsReachConsoleHubAndExtraNotifier(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.Console = true
	var console bytes.Buffer
	recorder := testsupport.NewRecorder()

	ws := open(t, cfg, workspace.Options{Console: &console, Notifier: recorder})
	defer ws.Close(context.Background())

	ws.Session().Save(context.Background(), true)

	if !strings.Contains(console.String(), session.MessageSaved) {
		t.Fatalf("console output = %q", console.String())
	}
	if msgs := recorder.Messages(); !reflect.DeepEqual(msgs, []string{session.MessageSaved}) {
		t.Fatalf("recorder = %v", msgs)
	}
	evts, _ := ws.Hub().Tail(0)
	var found bool
	for _, evt := range evts {
		if evt.Message == session.MessageSaved {
			found = true
		}
	}
	if !found {
		t.Fatal("hub did not receive the notification")
	}
}

func TestEphemeralIgnoresBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendSQLite))
	ws := open(t, cfg, workspace.Options{Ephemeral: true})
	defer ws.Close(context.Background())
	if _, err := ws.Session().AddNode("x"); err != nil {
		t.Fatal(err)
	}
	if res := ws.Session().Save(context.Background(), false); res.Err != nil {
		t.Fatal(res.Err)
	}
}
