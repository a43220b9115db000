package session_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"storybuilder/internal/events"
	"storybuilder/internal/kvstore"
	"storybuilder/internal/notifications"
	"storybuilder/internal/session"
	"storybuilder/internal/story"
	"storybuilder/internal/testsupport"
	"storybuilder/internal/theme"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	session  *session.Session
	store    *testsupport.FlakyStore
	clock    *testsupport.FakeClock
	recorder *testsupport.Recorder
	hub      *events.Hub
}

func newHarness(t *testing.T, mutate ...func(*session.Options)) *harness {
	t.Helper()
	h := &harness{
		store:    testsupport.NewFlakyStore(),
		clock:    testsupport.NewFakeClock(epoch),
		recorder: testsupport.NewRecorder(),
		hub:      events.NewHub(64),
	}
	h.open(t, mutate...)
	return h
}

func (h *harness) open(t *testing.T, mutate ...func(*session.Options)) {
	t.Helper()
	opts := session.Options{
		Store:         h.store,
		Notifier:      h.recorder,
		Hub:           h.hub,
		Clock:         h.clock,
		AutosaveDelay: 3 * time.Second,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	s, err := session.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	h.session = s
}

func contents(nodes []story.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Content
	}
	return out
}

func TestOpenRequiresStore(t *testing.T) {
	if _, err := session.Open(context.Background(), session.Options{}); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestAutosaveCoalescesBurst(t *testing.T) {
	h := newHarness(t)
	s := h.session

	node, _ := s.AddNode("A")
	for i := 0; i < 4; i++ {
		h.clock.Advance(2 * time.Second)
		if err := s.UpdateNode(node.ID, fmt.Sprintf("A%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if h.store.Sets() != 0 {
		t.Fatalf("saved %d times during burst", h.store.Sets())
	}

	h.clock.Advance(2999 * time.Millisecond)
	if h.store.Sets() != 0 {
		t.Fatal("autosave fired before delay after last edit")
	}
	h.clock.Advance(time.Millisecond)
	if h.store.Sets() != 1 {
		t.Fatalf("expected exactly one autosave, got %d", h.store.Sets())
	}
	if s.Dirty() || s.State() != session.StateClean || s.Status() != session.StatusSaved {
		t.Fatalf("after autosave: dirty=%v state=%s status=%q", s.Dirty(), s.State(), s.Status())
	}

	_, value := h.store.LastSet()
	doc, err := story.Decode(value)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(doc.Nodes, []string{"A3"}) {
		t.Fatalf("autosave stored %v, want latest content", doc.Nodes)
	}
}

func TestRoundTripThroughStore(t *testing.T) {
	h := newHarness(t)
	if _, err := h.session.AddNode("A"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.session.AddNode("B"); err != nil {
		t.Fatal(err)
	}
	if res := h.session.Save(context.Background(), true); res.Err != nil {
		t.Fatalf("Save: %v", res.Err)
	}

	key, value := h.store.LastSet()
	if key != session.DefaultStoryKey {
		t.Fatalf("saved under %q", key)
	}
	if !strings.Contains(value, `"lastModified":"2024-05-01T12:00:00.000Z"`) {
		t.Fatalf("stored value lacks timestamp: %s", value)
	}

	h.open(t)
	if got := contents(h.session.Nodes()); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("reloaded nodes = %v", got)
	}
	load := h.session.LastLoad()
	if !load.Found || load.Nodes != 2 || !load.LastModified.Equal(epoch) {
		t.Fatalf("LastLoad = %+v", load)
	}
}

func TestLoadEmptyStoreIsSilent(t *testing.T) {
	h := newHarness(t)
	if n := len(h.session.Nodes()); n != 0 {
		t.Fatalf("expected empty story, got %d nodes", n)
	}
	if msgs := h.recorder.Messages(); len(msgs) != 0 {
		t.Fatalf("expected no notifications, got %v", msgs)
	}
	if h.session.Status() != session.StatusSaved || h.session.Dirty() {
		t.Fatalf("fresh session should be clean, status %q", h.session.Status())
	}
}

func TestLoadBlankValueIsTreatedAsAbsent(t *testing.T) {
	h := newHarness(t)
	if err := h.store.Set(context.Background(), session.DefaultStoryKey, ""); err != nil {
		t.Fatal(err)
	}
	res := h.session.Load(context.Background())
	if res.Err != nil || res.Found {
		t.Fatalf("Load = %+v", res)
	}
	if len(h.recorder.Messages()) != 0 {
		t.Fatal("blank value must not notify")
	}
}

func TestLoadMalformedNotifiesOnce(t *testing.T) {
	for _, value := range []string{
		"{not json", `{"nodes":[1,2]}`, `null`, `"text"`,
		`{}`, `{"nodes":null}`, `{"nodes":["A"]}}`, `{"nodes":["A"]}]`,
	} {
		t.Run(value, func(t *testing.T) {
			h := newHarness(t)
			if _, err := h.session.AddNode("stale"); err != nil {
				t.Fatal(err)
			}
			if err := h.store.Set(context.Background(), session.DefaultStoryKey, value); err != nil {
				t.Fatal(err)
			}

			res := h.session.Load(context.Background())
			if !errors.Is(res.Err, story.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", res.Err)
			}
			if n := len(h.session.Nodes()); n != 0 {
				t.Fatalf("expected empty story after malformed load, got %d nodes", n)
			}
			if msgs := h.recorder.Messages(); !reflect.DeepEqual(msgs, []string{session.MessageLoadFailed}) {
				t.Fatalf("notifications = %v", msgs)
			}
		})
	}
}

func TestLoadReadFailureNotifiesOnce(t *testing.T) {
	h := newHarness(t)
	h.store.FailGets(true)
	res := h.session.Load(context.Background())
	if !errors.Is(res.Err, kvstore.ErrStorage) {
		t.Fatalf("expected storage error, got %v", res.Err)
	}
	if session.KindOf(res.Err) != session.KindStorage {
		t.Fatalf("kind = %s", session.KindOf(res.Err))
	}
	if msgs := h.recorder.Messages(); len(msgs) != 1 || msgs[0] != session.MessageLoadFailed {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestSaveFailureKeepsDirtyAndRetries(t *testing.T) {
	h := newHarness(t)
	s := h.session
	if _, err := s.AddNode("draft"); err != nil {
		t.Fatal(err)
	}

	h.store.FailSets(true)
	res := s.Save(context.Background(), true)
	if res.Err == nil || res.Saved {
		t.Fatalf("expected failed save, got %+v", res)
	}
	if !s.Dirty() || s.State() != session.StateDirty || s.Status() != session.StatusFailed {
		t.Fatalf("after failure: dirty=%v state=%s status=%q", s.Dirty(), s.State(), s.Status())
	}
	if msgs := h.recorder.Messages(); !reflect.DeepEqual(msgs, []string{session.MessageSaveFailed}) {
		t.Fatalf("notifications = %v", msgs)
	}

	h.store.FailSets(false)
	h.recorder.Reset()
	res = s.Save(context.Background(), true)
	if res.Err != nil || !res.Saved {
		t.Fatalf("retry failed: %+v", res)
	}
	if s.Dirty() || s.State() != session.StateClean {
		t.Fatal("retry must clear dirty flag")
	}
	if msgs := h.recorder.Messages(); !reflect.DeepEqual(msgs, []string{session.MessageSaved}) {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestQuotaExceededKeepsDirty(t *testing.T) {
	h := newHarness(t, func(o *session.Options) {
		o.Store = kvstore.NewMemory(kvstore.Limits{MaxValueBytes: 64})
	})
	if _, err := h.session.AddNode(strings.Repeat("x", 100)); err != nil {
		t.Fatal(err)
	}
	res := h.session.Save(context.Background(), false)
	if !errors.Is(res.Err, kvstore.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", res.Err)
	}
	if !h.session.Dirty() {
		t.Fatal("quota failure must leave session dirty")
	}
}

func TestExplicitSaveNotifiesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	if _, err := h.session.AddNode("x"); err != nil {
		t.Fatal(err)
	}
	h.session.Save(context.Background(), true)
	if msgs := h.recorder.Messages(); !reflect.DeepEqual(msgs, []string{session.MessageSaved}) {
		t.Fatalf("notifications = %v", msgs)
	}

	// A clean session still saves and still notifies when asked explicitly.
	h.recorder.Reset()
	res := h.session.Save(context.Background(), true)
	if !res.Saved || len(h.recorder.Messages()) != 1 {
		t.Fatalf("clean explicit save: %+v, %v", res, h.recorder.Messages())
	}
}

func TestAutosaveSuccessOnlyUpdatesStatus(t *testing.T) {
	h := newHarness(t)
	if _, err := h.session.AddNode("x"); err != nil {
		t.Fatal(err)
	}
	_, before := h.hub.Tail(0)

	h.clock.Advance(3 * time.Second)
	if h.store.Sets() != 1 {
		t.Fatal("autosave did not run")
	}
	if msgs := h.recorder.Messages(); len(msgs) != 0 {
		t.Fatalf("autosave success must not notify, got %v", msgs)
	}

	evts, _, err := h.hub.Fetch(context.Background(), before, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	last := evts[len(evts)-1]
	if last.Type != events.TypeStatus || last.Status != session.StatusSaved || last.State != string(session.StateClean) {
		t.Fatalf("last event = %+v", last)
	}
}

func TestAutosaveFailureNotifies(t *testing.T) {
	h := newHarness(t)
	if _, err := h.session.AddNode("x"); err != nil {
		t.Fatal(err)
	}
	h.store.FailSets(true)
	h.clock.Advance(3 * time.Second)
	if msgs := h.recorder.Messages(); !reflect.DeepEqual(msgs, []string{session.MessageSaveFailed}) {
		t.Fatalf("notifications = %v", msgs)
	}
	if !h.session.Dirty() {
		t.Fatal("failed autosave must keep dirty")
	}
}

func TestExplicitSaveCancelsPendingAutosave(t *testing.T) {
	h := newHarness(t)
	if _, err := h.session.AddNode("x"); err != nil {
		t.Fatal(err)
	}
	if !h.session.AutosavePending() {
		t.Fatal("edit must arm autosave")
	}
	h.session.Save(context.Background(), true)
	if h.session.AutosavePending() {
		t.Fatal("successful save must cancel pending autosave")
	}
	h.clock.Advance(time.Minute)
	if h.store.Sets() != 1 {
		t.Fatalf("expected only the explicit save, got %d writes", h.store.Sets())
	}
}

func TestEveryMutationMarksDirtyAndArmsAutosave(t *testing.T) {
	mutations := map[string]func(s *session.Session, id string) error{
		"add":       func(s *session.Session, _ string) error { _, err := s.AddNode("new"); return err },
		"new":       func(s *session.Session, _ string) error { _, err := s.NewNode(); return err },
		"insert":    func(s *session.Session, _ string) error { _, err := s.InsertNode(0, "head"); return err },
		"update":    func(s *session.Session, id string) error { return s.UpdateNode(id, "changed") },
		"duplicate": func(s *session.Session, id string) error { _, err := s.DuplicateNode(id); return err },
		"remove":    func(s *session.Session, id string) error { return s.RemoveNode(id, session.Always) },
		"move":      func(s *session.Session, id string) error { return s.MoveNode(id, 1) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			first, _ := h.session.AddNode("one")
			_, _ = h.session.AddNode("two")
			h.session.Save(context.Background(), false)
			if h.session.Dirty() || h.session.AutosavePending() {
				t.Fatal("setup should leave session clean")
			}

			if err := mutate(h.session, first.ID); err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if !h.session.Dirty() || h.session.State() != session.StateDirty || h.session.Status() != session.StatusUnsaved {
				t.Fatalf("%s did not mark dirty", name)
			}
			if !h.session.AutosavePending() {
				t.Fatalf("%s did not arm autosave", name)
			}
		})
	}
}

func TestAutosaveDisabled(t *testing.T) {
	h := newHarness(t, func(o *session.Options) { o.AutosaveDisabled = true })
	if _, err := h.session.AddNode("x"); err != nil {
		t.Fatal(err)
	}
	if !h.session.Dirty() || h.session.AutosavePending() {
		t.Fatal("disabled autosave must track dirty without scheduling")
	}
	h.clock.Advance(time.Minute)
	if h.store.Sets() != 0 {
		t.Fatal("disabled autosave wrote to the store")
	}
}

func TestDuplicateInsertsAfterSource(t *testing.T) {
	h := newHarness(t)
	a, _ := h.session.AddNode("A")
	_, _ = h.session.AddNode("B")

	dup, err := h.session.DuplicateNode(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID == a.ID {
		t.Fatal("duplicate must get a fresh ID")
	}
	if got := contents(h.session.Nodes()); !reflect.DeepEqual(got, []string{"A", "A", "B"}) {
		t.Fatalf("nodes = %v", got)
	}
	if h.session.Nodes()[1].ID != dup.ID {
		t.Fatal("duplicate must sit directly after the source")
	}
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	node, _ := h.session.AddNode("keep me")
	h.session.Save(context.Background(), false)

	var asked []string
	decline := session.ConfirmFunc(func(prompt string) bool {
		asked = append(asked, prompt)
		return false
	})

	for _, confirm := range []session.Confirmer{nil, decline} {
		err := h.session.RemoveNode(node.ID, confirm)
		if !errors.Is(err, session.ErrDeleteNotConfirmed) {
			t.Fatalf("expected ErrDeleteNotConfirmed, got %v", err)
		}
		if session.KindOf(err) != session.KindConflict {
			t.Fatalf("kind = %s", session.KindOf(err))
		}
	}
	if len(asked) != 1 || asked[0] != session.DeletePrompt {
		t.Fatalf("prompts = %v", asked)
	}
	if len(h.session.Nodes()) != 1 || h.session.Dirty() {
		t.Fatal("declined delete must leave story untouched")
	}

	if err := h.session.RemoveNode("missing", session.Always); !errors.Is(err, session.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
	if err := h.session.RemoveNode(node.ID, session.Always); err != nil {
		t.Fatal(err)
	}
	if len(h.session.Nodes()) != 0 {
		t.Fatal("confirmed delete must remove node")
	}
}

func TestNewNodeFocuses(t *testing.T) {
	h := newHarness(t)
	node, err := h.session.NewNode()
	if err != nil {
		t.Fatal(err)
	}
	if node.Content != "" {
		t.Fatalf("new node content = %q, want empty", node.Content)
	}
	if h.session.Focused() != node.ID {
		t.Fatal("new node must be focused")
	}
	if err := h.session.RemoveNode(node.ID, session.Always); err != nil {
		t.Fatal(err)
	}
	if h.session.Focused() != "" {
		t.Fatal("removing the focused node must clear focus")
	}
	if err := h.session.Focus("missing"); !errors.Is(err, session.ErrNodeNotFound) {
		t.Fatalf("Focus(missing) = %v", err)
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	_, _ = h.session.AddNode("Once upon a time")
	_, _ = h.session.AddNode("there was a <b>fox</b>.<br>The end")

	out, err := h.session.Export(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Filename != "story_2024-05-01.txt" {
		t.Fatalf("filename = %q", out.Filename)
	}
	want := "Once upon a time\n\nthere was a fox.\nThe end"
	if out.Content != want {
		t.Fatalf("content = %q, want %q", out.Content, want)
	}
	if msgs := h.recorder.Messages(); !reflect.DeepEqual(msgs, []string{session.MessageExported}) {
		t.Fatalf("notifications = %v", msgs)
	}

	dir := t.TempDir()
	h.recorder.Reset()
	path, _, err := h.session.ExportTo(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "story_2024-05-01.txt") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != want {
		t.Fatalf("file = %q, %v", data, err)
	}
	if len(h.recorder.Messages()) != 1 {
		t.Fatalf("ExportTo notifications = %v", h.recorder.Messages())
	}
}

func TestPreviewAndPlainText(t *testing.T) {
	h := newHarness(t)
	if !strings.Contains(h.session.Preview(), story.EmptyPreviewMessage) {
		t.Fatal("empty story preview must show empty state")
	}
	_, _ = h.session.AddNode("<i>A</i>")
	_, _ = h.session.AddNode("B")
	if got := h.session.Preview(); got != "<i>A</i><br><br>B" {
		t.Fatalf("Preview = %q", got)
	}
	if got := h.session.PlainText(); got != "A\n\nB" {
		t.Fatalf("PlainText = %q", got)
	}
}

func TestThemeOperationsAfterClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.session.Close(ctx); err != nil {
		t.Fatal(err)
	}
	sets := h.store.Sets()

	if name, err := h.session.Theme(ctx); !errors.Is(err, session.ErrClosed) || name != theme.Light {
		t.Fatalf("Theme after close = %q, %v", name, err)
	}
	if err := h.session.SetTheme(ctx, theme.Dark); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("SetTheme after close = %v", err)
	}
	if _, err := h.session.ToggleTheme(ctx); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("ToggleTheme after close = %v", err)
	}
	if h.store.Sets() != sets {
		t.Fatal("closed session wrote to the store")
	}
}

func TestThemeToggleAndPersist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	current, err := h.session.Theme(ctx)
	if err != nil || current != theme.Light {
		t.Fatalf("default theme = %q, %v", current, err)
	}
	next, err := h.session.ToggleTheme(ctx)
	if err != nil || next != theme.Dark {
		t.Fatalf("toggle = %q, %v", next, err)
	}
	stored, ok, _ := h.store.Get(ctx, session.DefaultThemeKey)
	if !ok || stored != "dark" {
		t.Fatalf("stored theme = %q", stored)
	}
	if next, _ = h.session.ToggleTheme(ctx); next != theme.Light {
		t.Fatalf("second toggle = %q", next)
	}

	if err := h.store.Set(ctx, session.DefaultThemeKey, "sepia"); err != nil {
		t.Fatal(err)
	}
	if current, _ = h.session.Theme(ctx); current != theme.Light {
		t.Fatalf("unknown stored theme read as %q", current)
	}

	if err := h.session.SetTheme(ctx, theme.Name("neon")); session.KindOf(err) != session.KindValidation {
		t.Fatalf("SetTheme(neon) = %v", err)
	}
	if h.session.Dirty() {
		t.Fatal("theme changes are not story edits")
	}
}

func TestConfirmDiscard(t *testing.T) {
	h := newHarness(t)
	deny := session.ConfirmFunc(func(string) bool { return false })
	if !h.session.ConfirmDiscard(deny) {
		t.Fatal("clean session may always be left")
	}
	_, _ = h.session.AddNode("x")
	if h.session.ConfirmDiscard(deny) || h.session.ConfirmDiscard(nil) {
		t.Fatal("dirty session needs approval to leave")
	}
	if !h.session.ConfirmDiscard(session.Always) {
		t.Fatal("approved discard must pass")
	}
}

func TestCloseFlushesWhenConfigured(t *testing.T) {
	h := newHarness(t, func(o *session.Options) { o.FlushOnClose = true })
	_, _ = h.session.AddNode("unsaved")
	if err := h.session.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.store.Sets() != 1 {
		t.Fatalf("expected flush on close, got %d writes", h.store.Sets())
	}
	if len(h.recorder.Messages()) != 0 {
		t.Fatal("flush is an autosave and must not notify on success")
	}

	if _, err := h.session.AddNode("late"); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("AddNode after close = %v", err)
	}
	if res := h.session.Save(context.Background(), true); !errors.Is(res.Err, session.ErrClosed) {
		t.Fatalf("Save after close = %v", res.Err)
	}
	if err := h.session.Close(context.Background()); err != nil {
		t.Fatal("Close must be idempotent")
	}
}

func TestCloseWithoutFlushDropsEdits(t *testing.T) {
	h := newHarness(t)
	_, _ = h.session.AddNode("unsaved")
	if err := h.session.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Minute)
	if h.store.Sets() != 0 {
		t.Fatal("closed session must not autosave")
	}
}

func TestNotificationFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness(t)
	h.recorder.FailWith(errors.New("ntfy down"))
	_, _ = h.session.AddNode("x")
	res := h.session.Save(context.Background(), true)
	if res.Err != nil || !res.Saved || h.session.Dirty() {
		t.Fatalf("save outcome changed by notifier failure: %+v", res)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want session.Kind
	}{
		{fmt.Errorf("x: %w", story.ErrNodeNotFound), session.KindNotFound},
		{story.ErrIndexOutOfRange, session.KindValidation},
		{session.ErrDeleteNotConfirmed, session.KindConflict},
		{kvstore.ErrQuotaExceeded, session.KindStorage},
		{errors.New("other"), session.KindInternal},
		{&session.Error{Kind: session.KindValidation, Err: errors.New("bad")}, session.KindValidation},
	}
	for _, tt := range tests {
		if got := session.KindOf(tt.err); got != tt.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

var _ notifications.Service = (*testsupport.Recorder)(nil)
