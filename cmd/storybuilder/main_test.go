package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storybuilder/internal/api"
	"storybuilder/internal/session"
)

func listNodes(t *testing.T, env *cliTestEnv) []api.Node {
	t.Helper()
	out := mustRunCLI(t, env, "--json", "node", "list")
	var nodes []api.Node
	if err := json.Unmarshal([]byte(out), &nodes); err != nil {
		t.Fatalf("decode node list %q: %v", out, err)
	}
	return nodes
}

func TestNodeCommandsPersistAcrossInvocations(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "node", "list")
	requireContains(t, out, "Story is empty")

	mustRunCLI(t, env, "node", "add", "<b>Once</b>", "upon")
	mustRunCLI(t, env, "node", "add", "a time")
	out = mustRunCLI(t, env, "node", "add", "--at", "1", "Prologue")
	requireContains(t, out, "Added node 1: Prologue")

	nodes := listNodes(t, env)
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if nodes[0].Content != "Prologue" || nodes[1].Content != "<b>Once</b> upon" || nodes[1].Text != "Once upon" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}

	mustRunCLI(t, env, "node", "edit", "3", "a <i>time</i>")
	mustRunCLI(t, env, "node", "dup", "2")
	mustRunCLI(t, env, "node", "move", "1", "4")

	nodes = listNodes(t, env)
	got := make([]string, len(nodes))
	for i, n := range nodes {
		got[i] = n.Text
	}
	want := []string{"Once upon", "Once upon", "a time", "Prologue"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("nodes = %q, want %q", got, want)
	}

	out = mustRunCLI(t, env, "node", "list")
	requireContains(t, out, "Prologue")
}

func TestNodeAddReadsStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "<p>from stdin</p>\n", "node", "add"); err != nil {
		t.Fatalf("node add from stdin: %v", err)
	}
	nodes := listNodes(t, env)
	if len(nodes) != 1 || nodes[0].Content != "<p>from stdin</p>" {
		t.Fatalf("nodes = %+v", nodes)
	}
}

func TestNodeRemoveAsksForConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "node", "add", "keep me")

	_, stderr, err := runCLI(t, env, "n\n", "node", "rm", "1")
	if err == nil {
		t.Fatal("expected declined removal to fail")
	}
	requireContains(t, stderr, session.DeletePrompt)
	if len(listNodes(t, env)) != 1 {
		t.Fatal("declined removal deleted the node")
	}

	if _, _, err := runCLI(t, env, "y\n", "node", "rm", "1"); err != nil {
		t.Fatalf("confirmed removal: %v", err)
	}
	if len(listNodes(t, env)) != 0 {
		t.Fatal("expected node to be removed")
	}

	mustRunCLI(t, env, "node", "add", "gone")
	mustRunCLI(t, env, "node", "rm", "--yes", "1")
	if len(listNodes(t, env)) != 0 {
		t.Fatal("expected --yes removal")
	}

	if _, _, err := runCLI(t, env, "", "node", "rm", "--yes", "7"); err == nil {
		t.Fatal("expected error for unknown position")
	}
}

func TestPreviewAndExport(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "preview")
	requireContains(t, out, "Your story preview will appear here")

	mustRunCLI(t, env, "node", "add", "<p>Hello</p>")
	mustRunCLI(t, env, "node", "add", "World")

	out = mustRunCLI(t, env, "preview")
	requireContains(t, out, "<p>Hello</p><br><br>World")

	out = mustRunCLI(t, env, "preview", "--text")
	requireContains(t, out, "Hello\n\nWorld")

	out = mustRunCLI(t, env, "export", "--stdout")
	if out != "Hello\n\nWorld\n" {
		t.Fatalf("export --stdout = %q", out)
	}

	out = mustRunCLI(t, env, "--json", "export")
	var res exportResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	wantName := "story_" + time.Now().UTC().Format("2006-01-02") + ".txt"
	if res.Filename != wantName || res.Nodes != 2 {
		t.Fatalf("export result = %+v", res)
	}
	if filepath.Dir(res.Path) != env.exportDir {
		t.Fatalf("export path = %s, want dir %s", res.Path, env.exportDir)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "Hello\n\nWorld" {
		t.Fatalf("export file = %q", data)
	}
}

func TestThemeCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "--json", "theme")
	requireContains(t, out, `"theme": "light"`)

	mustRunCLI(t, env, "theme", "set", "dark")
	out = mustRunCLI(t, env, "--json", "theme", "get")
	requireContains(t, out, `"theme": "dark"`)

	out = mustRunCLI(t, env, "--json", "theme", "toggle")
	requireContains(t, out, `"theme": "light"`)

	if _, _, err := runCLI(t, env, "", "theme", "set", "sepia"); err == nil {
		t.Fatal("expected invalid theme to fail")
	}
}

func TestSaveAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "node", "add", "saved text")

	out := mustRunCLI(t, env, "--json", "save")
	var save api.SaveResponse
	if err := json.Unmarshal([]byte(out), &save); err != nil {
		t.Fatalf("decode save: %v", err)
	}
	if !save.Saved || save.Nodes != 1 || save.Status != session.StatusSaved {
		t.Fatalf("save = %+v", save)
	}

	out = mustRunCLI(t, env, "--json", "status")
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Running {
		t.Fatal("no daemon should be running")
	}
	if status.Backend != "file" || len(status.Story.Nodes) != 1 {
		t.Fatalf("status = %+v", status)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected preflight checks")
	}
	for _, check := range status.Checks {
		if !check.Passed {
			t.Fatalf("check %s failed: %s", check.Name, check.Detail)
		}
	}

	out = mustRunCLI(t, env, "status")
	requireContains(t, out, "not running")
	requireContains(t, out, "All changes saved")
}

func TestEventsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "", "events")
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Fatalf("events without daemon = %v", err)
	}
}
