package history

import (
	"os"
	"testing"
)

func TestAddRejectsSpacePrefixed(t *testing.T) {
	h := New(nil)
	if h.Add(" secret", "/tmp", "shell") {
		t.Errorf("space-prefixed command should be rejected")
	}
	if h.Len() != 0 {
		t.Errorf("rejected command should not be recorded")
	}
}

func TestAddRejectsEmpty(t *testing.T) {
	h := New(nil)
	if h.Add("", "/tmp", "shell") {
		t.Errorf("empty command should be rejected")
	}
}

func TestAddRejectsCdDotsAndJumpers(t *testing.T) {
	h := New(nil)
	for _, cmd := range []string{"..", "....", "z foo", "x bar"} {
		if h.Add(cmd, "/tmp", "shell") {
			t.Errorf("%q should be rejected", cmd)
		}
	}
	if h.Len() != 0 {
		t.Fatalf("no entries should have been recorded, got %d", h.Len())
	}
}

func TestAddRecordsOrdinaryCommand(t *testing.T) {
	h := New(nil)
	if !h.Add("ls -la", "/home/user", "shell") {
		t.Fatalf("ordinary command should be recorded")
	}
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if h.Entries()[0].Cmd != "ls -la" {
		t.Errorf("Cmd = %q", h.Entries()[0].Cmd)
	}
}

func TestAddAbbreviatesHome(t *testing.T) {
	old := os.Getenv("HOME")
	os.Setenv("HOME", "/home/user")
	defer os.Setenv("HOME", old)

	h := New(nil)
	h.Add("pwd", "/home/user/projects", "shell")
	if got := h.Entries()[0].Cwd; got != "~/projects" {
		t.Errorf("Cwd = %q, want ~/projects", got)
	}
}

func TestUpDownNavigationAndStash(t *testing.T) {
	h := New(nil)
	h.Add("cmd1", "/tmp", "shell")
	h.Add("cmd2", "/tmp", "shell")
	h.Add("cmd3", "/tmp", "shell")

	got, ok := h.Up("in-progress")
	if !ok || got != "cmd3" {
		t.Fatalf("Up() = %q, %v, want cmd3, true", got, ok)
	}
	got, ok = h.Up("")
	if !ok || got != "cmd2" {
		t.Fatalf("Up() = %q, %v, want cmd2, true", got, ok)
	}
	got, ok = h.Down()
	if !ok || got != "cmd3" {
		t.Fatalf("Down() = %q, %v, want cmd3, true", got, ok)
	}
	got, ok = h.Down()
	if !ok || got != "in-progress" {
		t.Fatalf("Down() back to stash = %q, %v, want in-progress, true", got, ok)
	}
}

func TestUpSkipsConsecutiveDuplicates(t *testing.T) {
	h := New(nil)
	h.Add("ls", "/tmp", "shell")
	h.Add("ls", "/tmp", "shell")
	h.Add("pwd", "/tmp", "shell")

	got, ok := h.Up("")
	if !ok || got != "pwd" {
		t.Fatalf("Up() = %q, %v, want pwd, true", got, ok)
	}
	got, ok = h.Up("")
	if !ok || got != "ls" {
		t.Fatalf("Up() = %q, %v, want ls (duplicates collapsed), true", got, ok)
	}
	if _, ok := h.Up(""); ok {
		t.Errorf("Up() past the oldest entry should fail")
	}
}

func TestUpAtEmptyHistoryFails(t *testing.T) {
	h := New(nil)
	if _, ok := h.Up(""); ok {
		t.Errorf("Up() on empty history should fail")
	}
}

func TestSearchRanksByScoreThenLexDesc(t *testing.T) {
	old := os.Getenv("HOME")
	os.Setenv("HOME", "/nonexistent")
	defer os.Setenv("HOME", old)

	h := New(nil)
	h.entries = []Entry{
		{Cmd: "git status", Cwd: "/repo", Exit: 0},
		{Cmd: "git push", Cwd: "/other", Exit: 1},
		{Cmd: "git log", Cwd: "/repo", Exit: 0},
	}
	results := h.Search([]string{"git"}, "/repo")
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %v", len(results), results)
	}
	// "git status" and "git log" both match cwd bonus (+2); "git push" has
	// -1 exit penalty and no cwd bonus, so it ranks last.
	if results[len(results)-1] != "git push" {
		t.Errorf("last = %q, want git push (lowest score)", results[len(results)-1])
	}
	// The score tie between them is broken lexicographically descending.
	if results[0] != "git status" || results[1] != "git log" {
		t.Errorf("first two = %q, %q, want git status, git log", results[0], results[1])
	}
}

func TestSearchEmptyTokensReturnsNil(t *testing.T) {
	h := New(nil)
	h.Add("ls", "/tmp", "shell")
	if got := h.Search(nil, "/tmp"); got != nil {
		t.Errorf("Search(nil) = %v, want nil", got)
	}
}

func TestDirSearchFavorsShorterDirectories(t *testing.T) {
	h := New(nil)
	h.entries = []Entry{
		{Cmd: "ls", Cwd: "/a/very/long/nested/project/path/here"},
		{Cmd: "ls", Cwd: "/proj"},
	}
	results := h.DirSearch([]string{"p"})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0] != "/proj" {
		t.Errorf("results[0] = %q, want the shorter path ranked first", results[0])
	}
}

func TestLastArgReturnsFinalToken(t *testing.T) {
	h := New(nil)
	h.Add("cp foo bar", "/tmp", "shell")
	if got := h.LastArg(); got != "bar" {
		t.Errorf("LastArg() = %q, want bar", got)
	}
}

func TestLastArgEmptyHistory(t *testing.T) {
	h := New(nil)
	if got := h.LastArg(); got != "" {
		t.Errorf("LastArg() = %q, want empty", got)
	}
}

func TestFailingStoreNeverSucceeds(t *testing.T) {
	var s Store = FailingStore{}
	if err := s.SaveHistoryEntry("shell", Entry{}); err == nil {
		t.Errorf("SaveHistoryEntry should fail")
	}
	if _, err := s.LoadHistory("shell", 0); err == nil {
		t.Errorf("LoadHistory should fail")
	}
	if err := s.Close(); err == nil {
		t.Errorf("Close should fail")
	}
}
