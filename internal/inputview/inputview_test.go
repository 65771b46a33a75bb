package inputview

import (
	"os"
	"strings"
	"testing"

	"github.com/epicfilemcnulty/lilush-core/internal/input"
	"github.com/epicfilemcnulty/lilush-core/internal/term"
)

func newPipeView(t *testing.T) (*View, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(); _ = w.Close() })
	return New(term.New(r, w)), r
}

func drain(t *testing.T, r *os.File) string {
	t.Helper()
	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func TestFullRedrawWritesPromptAndLine(t *testing.T) {
	v, r := newPipeView(t)
	s := input.New()
	s.SetPosition(1, 3) // prompt occupies columns 1-2, buffer starts at col 3
	s.Lines = []string{"hi"}
	s.Cursor = 3 // end of "hi"; LastOp is OpPositionChange from SetPosition, drawn as a full redraw

	if err := v.Display(s); err != nil {
		t.Fatalf("Display: %v", err)
	}
	got := drain(t, r)
	if !strings.Contains(got, "hi") {
		t.Errorf("got %q, want it to contain the buffer contents", got)
	}
	if !strings.HasPrefix(got, "\x1b[?25l") {
		t.Errorf("full redraw should hide the cursor first, got %q", got)
	}
	if !strings.HasSuffix(got, "\x1b[?25h") {
		t.Errorf("full redraw should show the cursor last, got %q", got)
	}
}

func TestDisplayCursorMoveOnlyRepositions(t *testing.T) {
	v, r := newPipeView(t)
	s := input.New()
	s.SetPosition(1, 1)
	s.Insert('a')
	s.Insert('b')
	s.MoveLeft()

	if err := v.Display(s); err != nil {
		t.Fatalf("Display: %v", err)
	}
	got := drain(t, r)
	if got != "\x1b[1;2H" {
		t.Errorf("got %q, want a single cursor-position sequence for column 2", got)
	}
}

func TestDisplayInsertAtLineEndWritesSingleChar(t *testing.T) {
	v, r := newPipeView(t)
	s := input.New()
	s.SetPosition(1, 1)
	s.Insert('a')
	s.Insert('b')
	if err := v.Display(s); err != nil {
		t.Fatalf("Display: %v", err)
	}
	got := drain(t, r)
	if !strings.Contains(got, "b") {
		t.Errorf("got %q, want it to contain the newly inserted char", got)
	}
}

func TestDisplayHistoryScrollEndsAtEndOfLine(t *testing.T) {
	v, r := newPipeView(t)
	s := input.New()
	s.SetPosition(1, 1)
	s.Lines = []string{"ls -la"}
	s.LastOp.Kind = input.OpHistoryScroll

	if err := v.Display(s); err != nil {
		t.Fatalf("Display: %v", err)
	}
	got := drain(t, r)
	if !strings.Contains(got, "ls -la") {
		t.Errorf("got %q, want it to contain the swapped-in command", got)
	}
	if s.Cursor != len("ls -la")+1 {
		t.Errorf("cursor = %d, want end of line", s.Cursor)
	}
}
