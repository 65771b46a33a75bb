// Package input implements the editable multi-line input buffer of
// spec.md §3/§4.F: cursor/offset bookkeeping over a UTF-8 document,
// history/completion integration, and the last-operation log consumed
// by the differential-redraw view. Grounded on
// kylelemons-goat/term/term_line.go's line-buffer editing operations
// (insert/backspace/cursor movement over a rune buffer) and
// danielgatis-go-headless-term/cursor.go's UTF-8-safe column bookkeeping.
package input

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/epicfilemcnulty/lilush-core/internal/completion"
	"github.com/epicfilemcnulty/lilush-core/internal/history"
)

// OpKind tags the variant of State.LastOp, consumed by the view (§4.G).
type OpKind int

const (
	OpNone OpKind = iota
	OpInsert
	OpDelete
	OpCursorMove
	OpFullChange
	OpCompletionPromote
	OpCompletionScroll
	OpHistoryScroll
	OpPositionChange
)

// Op is the tagged last-operation record, per spec.md §3.
type Op struct {
	Kind     OpKind
	Pos      int  // codepoint position, for Insert/Delete
	Full     bool // for CompletionPromote
	PrevLen  int  // for CompletionScroll
}

// TabState tracks the press/release timing needed to distinguish a short
// Tab (promote) from a long Tab (scroll), per spec.md §3/§4.F.
type TabState struct {
	PressStart  time.Time
	LastRelease time.Time
	Long        bool
	DoubleTap   bool
}

// quickPressThreshold returns LILUSH_QUICK_PRESS, defaulting to 93ms
// per spec.md §4.F / §6.
func quickPressThreshold() time.Duration {
	if v := os.Getenv("LILUSH_QUICK_PRESS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return 93 * time.Millisecond
}

// Prompt is the external rendering contract §4.G describes: a styled
// string plus metadata hints the view can set (current line/line count).
type Prompt interface {
	Get() string
	Set(opts map[string]any)
}

// State owns the editable document, per spec.md §3 InputState.
type State struct {
	Lines  []string
	Line   int // 1-based
	Cursor int // 1-based, within the visible window
	Offset int // 0-based codepoints hidden left of the window

	LastCompletionLen int
	LastOp            Op
	Tab               TabState

	History    *history.History
	Completion *completion.Completion
	Prompt     Prompt

	width  int // max_width(), recomputed by UpdateWindowSize
	anchorLine, anchorCol int
}

// New builds an empty, single-line State.
func New() *State {
	return &State{
		Lines:  []string{""},
		Line:   1,
		Cursor: 1,
		width:  80,
	}
}

// BufferEmpty reports spec.md §3's buffer_empty() predicate.
func (s *State) BufferEmpty() bool {
	return len(s.Lines) == 1 && s.Lines[0] == ""
}

// MaxWidth returns the resolved max_width(), already clamped by
// UpdateWindowSize to be > 0; MaxWidth itself never returns less than 1,
// so rendering always proceeds.
func (s *State) MaxWidth() int {
	if s.width <= 0 {
		return 1
	}
	return s.width
}

func (s *State) currentLine() []rune { return []rune(s.Lines[s.Line-1]) }

func (s *State) setCurrentLine(r []rune) { s.Lines[s.Line-1] = string(r) }

// bufPos returns the 0-based codepoint position the cursor+offset denote.
func (s *State) bufPos() int { return s.Offset + s.Cursor - 1 }

// clampWindow recomputes Cursor/Offset so the buffer position stays
// within [0, len(line)] and the visible window obeys max_width().
func (s *State) clampWindow(pos int) {
	line := s.currentLine()
	if pos < 0 {
		pos = 0
	}
	if pos > len(line) {
		pos = len(line)
	}
	w := s.MaxWidth()
	if pos < s.Offset {
		s.Offset = pos
	}
	if pos-s.Offset > w {
		s.Offset = pos - w
	}
	s.Cursor = pos - s.Offset + 1
}

// Insert inserts ch at the current buffer position and advances the
// cursor, per spec.md §4.F. Returns whether a redraw is needed (always
// true here; the view decides whether a fast path suffices).
func (s *State) Insert(ch rune) bool {
	line := s.currentLine()
	pos := s.bufPos()
	line = append(line[:pos:pos], append([]rune{ch}, line[pos:]...)...)
	s.setCurrentLine(line)
	s.clampWindow(pos + 1)
	s.LastOp = Op{Kind: OpInsert, Pos: pos}
	return true
}

// Backspace deletes the character before the cursor, joining with the
// previous line when at column 1 of a line > 1.
func (s *State) Backspace() bool {
	pos := s.bufPos()
	if pos == 0 {
		if s.Line == 1 {
			return false
		}
		prevLen := len([]rune(s.Lines[s.Line-2]))
		s.Lines[s.Line-2] = s.Lines[s.Line-2] + s.Lines[s.Line-1]
		s.Lines = append(s.Lines[:s.Line-1], s.Lines[s.Line:]...)
		s.Line--
		s.clampWindow(prevLen)
		s.LastOp = Op{Kind: OpFullChange}
		return true
	}
	line := s.currentLine()
	line = append(line[:pos-1], line[pos:]...)
	s.setCurrentLine(line)
	s.clampWindow(pos - 1)
	s.LastOp = Op{Kind: OpDelete, Pos: pos - 1}
	return true
}

// MoveLeft/MoveRight perform intra-line or cross-line cursor movement.
func (s *State) MoveLeft() bool {
	pos := s.bufPos()
	if pos == 0 {
		if s.Line == 1 {
			return false
		}
		s.Line--
		s.clampWindow(len(s.currentLine()))
		s.LastOp = Op{Kind: OpFullChange}
		return true
	}
	s.clampWindow(pos - 1)
	s.LastOp = Op{Kind: OpCursorMove}
	return true
}

func (s *State) MoveRight() bool {
	pos := s.bufPos()
	line := s.currentLine()
	if pos >= len(line) {
		if s.Line >= len(s.Lines) {
			return false
		}
		s.Line++
		s.clampWindow(0)
		s.LastOp = Op{Kind: OpFullChange}
		return true
	}
	s.clampWindow(pos + 1)
	s.LastOp = Op{Kind: OpCursorMove}
	return true
}

// MoveToPreviousSpace/MoveToNextSpace skip to the adjacent whitespace
// boundary within the current line.
func (s *State) MoveToPreviousSpace() bool {
	line := s.currentLine()
	pos := s.bufPos()
	i := pos
	for i > 0 && unicode.IsSpace(line[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(line[i-1]) {
		i--
	}
	if i == pos {
		return false
	}
	s.clampWindow(i)
	s.LastOp = Op{Kind: OpCursorMove}
	return true
}

func (s *State) MoveToNextSpace() bool {
	line := s.currentLine()
	pos := s.bufPos()
	i := pos
	for i < len(line) && !unicode.IsSpace(line[i]) {
		i++
	}
	for i < len(line) && unicode.IsSpace(line[i]) {
		i++
	}
	if i == pos {
		return false
	}
	s.clampWindow(i)
	s.LastOp = Op{Kind: OpCursorMove}
	return true
}

// StartOfLine/EndOfLine clamp cursor+offset to the respective end of the
// current line; always report redraw-needed, per spec.md §4.F.
func (s *State) StartOfLine() bool {
	s.clampWindow(0)
	s.LastOp = Op{Kind: OpFullChange}
	return true
}

func (s *State) EndOfLine() bool {
	s.clampWindow(len(s.currentLine()))
	s.LastOp = Op{Kind: OpFullChange}
	return true
}

// HistoryUp/HistoryDown swap in a history entry, replacing Lines, then
// move to end of line, per spec.md §4.F.
func (s *State) HistoryUp() bool {
	if s.History == nil {
		return false
	}
	cmd, ok := s.History.Up(s.Lines[0])
	if !ok {
		return false
	}
	s.Lines = []string{cmd}
	s.Line = 1
	s.EndOfLine()
	s.LastOp = Op{Kind: OpHistoryScroll}
	return true
}

func (s *State) HistoryDown() bool {
	if s.History == nil {
		return false
	}
	cmd, ok := s.History.Down()
	if !ok {
		return false
	}
	s.Lines = []string{cmd}
	s.Line = 1
	s.EndOfLine()
	s.LastOp = Op{Kind: OpHistoryScroll}
	return true
}

// Newline splits the current line at the cursor, inserting a new line
// after it, per spec.md §4.F.
func (s *State) Newline() bool {
	line := s.currentLine()
	pos := s.bufPos()
	head, tail := string(line[:pos]), string(line[pos:])
	s.Lines[s.Line-1] = head
	rest := append([]string{tail}, s.Lines[s.Line:]...)
	s.Lines = append(s.Lines[:s.Line], rest...)
	s.Line++
	s.clampWindow(0)
	s.LastOp = Op{Kind: OpFullChange}
	return true
}

// InsertLastArg appends history's last_arg() at the cursor.
func (s *State) InsertLastArg() bool {
	if s.History == nil {
		return false
	}
	arg := s.History.LastArg()
	if arg == "" {
		return false
	}
	for _, r := range arg {
		s.Insert(r)
	}
	s.LastOp = Op{Kind: OpFullChange}
	return true
}

// ExternalEditor opens $EDITOR on a temporary file holding the current
// buffer, then replaces Lines with the file's contents once the editor
// exits. The buffer is passed through that file, not through pipes.
func (s *State) ExternalEditor() (bool, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return false, fmt.Errorf("input: EDITOR is not set")
	}
	tmp, err := os.CreateTemp("", "lilush-edit-*")
	if err != nil {
		return false, fmt.Errorf("input: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	content := ""
	for i, l := range s.Lines {
		if i > 0 {
			content += "\n"
		}
		content += l
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return false, fmt.Errorf("input: write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command(editor, tmp.Name())
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("input: run %s: %w", editor, err)
	}

	out, err := os.ReadFile(tmp.Name())
	if err != nil {
		return false, fmt.Errorf("input: read back temp file: %w", err)
	}
	out = bytes.TrimRight(out, "\n")
	lines := splitLines(string(out))
	if len(lines) == 0 {
		lines = []string{""}
	}
	s.Lines = lines
	s.Line = len(lines)
	s.EndOfLine()
	s.LastOp = Op{Kind: OpFullChange}
	return true, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, b := range []byte(s) {
		if b == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

// PromoteCompletion applies the chosen completion candidate to the
// buffer, per spec.md §4.E/§4.F. Returns ("execute") when the candidate
// requests immediate submission.
func (s *State) PromoteCompletion() string {
	if s.Completion == nil || s.Completion.Empty() {
		return ""
	}
	newLine, execNow := s.Completion.Promote(s.Lines[s.Line-1])
	s.Lines[s.Line-1] = newLine
	s.clampWindow(utf8.RuneCountInString(newLine))
	s.LastOp = Op{Kind: OpCompletionPromote, Full: true}
	if execNow {
		return "execute"
	}
	return "redraw"
}

// ScrollCompletion moves the completion selection, per spec.md §4.F/§4.G.
func (s *State) ScrollCompletion(forward bool) bool {
	if s.Completion == nil || s.Completion.Empty() {
		return false
	}
	prevLen := s.LastCompletionLen
	if forward {
		s.Completion.ScrollDown()
	} else {
		s.Completion.ScrollUp()
	}
	s.LastCompletionLen = utf8.RuneCountInString(s.Completion.Get(false))
	s.LastOp = Op{Kind: OpCompletionScroll, PrevLen: prevLen}
	return true
}

// Escape implements spec.md §4.F's ESC contract: scroll completions on a
// non-empty buffer, or signal exit on an empty one.
func (s *State) Escape() string {
	if !s.BufferEmpty() {
		s.ScrollCompletion(false)
		return "redraw"
	}
	return "exit"
}

// HandleTab applies the §4.F/§6 Tab disambiguation: a press/release pair
// shorter than LILUSH_QUICK_PRESS promotes; longer scrolls.
func (s *State) HandleTab(pressed bool, at time.Time) string {
	if pressed {
		s.Tab.PressStart = at
		return ""
	}
	held := at.Sub(s.Tab.PressStart)
	s.Tab.Long = held > quickPressThreshold()
	s.Tab.LastRelease = at
	if s.Tab.Long {
		s.ScrollCompletion(true)
		return "redraw"
	}
	return s.PromoteCompletion()
}

// UpdateWindowSize recomputes max_width() as termW - anchorCol - promptLen
// (at least 1) and clamps cursor/offset. There is no separate configured
// width cap.
func (s *State) UpdateWindowSize(termW, promptLen, anchorCol int) {
	w := termW - anchorCol - promptLen
	if w < 1 {
		w = 1
	}
	s.width = w
	s.clampWindow(s.bufPos())
}

// SetPosition moves the input's anchor (terminal row/col where the
// prompt begins), per spec.md §4.F.
func (s *State) SetPosition(line, col int) {
	s.anchorLine, s.anchorCol = line, col
	s.LastOp = Op{Kind: OpPositionChange}
}

// Anchor returns the input's terminal anchor position.
func (s *State) Anchor() (line, col int) { return s.anchorLine, s.anchorCol }

// Flush resets the buffer to empty and clears any active completion, per
// spec.md §4.F.
func (s *State) Flush() {
	s.Lines = []string{""}
	s.Line = 1
	s.Cursor = 1
	s.Offset = 0
	s.LastCompletionLen = 0
	if s.Completion != nil {
		s.Completion.Flush()
	}
	s.LastOp = Op{Kind: OpFullChange}
}
