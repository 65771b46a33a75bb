// Package inputview implements the differential redraw of spec.md §4.G:
// a dispatch table keyed on input.State's last-operation tag, falling
// back to a full clear+repaint, grounded on the minimal-redraw-with-
// fallback shape of
// other_examples/780c63d7_vito-dang__pkg-pitui-terminal.go.go's
// differential terminal renderer.
package inputview

import (
	"unicode/utf8"

	"github.com/epicfilemcnulty/lilush-core/internal/input"
	"github.com/epicfilemcnulty/lilush-core/internal/term"
)

// View renders an input.State to a term.Terminal, using the completion
// engine (if bound on the state) to compute ghost text.
type View struct {
	Term *term.Terminal
}

// New builds a View writing to t.
func New(t *term.Terminal) *View { return &View{Term: t} }

// anchor bundles the input's terminal anchor with the active line's
// screen row and the active column, derived once per Display call.
type anchor struct {
	line, col int // input.State.Anchor(): 1-based origin of line 1
	row       int // 1-based screen row of the active (possibly wrapped) line
}

func (v *View) resolveAnchor(s *input.State) anchor {
	line, col := s.Anchor()
	return anchor{line: line, col: col, row: line + s.Line - 1}
}

// screenCol returns the 1-based screen column of the cursor.
func (a anchor) screenCol(s *input.State) int { return a.col + s.Cursor - 1 }

// Display performs the minimal redraw implied by state.LastOp, per the
// table in spec.md §4.G.
func (v *View) Display(s *input.State) error {
	a := v.resolveAnchor(s)

	switch s.LastOp.Kind {
	case input.OpInsert:
		return v.displayInsert(s, a)
	case input.OpDelete:
		return v.displayTailFrom(s, a, s.LastOp.Pos)
	case input.OpCursorMove:
		return v.repositionCursor(s, a)
	case input.OpCompletionScroll:
		return v.displayGhost(s, a)
	case input.OpCompletionPromote:
		if s.LastOp.Full {
			return v.fullRedraw(s, a)
		}
		return v.displayTailFrom(s, a, 0)
	case input.OpHistoryScroll:
		if err := v.fullRedraw(s, a); err != nil {
			return err
		}
		s.EndOfLine()
		return v.repositionCursor(s, v.resolveAnchor(s))
	default: // FullChange, PositionChange, initial
		return v.fullRedraw(s, a)
	}
}

func (v *View) promptText(s *input.State) string {
	if s.Prompt == nil {
		return ""
	}
	return s.Prompt.Get()
}

// visibleWindow returns the codepoints of the active line currently
// inside [offset, offset+max_width).
func (v *View) visibleWindow(s *input.State) string {
	line := []rune(s.Lines[s.Line-1])
	start := s.Offset
	if start > len(line) {
		start = len(line)
	}
	end := start + s.MaxWidth()
	if end > len(line) {
		end = len(line)
	}
	return string(line[start:end])
}

func (v *View) ghostText(s *input.State) string {
	if s.Completion == nil || s.Completion.Empty() {
		return ""
	}
	ghost := s.Completion.Get(false)
	maxLen := s.MaxWidth() - s.Cursor
	if maxLen < 0 {
		return ""
	}
	r := []rune(ghost)
	if len(r) > maxLen {
		r = r[:maxLen]
	}
	return string(r)
}

func (v *View) displayInsert(s *input.State, a anchor) error {
	atLineEnd := s.Offset+s.Cursor-1 == utf8.RuneCountInString(s.Lines[s.Line-1])
	if atLineEnd && s.Cursor <= s.MaxWidth() {
		if err := v.clearGhost(s, a); err != nil {
			return err
		}
		newRune := []rune(s.Lines[s.Line-1])
		if len(newRune) > 0 {
			col := a.screenCol(s) - 1 // the character just written sits one cell left of the cursor
			if err := v.Term.WriteAt(col, a.row, string(newRune[len(newRune)-1])); err != nil {
				return err
			}
		}
		return v.displayGhost(s, a)
	}
	return v.displayTailFrom(s, a, s.LastOp.Pos)
}

// displayTailFrom clears from the cursor to end-of-line and rewrites the
// visible tail starting at fromPos (a 0-based codepoint position in the
// active line; positions left of the window start at the window's first
// column).
func (v *View) displayTailFrom(s *input.State, a anchor, fromPos int) error {
	if err := v.Term.MoveToAndClearLine(a.row, a.screenCol(s), term.ClearToEnd); err != nil {
		return err
	}
	window := v.visibleWindow(s)
	runes := []rune(window)
	start := fromPos - s.Offset
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	if err := v.Term.WriteAt(a.col+start, a.row, string(runes[start:])); err != nil {
		return err
	}
	return v.repositionCursor(s, a)
}

func (v *View) repositionCursor(s *input.State, a anchor) error {
	return v.Term.Go(a.row, a.screenCol(s))
}

func (v *View) clearGhost(s *input.State, a anchor) error {
	if s.LastCompletionLen == 0 {
		return nil
	}
	if err := v.Term.WriteAt(a.screenCol(s), a.row, blank(s.LastCompletionLen)); err != nil {
		return err
	}
	s.LastCompletionLen = 0
	return nil
}

func (v *View) displayGhost(s *input.State, a anchor) error {
	ghost := v.ghostText(s)
	col := a.screenCol(s)
	prevLen := s.LastOp.PrevLen
	if prevLen > utf8.RuneCountInString(ghost) {
		if err := v.Term.WriteAt(col, a.row, blank(prevLen)); err != nil {
			return err
		}
	}
	if ghost != "" {
		if err := v.Term.WriteAt(col, a.row, ghost); err != nil {
			return err
		}
	}
	s.LastCompletionLen = utf8.RuneCountInString(ghost)
	return v.repositionCursor(s, a)
}

func blank(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// fullRedraw clears the input rectangle, redraws the prompt and visible
// window, draws the ghost completion, and repositions the cursor, per
// spec.md §4.G's FullChange row.
func (v *View) fullRedraw(s *input.State, a anchor) error {
	if err := v.Term.HideCursor(); err != nil {
		return err
	}
	defer v.Term.ShowCursor()

	if err := v.Term.MoveToAndClearLine(a.row, 1, term.ClearToEnd); err != nil {
		return err
	}
	prompt := v.promptText(s)
	if err := v.Term.WriteAt(1, a.row, prompt); err != nil {
		return err
	}
	window := v.visibleWindow(s)
	if err := v.Term.WriteAt(a.col, a.row, window); err != nil {
		return err
	}
	s.LastCompletionLen = 0
	if err := v.displayGhost(s, a); err != nil {
		return err
	}
	return v.repositionCursor(s, a)
}
