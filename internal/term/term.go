// Package term implements the low-level terminal I/O primitives the rest
// of the editor core is built on: raw/sane mode switching, CSI/OSC
// emission, cursor-position queries and window-size sensing over fd 0/1.
package term

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// Errors surfaced by this package, per spec.md §7.
var (
	ErrTerminalUnavailable = errors.New("term: fd 0 is not a tty")
	ErrQueryFailed         = errors.New("term: cursor position query timed out")
	ErrTerminalLost        = errors.New("term: write to terminal failed")
)

// Direction is a cursor-movement direction for Move.
type Direction int

const (
	Up Direction = iota
	Down
	Forward
	Back
)

// ClearMode selects which portion of a line ClearLine erases.
type ClearMode int

const (
	ClearToEnd ClearMode = iota
	ClearToStart
	ClearWholeLine
)

// Terminal owns fd 0 (input) / fd 1 (output) for one interactive session.
// All writes go through write so a failure can be surfaced uniformly as
// ErrTerminalLost (the only write-side fatal condition, per §7).
type Terminal struct {
	in     *os.File
	out    *os.File
	reader *bufio.Reader

	raw       bool
	origState *term.State

	resized    bool
	rows, cols int

	altScreen    bool
	kkbpPushed   bool
	bracketPaste bool
}

// New wraps the given input/output files (normally os.Stdin/os.Stdout).
func New(in, out *os.File) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		reader: bufio.NewReaderSize(in, 4096),
	}
}

// write sends bytes to the terminal, converting any I/O error into the
// fatal ErrTerminalLost per the §7 failure model.
func (t *Terminal) write(s string) error {
	if _, err := t.out.WriteString(s); err != nil {
		return fmt.Errorf("%w: %v", ErrTerminalLost, err)
	}
	return nil
}

// IsInteractive reports whether fd 0 is a TTY.
func (t *Terminal) IsInteractive() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// SetRawMode puts the terminal into raw mode (idempotent): ICANON, ECHO,
// ISIG, IEXTEN, ICRNL, IXON and OPOST disabled, VMIN=0, VTIME=1 (100ms).
func (t *Terminal) SetRawMode() error {
	if t.raw {
		return nil
	}
	if !t.IsInteractive() {
		return ErrTerminalUnavailable
	}
	state, err := rawMode(int(t.in.Fd()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTerminalUnavailable, err)
	}
	t.origState = state
	t.raw = true
	return nil
}

// SetSaneMode restores canonical line discipline (idempotent).
func (t *Terminal) SetSaneMode() error {
	if !t.raw {
		return nil
	}
	if t.origState != nil {
		if err := term.Restore(int(t.in.Fd()), t.origState); err != nil {
			return fmt.Errorf("term: restore sane mode: %w", err)
		}
	}
	t.raw = false
	t.origState = nil
	return nil
}

// WindowSize returns the current terminal size in (rows, cols).
func (t *Terminal) WindowSize() (rows, cols int, err error) {
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("term: window size: %w", err)
	}
	t.rows, t.cols = h, w
	return h, w, nil
}

// Resized reports (and clears) the latched SIGWINCH flag. See WatchResize
// and ApplyResize.
func (t *Terminal) Resized() bool {
	r := t.resized
	t.resized = false
	return r
}

// ApplyResize is called by the SIGWINCH handler (installed by
// WatchResize, §5) with the freshly queried size; it latches Resized()
// true only when the size actually changed.
func (t *Terminal) ApplyResize(rows, cols int) {
	if rows != t.rows || cols != t.cols {
		t.rows, t.cols = rows, cols
		t.resized = true
	}
}

// CursorPosition queries the terminal for the cursor's current (row, col)
// via "ESC [ 6 n", reading until the terminating 'R'. Degrades to
// ErrQueryFailed if the terminal never replies (§7: non-fatal).
func (t *Terminal) CursorPosition() (row, col int, err error) {
	if err := t.write(ansi.RequestCursorPositionReport); err != nil {
		return 0, 0, err
	}
	var buf strings.Builder
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		buf.WriteByte(b)
		if b == 'R' {
			break
		}
		if buf.Len() > 64 {
			return 0, 0, ErrQueryFailed
		}
	}
	s := buf.String()
	i := strings.Index(s, "[")
	if i < 0 {
		return 0, 0, ErrQueryFailed
	}
	s = s[i+1 : len(s)-1] // strip "ESC[" and trailing 'R'
	parts := strings.SplitN(s, ";", 2)
	if len(parts) != 2 {
		return 0, 0, ErrQueryFailed
	}
	row, err1 := strconv.Atoi(parts[0])
	col, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, ErrQueryFailed
	}
	return row, col, nil
}

// Reader exposes the buffered byte reader used for decoding key input
// (internal/keys reads from this).
func (t *Terminal) Reader() *bufio.Reader { return t.reader }

// --- emission helpers (§6 wire protocol, egress) ---

// Go moves the cursor to absolute 1-based (line, col): "CSI l;c H".
func (t *Terminal) Go(line, col int) error {
	return t.write(fmt.Sprintf("\x1b[%d;%dH", line, col))
}

// Move moves the cursor n cells in the given direction: "CSI n A/B/C/D".
func (t *Terminal) Move(dir Direction, n int) error {
	if n <= 0 {
		return nil
	}
	final := map[Direction]byte{Up: 'A', Down: 'B', Forward: 'C', Back: 'D'}[dir]
	return t.write(fmt.Sprintf("\x1b[%d%c", n, final))
}

// Clear erases the whole screen: "CSI 2 J".
func (t *Terminal) Clear() error { return t.write("\x1b[2J") }

// ClearLine erases part or all of the current line: "CSI n K".
func (t *Terminal) ClearLine(mode ClearMode) error {
	return t.write(fmt.Sprintf("\x1b[%dK", int(mode)))
}

// WriteAt positions the cursor at absolute 1-based (row, col) and writes
// s, for callers (the differential-redraw view) that rewrite a specific
// screen cell range without tracking cursor state themselves.
func (t *Terminal) WriteAt(col, row int, s string) error {
	if err := t.Go(row, col); err != nil {
		return err
	}
	return t.write(s)
}

// MoveToAndClearLine positions the cursor at (row, col) and clears part
// of that line per mode, combining Go and ClearLine for the view's
// tail-rewrite paths.
func (t *Terminal) MoveToAndClearLine(row, col int, mode ClearMode) error {
	if err := t.Go(row, col); err != nil {
		return err
	}
	return t.ClearLine(mode)
}

// SGRAttr is a single text-attribute code, per spec.md §6.
type SGRAttr int

const (
	AttrReset        SGRAttr = 0
	AttrBold         SGRAttr = 1
	AttrDim          SGRAttr = 2
	AttrItalic       SGRAttr = 3
	AttrUnderlined   SGRAttr = 4
	AttrBlink        SGRAttr = 5
	AttrInverted     SGRAttr = 7
	AttrConceal      SGRAttr = 8
	AttrDblUnderline SGRAttr = 21
	AttrNormal       SGRAttr = 22
)

// Style composes "CSI s1;s2;...m" from the given attribute codes.
func (t *Terminal) Style(attrs ...SGRAttr) string {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = strconv.Itoa(int(a))
	}
	return "\x1b[" + strings.Join(parts, ";") + "m"
}

// Color composes foreground/background SGR color sequences. An empty
// string leaves that channel untouched.
func (t *Terminal) Color(fg, bg string) string {
	var b strings.Builder
	if fg != "" {
		b.WriteString(fg)
	}
	if bg != "" {
		b.WriteString(bg)
	}
	return b.String()
}

// HideCursor / ShowCursor: "CSI ?25 l/h".
func (t *Terminal) HideCursor() error { return t.write("\x1b[?25l") }
func (t *Terminal) ShowCursor() error { return t.write("\x1b[?25h") }

// Title sets the terminal/window title via OSC 0.
func (t *Terminal) Title(s string) error {
	return t.write(fmt.Sprintf("\x1b]0;%s\x07", s))
}

// KittyNotify sends an OSC 99 desktop notification with id = ts.
func (t *Terminal) KittyNotify(ts int64, title, body string) error {
	return t.write(fmt.Sprintf("\x1b]99;i=%d;%s\x1b\\%s\x1b]99;i=%d;:%s\x1b\\", ts, title, "", ts, body))
}

// EnableBracketedPaste / DisableBracketedPaste: "CSI ?2004 h/l".
func (t *Terminal) EnableBracketedPaste() error {
	if err := t.write("\x1b[?2004h"); err != nil {
		return err
	}
	t.bracketPaste = true
	return nil
}

func (t *Terminal) DisableBracketedPaste() error {
	if err := t.write("\x1b[?2004l"); err != nil {
		return err
	}
	t.bracketPaste = false
	return nil
}

// BracketedPasteActive reports whether paste framing is currently armed.
func (t *Terminal) BracketedPasteActive() bool { return t.bracketPaste }

// EnableKKBP negotiates and enables the Kitty Keyboard Protocol with the
// progressive-enhancement flags fixed at 15 (disambiguate, event types,
// alternate keys, all-keys-as-escapes, associated text), per §4.C.
func (t *Terminal) EnableKKBP() (supported bool, err error) {
	if err := t.write(ansi.RequestKittyKeyboard); err != nil {
		return false, err
	}
	if err := t.write("\x1b[c"); err != nil {
		return false, err
	}
	var buf strings.Builder
	for {
		b, rerr := t.reader.ReadByte()
		if rerr != nil {
			return false, fmt.Errorf("%w: %v", ErrQueryFailed, rerr)
		}
		buf.WriteByte(b)
		if b == 'u' || b == 'c' {
			break
		}
		if buf.Len() > 128 {
			return false, nil
		}
	}
	s := buf.String()
	supported = strings.HasSuffix(s, "u")
	if supported {
		if err := t.write("\x1b[>1u"); err != nil {
			return false, err
		}
		if err := t.write("\x1b[=15;1u"); err != nil {
			return false, err
		}
		t.kkbpPushed = true
	}
	return supported, nil
}

// DisableKKBP pops the KKBP stack entry pushed by EnableKKBP: "CSI < u".
func (t *Terminal) DisableKKBP() error {
	if !t.kkbpPushed {
		return nil
	}
	t.kkbpPushed = false
	return t.write("\x1b[<u")
}

// EnterAltScreen saves the cursor, switches to the alternate buffer,
// enables KKBP + bracketed paste and hides the cursor. Done() reverses
// every change in LIFO order.
type AltScreenGuard struct {
	t            *Terminal
	kkbp         bool
	bracketPaste bool
}

func (t *Terminal) EnterAltScreen() (*AltScreenGuard, error) {
	if err := t.write("\x1b7"); err != nil { // save cursor (DECSC)
		return nil, err
	}
	if err := t.write("\x1b[?47h"); err != nil {
		return nil, err
	}
	t.altScreen = true
	kkbp, _ := t.EnableKKBP()
	if err := t.EnableBracketedPaste(); err != nil {
		return nil, err
	}
	if err := t.HideCursor(); err != nil {
		return nil, err
	}
	return &AltScreenGuard{t: t, kkbp: kkbp, bracketPaste: true}, nil
}

// Done reverses EnterAltScreen's changes in LIFO order.
func (g *AltScreenGuard) Done() error {
	if g == nil {
		return nil
	}
	_ = g.t.ShowCursor()
	if g.bracketPaste {
		_ = g.t.DisableBracketedPaste()
	}
	if g.kkbp {
		_ = g.t.DisableKKBP()
	}
	_ = g.t.write("\x1b[?47l")
	g.t.altScreen = false
	_ = g.t.write("\x1b8") // restore cursor (DECRC)
	return nil
}

// Guard is the scoped raw-mode teardown helper described in spec.md §9
// ("encapsulate in a Terminal handle... guaranteed teardown via a scoped
// guard restoring sane mode on any exit path"). Close is safe to call
// multiple times and from a defer on every return path, including panics.
type Guard struct {
	t      *Terminal
	closed bool
}

// Guarded puts the terminal into raw mode and returns a Guard whose
// Close restores sane mode exactly once.
func Guarded(t *Terminal) (*Guard, error) {
	if err := t.SetRawMode(); err != nil {
		return nil, err
	}
	return &Guard{t: t}, nil
}

// Close restores sane mode. Idempotent.
func (g *Guard) Close() error {
	if g == nil || g.closed {
		return nil
	}
	g.closed = true
	return g.t.SetSaneMode()
}
