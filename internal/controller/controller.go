// Package controller implements the single-threaded cooperative event
// loop of spec.md §4.H/§5: decode one key per iteration, dispatch it to
// the input state, and drive a differential redraw — grounded on
// Gaurav-Gosain-tuios/internal/input/keyboard.go's dispatch structure
// (check a fast path, then fall through a chain of handlers), adapted
// from its multi-mode bubbletea dispatch into a single linear
// control-key map since copy-mode/prefix-mode are out-of-scope
// multiplexer features.
package controller

import (
	"errors"
	"time"

	"github.com/epicfilemcnulty/lilush-core/internal/input"
	"github.com/epicfilemcnulty/lilush-core/internal/inputview"
	"github.com/epicfilemcnulty/lilush-core/internal/keys"
	"github.com/epicfilemcnulty/lilush-core/internal/term"
)

// Action is one of the fixed control-key mappings from spec.md §4.F.
type Action int

const (
	ActionBackspace Action = iota
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionWordLeft
	ActionWordRight
	ActionStartOfLine
	ActionEndOfLine
	ActionNewline
	ActionExternalEditor
	ActionInsertLastArg
	ActionExecute
	ActionExit
)

// defaultBindings is the fixed control mapping table from spec.md §4.F,
// overridable by a caller-supplied map passed to Controller.Bindings.
var defaultBindings = map[string]Action{
	"BACKSPACE":    ActionBackspace,
	"LEFT":         ActionMoveLeft,
	"RIGHT":        ActionMoveRight,
	"UP":           ActionMoveUp,
	"DOWN":         ActionMoveDown,
	"CTRL+LEFT":    ActionWordLeft,
	"CTRL+RIGHT":   ActionWordRight,
	"HOME":         ActionStartOfLine,
	"CTRL+a":       ActionStartOfLine,
	"END":          ActionEndOfLine,
	"CTRL+e":       ActionEndOfLine,
	"Shift+ENTER":  ActionNewline,
	"ALT+ENTER":    ActionExternalEditor,
	"ALT+.":        ActionInsertLastArg,
	"ENTER":        ActionExecute,
	"ESC":          ActionExit,
}

// Controller drives the event loop binding A (term), C (keys), F (input),
// G (inputview) together, per spec.md §4.H.
type Controller struct {
	Term     *term.Terminal
	State    *input.State
	View     *inputview.View
	Bindings map[string]Action

	decoder *keys.Decoder
}

// New builds a Controller over an already-configured terminal/state/view
// triple.
func New(t *term.Terminal, s *input.State, v *inputview.View) *Controller {
	return &Controller{
		Term:     t,
		State:    s,
		View:     v,
		Bindings: defaultBindings,
		decoder:  keys.NewDecoder(t.Reader()),
	}
}

// Result is the controller's Run return value, per spec.md §4.H: the
// terminating event name, plus the unmapped key combo when the event was
// an unrecognized shortcut a mode switcher might want to see.
type Result struct {
	Event string
	Combo string
}

// Run executes the event loop until a key maps to one of exitEvents (or
// the built-in "execute"/"exit" events), per spec.md §4.H/§5.
func (c *Controller) Run(exitEvents map[string]bool) (Result, error) {
	for {
		if c.Term.Resized() {
			_, cols, err := c.Term.WindowSize()
			if err == nil {
				_, col := c.State.Anchor()
				c.State.UpdateWindowSize(cols, 0, col)
			}
			c.State.LastOp = input.Op{Kind: input.OpFullChange}
			if err := c.View.Display(c.State); err != nil {
				return Result{}, err
			}
		}

		ev, paste, err := c.decoder.Next()
		if err != nil {
			var decErr *keys.DecodeError
			if errors.As(err, &decErr) {
				continue // malformed sequence already dropped by the decoder
			}
			return Result{Event: "exit"}, err
		}

		if paste != nil {
			for _, r := range paste.Text {
				c.State.Insert(r)
			}
			c.State.LastOp = input.Op{Kind: input.OpFullChange}
			if err := c.View.Display(c.State); err != nil {
				return Result{}, err
			}
			continue
		}
		if ev == nil {
			continue
		}

		if ev.Code == "TAB" {
			result := c.handleTab(ev)
			if result.Event != "" {
				return result, nil
			}
			continue
		}

		redraw, result, handled := c.dispatch(ev)
		if result.Combo != "" {
			return result, nil // unmapped shortcut: surface it so a mode switcher can respond
		}
		if result.Event != "" {
			return result, nil
		}
		if !handled {
			continue
		}
		if redraw {
			if err := c.View.Display(c.State); err != nil {
				return Result{}, err
			}
		}
	}
}

func (c *Controller) handleTab(ev *keys.KeyEvent) Result {
	pressed := ev.Type == keys.Press
	outcome := c.State.HandleTab(pressed, time.Now())
	switch outcome {
	case "execute":
		return Result{Event: "execute"}
	case "redraw":
		_ = c.View.Display(c.State)
	}
	return Result{}
}

// dispatch handles printable characters (step 4) then control shortcuts
// (step 5), per spec.md §4.H.
func (c *Controller) dispatch(ev *keys.KeyEvent) (redraw bool, result Result, handled bool) {
	if ev.Type == keys.Release {
		return false, Result{}, false
	}

	if isPrintable(ev) {
		redraw := c.State.Insert([]rune(ev.Code)[0])
		c.refreshCompletion()
		return redraw, Result{}, true
	}

	combo := keys.SimpleGet(ev)
	action, ok := c.Bindings[combo]
	if !ok {
		return false, Result{Combo: combo}, true
	}

	switch action {
	case ActionBackspace:
		redraw := c.State.Backspace()
		c.refreshCompletion()
		return redraw, Result{}, true
	case ActionMoveLeft:
		return c.State.MoveLeft(), Result{}, true
	case ActionMoveRight:
		return c.State.MoveRight(), Result{}, true
	case ActionMoveUp:
		return c.State.HistoryUp(), Result{}, true
	case ActionMoveDown:
		return c.State.HistoryDown(), Result{}, true
	case ActionWordLeft:
		return c.State.MoveToPreviousSpace(), Result{}, true
	case ActionWordRight:
		return c.State.MoveToNextSpace(), Result{}, true
	case ActionStartOfLine:
		return c.State.StartOfLine(), Result{}, true
	case ActionEndOfLine:
		return c.State.EndOfLine(), Result{}, true
	case ActionNewline:
		return c.State.Newline(), Result{}, true
	case ActionExternalEditor:
		redraw, _ := c.State.ExternalEditor()
		return redraw, Result{}, true
	case ActionInsertLastArg:
		return c.State.InsertLastArg(), Result{}, true
	case ActionExecute:
		if c.State.Completion != nil && !c.State.Completion.Empty() && c.State.Completion.CurrentMeta().ExecOnProm {
			c.State.PromoteCompletion()
			return false, Result{Event: "execute"}, true
		}
		if c.State.BufferEmpty() {
			line, col := c.State.Anchor()
			c.State.SetPosition(line+1, col) // advance the anchor only; never emits execute on an empty buffer
			return true, Result{}, true
		}
		return false, Result{Event: "execute"}, true
	case ActionExit:
		switch c.State.Escape() {
		case "exit":
			return false, Result{Event: "exit"}, true
		default: // "redraw": completions scrolled, the loop continues
			return true, Result{}, true
		}
	}
	return false, Result{}, true
}

// refreshCompletion re-runs the search (§4.E step 1-4) against the
// current line. dispatch calls it after a printable insert and after
// Backspace only; history scrolling, newline, last-arg insertion, the
// external editor, pastes and Tab promotion leave the candidate list as
// it was.
func (c *Controller) refreshCompletion() {
	if c.State.Completion == nil {
		return
	}
	c.State.Completion.Search(c.State.Lines[c.State.Line-1], c.State.History)
}

func isPrintable(ev *keys.KeyEvent) bool {
	runes := []rune(ev.Code)
	if len(runes) != 1 {
		return false
	}
	return runes[0] >= 0x20 && ev.Mods&(^keys.Shift) == 0
}
