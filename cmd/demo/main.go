// Command demo is a minimal line-editor REPL exercising the editor core
// end to end over a real TTY: it decodes keys, edits a multi-line input
// buffer with history and path completion, differentially redraws it,
// and echoes whatever was submitted, in the teacher's cmd/<name>/main.go
// layout convention (Gaurav-Gosain-tuios/cmd/tuios/main.go).
package main

import (
	"fmt"
	"os"

	"github.com/epicfilemcnulty/lilush-core/internal/completion"
	"github.com/epicfilemcnulty/lilush-core/internal/controller"
	"github.com/epicfilemcnulty/lilush-core/internal/history"
	"github.com/epicfilemcnulty/lilush-core/internal/input"
	"github.com/epicfilemcnulty/lilush-core/internal/inputview"
	"github.com/epicfilemcnulty/lilush-core/internal/style"
	"github.com/epicfilemcnulty/lilush-core/internal/term"
)

const promptText = "> "

// staticPrompt renders a fixed, unstyled prompt string, satisfying
// input.Prompt's contract for this demo's single-line prompt.
type staticPrompt struct{ text string }

func (p *staticPrompt) Get() string          { return p.text }
func (p *staticPrompt) Set(map[string]any) {}

func main() {
	t := term.New(os.Stdin, os.Stdout)
	if !t.IsInteractive() {
		fmt.Fprintln(os.Stderr, "demo: stdin is not a tty")
		os.Exit(1)
	}

	guard, err := term.Guarded(t)
	if err != nil {
		fmt.Fprintln(os.Stderr, "demo:", err)
		os.Exit(1)
	}
	defer guard.Close()

	supported, err := t.EnableKKBP()
	if err == nil && supported {
		defer t.DisableKKBP()
	}
	if err := t.EnableBracketedPaste(); err == nil {
		defer t.DisableBracketedPaste()
	}

	hist := history.New(nil)
	cwd, _ := os.Getwd()

	pathSrc := completion.NewPathSource()
	_ = pathSrc.Update()

	view := inputview.New(t)
	exitEvents := map[string]bool{"exit": true}

	// layoutEngine measures the prompt's on-screen width with go-runewidth
	// rather than a codepoint count, so a wide-glyph prompt doesn't eat
	// into the input window's available columns.
	layoutEngine := style.NewEngine(style.New(), 80, style.RuneWidthDisplayLen)

	for {
		s := input.New()
		s.History = hist
		s.Completion = completion.New(nil, nil)
		s.Completion.AddSource(pathSrc)
		s.Completion.AddSource(&completion.HistorySource{History: hist, Cwd: cwd})
		s.Prompt = &staticPrompt{text: promptText}

		_, cols, err := t.WindowSize()
		if err != nil {
			cols = 80
		}
		row, _, err := t.CursorPosition()
		if err != nil {
			row = 1
		}
		layoutEngine.TermCols = cols
		promptWidth := layoutEngine.DisplayLen(promptText)
		// The view draws the prompt from column 1 and the buffer from the
		// anchor column, so the anchor sits just past the prompt.
		s.SetPosition(row, 1+promptWidth)
		s.UpdateWindowSize(cols, promptWidth, 1)

		if err := view.Display(s); err != nil {
			fmt.Fprintln(os.Stderr, "\r\ndemo:", err)
			os.Exit(1)
		}

		c := controller.New(t, s, view)
		result, err := c.Run(exitEvents)
		if err != nil {
			fmt.Fprintln(os.Stderr, "\r\ndemo:", err)
			return
		}

		fmt.Fprint(os.Stdout, "\r\n")
		switch result.Event {
		case "execute":
			line := joinLines(s.Lines)
			hist.Add(line, cwd, "demo")
			fmt.Fprintf(os.Stdout, "you typed: %s\r\n", line)
		case "exit":
			return
		default:
			if result.Combo != "" {
				fmt.Fprintf(os.Stdout, "unmapped: %s\r\n", result.Combo)
			}
		}
	}
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
