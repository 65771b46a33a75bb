//go:build windows

package term

import "golang.org/x/term"

// rawMode is not supported on Windows consoles for the ANSI-CSI-only
// protocol this core targets (spec.md §1 Non-goals: "no support for
// terminals lacking ANSI CSI" — legacy Windows consoles without VT mode
// fall in that bucket). Fail closed rather than pretend to support it.
func rawMode(fd int) (*term.State, error) {
	return nil, ErrTerminalUnavailable
}

// WatchResize is a no-op on Windows: SIGWINCH does not exist there.
func (t *Terminal) WatchResize() func() {
	return func() {}
}
