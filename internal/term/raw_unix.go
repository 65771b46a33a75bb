//go:build unix || linux || darwin || freebsd || openbsd || netbsd

package term

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// rawMode disables ICANON, ECHO, ISIG, IEXTEN, ICRNL, IXON, OPOST and sets
// VMIN=0, VTIME=1 (100ms) directly via termios, per spec.md §4.A. We do
// not use golang.org/x/term.MakeRaw here because it does not let us set
// VTIME — the 100ms poll is required so the controller can interleave
// SIGWINCH/job-exit checks between key reads (spec.md §5).
func rawMode(fd int) (*term.State, error) {
	state, err := term.GetState(fd)
	if err != nil {
		return nil, err
	}

	raw, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("ioctl get termios: %w", err)
	}
	raw.Iflag &^= unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.ISIG | unix.IEXTEN
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 1
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, raw); err != nil {
		return nil, fmt.Errorf("ioctl set termios: %w", err)
	}
	return state, nil
}

// WatchResize installs a SIGWINCH handler that calls ApplyResize with the
// freshly queried window size on every signal, per §5 ("SIGWINCH handled
// at all times"). The returned func uninstalls the handler.
func (t *Terminal) WatchResize() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				if rows, cols, err := t.WindowSize(); err == nil {
					t.ApplyResize(rows, cols)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
