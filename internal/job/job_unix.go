//go:build unix || linux || darwin || freebsd || openbsd || netbsd

package job

import (
	"os/exec"
	"syscall"
)

// configurePTYCommand arranges for the child to start a new session and
// acquire the PTY slave (fd 0) as its controlling terminal via TIOCSCTTY,
// per spec.md §4.I step 2. Grounded on
// Gaurav-Gosain-tuios/internal/session/pty_unix.go.
func configurePTYCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}
}
