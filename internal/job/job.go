// Package job implements the PTY-backed job supervisor of spec.md §4.I: a
// table of background commands, each running under its own pseudo-terminal
// with a logger draining its output to disk, with foreground attach/detach
// support. Grounded on Gaurav-Gosain-tuios/internal/terminal/window.go's
// xpty.NewPty/ptyInstance.Start/xpty.WaitProcess lifecycle, adapted from a
// single persistent terminal window into a table of short-lived background
// jobs, and from window.go's goroutine-pair I/O pumps into a single logger
// goroutine per job plus an on-demand attach loop.
//
// The original fork/exec/setsid/TIOCSCTTY sequence from spec.md is carried
// by xpty.Pty.Start, which configures the child's controlling terminal via
// exec.Cmd.SysProcAttr (see job_unix.go), matching
// Gaurav-Gosain-tuios/internal/session/pty_unix.go's configurePTYCommand.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/xpty"
	"github.com/google/uuid"
)

// ErrUnknownJob is returned by operations that reference a job id not
// present in the table.
var ErrUnknownJob = errors.New("job: unknown id")

// ErrNotAttachable is returned by Attach when the job is not running or has
// no PTY to proxy.
var ErrNotAttachable = errors.New("job: not running or has no pty")

// Status is a job's lifecycle state.
type Status int

const (
	StatusRunning Status = iota
	StatusExited
)

func (s Status) String() string {
	if s == StatusExited {
		return "exited"
	}
	return "running"
}

// Options configures Start. Log must be true for output to go to a log
// file; when false, including in the zero value Options{}, output is
// discarded to /dev/null.
type Options struct {
	Log     bool
	LogPath string // overrides the default /tmp/<uuid>.log when Log is true
}

// Job is one entry in a Supervisor's table.
type Job struct {
	ID         int64
	Cmd        string
	Args       []string
	LogPath    string
	StartedAt  time.Time
	FinishedAt time.Time

	pty xpty.Pty
	cmd *exec.Cmd

	mu         sync.Mutex
	status     Status
	exitStatus int
	exitAcked  bool

	logDone chan struct{}

	teeMu sync.Mutex
	tee   io.Writer // set by Attach; the logger mirrors every read to it
}

// Status reports the job's current lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// ExitStatus reports the job's exit status. Valid only once Status is
// StatusExited: 0 success, 127 exec failure, 128+sig for signal deaths, per
// POSIX convention.
func (j *Job) ExitStatus() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exitStatus
}

func (j *Job) ackExit() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusExited || j.exitAcked {
		return false
	}
	j.exitAcked = true
	return true
}

// setTee installs (or clears, with a nil w) an additional destination the
// logger mirrors every chunk to, letting Attach observe the PTY's output
// without a second, competing reader of the master.
func (j *Job) setTee(w io.Writer) {
	j.teeMu.Lock()
	j.tee = w
	j.teeMu.Unlock()
}

func (j *Job) getTee() io.Writer {
	j.teeMu.Lock()
	defer j.teeMu.Unlock()
	return j.tee
}

func (j *Job) runLogger(w io.WriteCloser) {
	defer w.Close()
	defer close(j.logDone)
	buf := make([]byte, 4096)
	for {
		n, err := j.pty.Read(buf)
		if n > 0 {
			_, _ = w.Write(buf[:n])
			if tee := j.getTee(); tee != nil {
				_, _ = tee.Write(buf[:n])
			}
		}
		if err != nil {
			return
		}
	}
}

func (j *Job) run(ctx context.Context) {
	err := xpty.WaitProcess(ctx, j.cmd)
	status := exitStatusFromError(err)
	_ = j.pty.Close()
	<-j.logDone

	j.mu.Lock()
	j.status = StatusExited
	j.exitStatus = status
	j.FinishedAt = time.Now()
	j.mu.Unlock()
}

func exitStatusFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 127
}

// Supervisor owns the job table: insertion-ordered, keyed by a monotonic id.
type Supervisor struct {
	mu     sync.Mutex
	jobs   map[int64]*Job
	order  []int64
	nextID int64
}

// NewSupervisor returns an empty job table.
func NewSupervisor() *Supervisor {
	return &Supervisor{jobs: make(map[int64]*Job)}
}

// Start opens a PTY, launches command/args attached to its slave as the
// child's controlling terminal, and spawns a logger draining the master to
// opts.LogPath (default /tmp/<uuid>.log, or /dev/null when opts.Log is
// false). The returned Job is already inserted into the table.
func (s *Supervisor) Start(ctx context.Context, command string, args []string, opts Options) (*Job, error) {
	pty, err := xpty.NewPty(80, 24)
	if err != nil {
		return nil, fmt.Errorf("job: open pty: %w", err)
	}

	cmd := exec.Command(command, args...)
	cmd.Env = os.Environ()
	configurePTYCommand(cmd)

	if err := pty.Start(cmd); err != nil {
		_ = pty.Close()
		return nil, fmt.Errorf("job: start %s: %w", command, err)
	}

	logPath := opts.LogPath
	switch {
	case !opts.Log:
		logPath = os.DevNull
	case logPath == "":
		logPath = filepath.Join(os.TempDir(), uuid.NewString()+".log")
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		_ = pty.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("job: open log %s: %w", logPath, err)
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	j := &Job{
		ID:        id,
		Cmd:       command,
		Args:      args,
		LogPath:   logPath,
		StartedAt: time.Now(),
		status:    StatusRunning,
		pty:       pty,
		cmd:       cmd,
		logDone:   make(chan struct{}),
	}

	go j.runLogger(logFile)
	go j.run(ctx)

	s.mu.Lock()
	s.jobs[id] = j
	s.order = append(s.order, id)
	s.mu.Unlock()

	return j, nil
}

// List returns jobs in insertion order.
func (s *Supervisor) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.order))
	for _, id := range s.order {
		if j, ok := s.jobs[id]; ok {
			out = append(out, j)
		}
	}
	return out
}

// Reap drops every exited entry from the table.
func (s *Supervisor) Reap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Status() == StatusExited {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Poll returns jobs that have transitioned to exited since the last Poll
// call, so a caller can report "[n] Done" exactly once per job.
func (s *Supervisor) Poll() []*Job {
	s.mu.Lock()
	order := append([]int64(nil), s.order...)
	jobs := make(map[int64]*Job, len(s.jobs))
	for k, v := range s.jobs {
		jobs[k] = v
	}
	s.mu.Unlock()

	var done []*Job
	for _, id := range order {
		j := jobs[id]
		if j.ackExit() {
			done = append(done, j)
		}
	}
	return done
}

// Wait blocks until the job exits, polling its status with a short sleep,
// and returns the final exit status. A convenience on top of Get/Status for
// callers (tests, cmd/demo) that want synchronous semantics without
// hand-rolling a poll loop.
func (s *Supervisor) Wait(ctx context.Context, id int64) (int, error) {
	for {
		j, err := s.Get(id)
		if err != nil {
			return 0, err
		}
		if j.Status() == StatusExited {
			return j.ExitStatus(), nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Kill sends sig (default SIGTERM) to the job's worker process.
func (s *Supervisor) Kill(id int64, sig syscall.Signal) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	if sig == 0 {
		sig = syscall.SIGTERM
	}
	if j.cmd.Process == nil {
		return nil
	}
	return j.cmd.Process.Signal(sig)
}

// Get looks up a job by id.
func (s *Supervisor) Get(id int64) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrUnknownJob
	}
	return j, nil
}

// Attach takes the foreground: it mirrors the job's PTY output to out (via
// the existing logger's read loop, so the logger keeps running rather than
// being suspended) and proxies in (terminal stdin) to the PTY master,
// until the job exits, ctx is cancelled, or a detach byte (detachKey) is
// read from in.
func (s *Supervisor) Attach(ctx context.Context, id int64, in io.Reader, out io.Writer) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	if j.Status() != StatusRunning || j.pty == nil {
		return ErrNotAttachable
	}

	j.setTee(out)
	defer j.setTee(nil)

	detach := detachKey()
	errCh := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := in.Read(buf)
			if n > 0 && buf[0] == detach {
				close(done)
				return
			}
			if n > 0 {
				if _, werr := j.pty.Write(buf[:1]); werr != nil {
					errCh <- werr
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	select {
	case <-done:
		return nil
	case err := <-errCh:
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-j.logDone:
		return nil // the job's output stream ended while attached
	case <-ctx.Done():
		return ctx.Err()
	}
}

// detachKey reads LILUSH_JOB_DETACH_KEY (an ASCII code), defaulting to 29
// (Ctrl-]).
func detachKey() byte {
	if v := os.Getenv("LILUSH_JOB_DETACH_KEY"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n >= 0 && n < 256 {
			return byte(n)
		}
	}
	return 29
}
