package launcher

import (
	"errors"
	"log"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"code.linksmart.eu/dt/sensor-fleet/model"
)

// Launcher starts processes and reports their lifecycle on the bus
type Launcher struct {
	RunID string
	Bus   *Bus
}

// Handle is a launched process. The process is reaped in the background,
// so a handle that is never awaited does not leave a zombie behind.
type Handle struct {
	Command
	PID int

	cmd        *exec.Cmd
	done       chan struct{}
	exitCode   int
	err        error
	terminated atomic.Bool
}

// Launch starts the command without waiting for it.
// The process is put into its own session so that it outlives the harness.
func (l *Launcher) Launch(c Command) (*Handle, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if c.Truncate {
		flags |= os.O_TRUNC
	}
	logFile, err := os.OpenFile(c.Log, flags, 0644)
	if err != nil {
		return nil, &model.ProcessSpawnError{Path: c.Path, Dir: c.Dir, Err: err}
	}
	// the child holds its own descriptor
	defer logFile.Close()

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{}
	cmd.SysProcAttr.Setsid = true

	err = cmd.Start()
	if err != nil {
		return nil, &model.ProcessSpawnError{Path: c.Path, Dir: c.Dir, Err: err}
	}

	h := &Handle{
		Command:  c,
		PID:      cmd.Process.Pid,
		cmd:      cmd,
		done:     make(chan struct{}),
		exitCode: -1,
	}
	log.Printf("launcher: Started %s (pid %d): %s %v", c.Name(), h.PID, c.Path, c.Args)
	l.Bus.Publish(model.Event{
		Type:  model.EventLaunched,
		RunID: l.RunID,
		Role:  c.Role,
		Index: c.Index,
		PID:   h.PID,
		Time:  time.Now(),
	})

	go l.reap(h)
	return h, nil
}

func (l *Launcher) reap(h *Handle) {
	err := h.cmd.Wait()
	if h.cmd.ProcessState != nil {
		h.exitCode = h.cmd.ProcessState.ExitCode()
	}
	h.err = err
	close(h.done)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		log.Printf("launcher: Error waiting for %s (pid %d): %s", h.Name(), h.PID, err)
	}

	e := model.Event{
		Type:     model.EventExited,
		RunID:    l.RunID,
		Role:     h.Role,
		Index:    h.Index,
		PID:      h.PID,
		ExitCode: h.exitCode,
		Time:     time.Now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	l.Bus.Publish(e)
}

// Done is closed when the process has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process exits. The error is an *exec.ExitError
// for a non-zero exit status.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Exited reports whether the process has ended, without blocking
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit status, or -1 while running or when killed by a signal
func (h *Handle) ExitCode() int {
	if !h.Exited() {
		return -1
	}
	return h.exitCode
}

// Terminate sends SIGTERM to the process group of the process.
// It does nothing once the process has exited.
func (h *Handle) Terminate() error {
	if h.Exited() {
		return nil
	}
	err := syscall.Kill(-h.PID, syscall.SIGTERM)
	if err == syscall.ESRCH {
		return nil
	}
	if err != nil {
		return err
	}
	h.terminated.Store(true)
	return nil
}

// Terminated reports whether the harness sent SIGTERM to the process
func (h *Handle) Terminated() bool {
	return h.terminated.Load()
}
