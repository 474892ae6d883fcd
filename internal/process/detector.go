package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/containerd/log"
	"github.com/google/uuid"
)

// Detector spawns commands and waits for a predicate verdict on their output.
// The zero value is ready to use and leaves timed-out children running.
type Detector struct {
	// KillOnTimeout kills the child's process group when the deadline
	// passes or ctx is cancelled.
	KillOnTimeout bool
}

// session is the transient state of one Run.
type session struct {
	id     string
	cmd    *exec.Cmd
	pred   Predicate
	stdout *os.File
	stderr *os.File

	// stderrLog receives stderr lines at debug level.
	stderrLog *io.PipeWriter

	exitCode atomic.Pointer[int]
	exited   chan struct{}

	// result receives exactly one value from the scanner.
	result chan Status
}

// Run starts cmd and blocks until pred yields a terminal Status, the
// timeout elapses, or ctx is done. A timeout of zero or less waits without
// a deadline.
//
// If the command cannot be started Run returns StatusFailed and the start
// error. All other outcomes return a nil error: StatusSuccess or
// StatusFailed from the predicate, or StatusTimeout when no verdict arrived
// in time. Output that ends without a verdict is reported as StatusTimeout
// immediately, since no verdict can follow.
func (d *Detector) Run(ctx context.Context, cmd Command, pred Predicate, timeout time.Duration) (Status, error) {
	if len(cmd.args) == 0 {
		return StatusFailed, errors.New("command is required")
	}
	if pred == nil {
		return StatusFailed, errors.New("predicate is required")
	}

	s, err := start(ctx, cmd, pred)
	if err != nil {
		return StatusFailed, err
	}

	logger := log.G(ctx).WithFields(log.Fields{
		"session": s.id,
		"command": cmd.String(),
	})
	logger.WithField("pid", s.cmd.Process.Pid).Debug("started process")

	go s.reap()
	go s.logStderr()
	go s.scan(ctx)

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case status := <-s.result:
		if !status.IsTerminal() {
			logger.Warn("output ended without a verdict")
			return StatusTimeout, nil
		}
		logger.WithField("status", status).Debug("process verdict")
		return status, nil
	case <-deadline:
		logger.WithField("timeout", timeout).Warn("timed out waiting for process verdict")
		d.abandon(ctx, s)
		return StatusTimeout, nil
	case <-ctx.Done():
		logger.WithError(ctx.Err()).Warn("stopped waiting for process verdict")
		d.abandon(ctx, s)
		return StatusTimeout, nil
	}
}

// start spawns the child with stdout and stderr on pipes owned by the
// session. The write ends are handed to the child as *os.File values so
// exec copies nothing itself: cmd.Wait returns as soon as the child exits,
// even while a grandchild still holds either stream.
func start(ctx context.Context, cmd Command, pred Predicate) (*session, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = outR.Close()
		_ = outW.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	c := exec.Command(cmd.args[0], cmd.args[1:]...)
	c.Dir = cmd.dir
	c.Stdout = outW
	c.Stderr = errW
	c.SysProcAttr = sysProcAttr()

	if err := c.Start(); err != nil {
		for _, f := range []*os.File{outR, outW, errR, errW} {
			_ = f.Close()
		}
		return nil, fmt.Errorf("failed to start %q in %s: %w", cmd.String(), cmd.dir, err)
	}
	// The child holds its own copies now.
	_ = outW.Close()
	_ = errW.Close()

	id := uuid.NewString()
	return &session{
		id:        id,
		cmd:       c,
		pred:      pred,
		stdout:    outR,
		stderr:    errR,
		stderrLog: log.G(ctx).WithField("session", id).WriterLevel(log.DebugLevel),
		exited:    make(chan struct{}),
		result:    make(chan Status, 1),
	}, nil
}

// reap waits for the child and publishes its exit code. A child killed by a
// signal reports -1.
func (s *session) reap() {
	_ = s.cmd.Wait()
	code := -1
	if s.cmd.ProcessState != nil {
		code = s.cmd.ProcessState.ExitCode()
	}
	s.exitCode.Store(&code)
	close(s.exited)
}

// logStderr forwards stderr to the logger until every holder of the write
// end has closed it.
func (s *session) logStderr() {
	_, _ = io.Copy(s.stderrLog, s.stderr)
	_ = s.stderr.Close()
	_ = s.stderrLog.Close()
}

// scan reads stdout line by line until the predicate returns a terminal
// Status or the stream ends, then publishes the last computed Status.
func (s *session) scan(ctx context.Context) {
	defer func() { _ = s.stdout.Close() }()

	logger := log.G(ctx).WithField("session", s.id)
	reader := bufio.NewReader(s.stdout)
	status := StatusUnknown

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			status = s.pred(line, s.exitCode.Load())
			logger.WithField("status", status).Trace(line)
			if status.IsTerminal() {
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// One last look once the exit code is known.
				<-s.exited
				status = s.pred("", s.exitCode.Load())
			} else {
				logger.WithError(err).Debug("failed to read process output")
			}
			break
		}
	}

	s.result <- status

	// The child may keep writing after a verdict; drain so it never sees a
	// broken pipe. The predicate is not consulted again.
	if status.IsTerminal() {
		_, _ = io.Copy(io.Discard, reader)
	}
}

// abandon gives up on a session. The scanner is left to finish on its own;
// with KillOnTimeout the child's process group is killed so it does.
func (d *Detector) abandon(ctx context.Context, s *session) {
	if !d.KillOnTimeout {
		return
	}
	select {
	case <-s.exited:
		return
	default:
	}
	if err := killGroup(s.cmd.Process); err != nil {
		log.G(ctx).WithError(err).WithField("session", s.id).Warn("failed to kill timed-out process")
	}
}
