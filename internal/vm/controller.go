package vm

import (
	"context"
	"sync"
	"time"

	"github.com/containerd/log"

	"github.com/jbweber/corral/api/v1alpha1"
	"github.com/jbweber/corral/internal/process"
	"github.com/jbweber/corral/internal/status"
)

const (
	// DefaultTimeout bounds a single vagrant command.
	DefaultTimeout = 15 * time.Minute

	// DefaultBinary is the provisioning tool looked up on PATH.
	DefaultBinary = "vagrant"
)

// Controller drives one Vagrant machine between Stopped, Running and
// Destroyed. Calls to RequestState are serialized.
type Controller struct {
	mu sync.Mutex

	workingDir string
	binary     string
	timeout    time.Duration
	runner     Runner

	state      v1alpha1.RunState
	lastStatus process.Status

	startCmd   process.Command
	stopCmd    process.Command
	destroyCmd process.Command
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout sets the per-command timeout. Zero or negative disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithInitialState seeds the controller with a previously observed state.
func WithInitialState(state v1alpha1.RunState) Option {
	return func(c *Controller) {
		c.state = state
	}
}

// WithBinary sets the vagrant executable.
func WithBinary(path string) Option {
	return func(c *Controller) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithRunner replaces the process detector.
func WithRunner(r Runner) Option {
	return func(c *Controller) {
		if r != nil {
			c.runner = r
		}
	}
}

// NewController creates a Controller for the Vagrantfile in workingDir.
// The machine starts Stopped.
func NewController(workingDir string, opts ...Option) *Controller {
	c := &Controller{
		workingDir: workingDir,
		binary:     DefaultBinary,
		timeout:    DefaultTimeout,
		runner:     &process.Detector{},
		state:      v1alpha1.RunStateStopped,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.startCmd = process.NewCommand(workingDir, c.binary, "up")
	c.stopCmd = process.NewCommand(workingDir, c.binary, "halt")
	c.destroyCmd = process.NewCommand(workingDir, c.binary, "destroy", "-f")
	return c
}

// State returns the current run state.
func (c *Controller) State() v1alpha1.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastStatus returns the outcome of the most recent command, or
// StatusUnknown if no command has run.
func (c *Controller) LastStatus() process.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// CommandFor returns the command line used to reach target, or "" if target
// is not a valid target state.
func (c *Controller) CommandFor(target v1alpha1.RunState) string {
	cmd, _, ok := c.plan(target)
	if !ok {
		return ""
	}
	return cmd.String()
}

// RequestState moves the machine toward target and returns the resulting
// state.
//
// Targets other than Running, Stopped and Destroyed return RunStateUnknown.
// If the current state is not a legal source for target, nothing is run
// and the current state is returned unchanged. Otherwise exactly one vagrant
// command is spawned, and the state becomes target only if it succeeds.
func (c *Controller) RequestState(ctx context.Context, target v1alpha1.RunState) v1alpha1.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := log.G(ctx).WithFields(log.Fields{
		"dir":    c.workingDir,
		"state":  c.state,
		"target": target,
	})

	cmd, pred, ok := c.plan(target)
	if !ok {
		logger.Warn("unsupported target state")
		return v1alpha1.RunStateUnknown
	}
	if !status.CanTransition(c.state, target) {
		logger.Debug("transition not allowed from current state, nothing to do")
		return c.state
	}

	logger.WithField("command", cmd.String()).Info("running vagrant")
	result, err := c.runner.Run(ctx, cmd, pred, c.timeout)
	c.lastStatus = result
	if err != nil {
		logger.WithError(err).Error("failed to start vagrant")
	}

	if result != process.StatusSuccess {
		logger.WithField("status", result).Error("vagrant did not complete successfully")
		return c.state
	}

	c.state = target
	logger.WithField("state", c.state).Info("state changed")
	return c.state
}

// plan maps a target state to its command and predicate.
func (c *Controller) plan(target v1alpha1.RunState) (process.Command, process.Predicate, bool) {
	switch target {
	case v1alpha1.RunStateRunning:
		return c.startCmd, StartPredicate, true
	case v1alpha1.RunStateStopped:
		return c.stopCmd, StopPredicate, true
	case v1alpha1.RunStateDestroyed:
		return c.destroyCmd, DestroyPredicate, true
	default:
		return process.Command{}, nil, false
	}
}
