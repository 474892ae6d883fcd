package vm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"

	"github.com/jbweber/corral/api/v1alpha1"
	"github.com/jbweber/corral/internal/process"
	"github.com/jbweber/corral/internal/status"
	"github.com/jbweber/corral/internal/store"
)

// machinesBucket is the bolt bucket holding VagrantMachine records.
const machinesBucket = "machines"

// ErrTransitionFailed is returned when vagrant ran but the machine did not
// reach the requested state.
var ErrTransitionFailed = errors.New("transition failed")

// TransitionOptions configures how Transition builds its Controller.
type TransitionOptions struct {
	// DefaultTimeout applies when the machine spec sets no timeout.
	// Zero means DefaultTimeout; negative disables the deadline.
	DefaultTimeout time.Duration

	// Timeout, when non-zero, replaces both the machine spec timeout and
	// DefaultTimeout for this transition. Negative disables the deadline.
	Timeout time.Duration

	// Binary is the vagrant executable. Empty means DefaultBinary.
	Binary string

	// Runner replaces the process detector. Nil uses a Detector with
	// KillOnTimeout from this struct.
	Runner Runner

	// KillOnTimeout is passed to the default Detector.
	KillOnTimeout bool
}

func openStore(dbPath string) (store.Store[v1alpha1.VagrantMachine], error) {
	st, err := store.NewBoltStore[v1alpha1.VagrantMachine](dbPath, machinesBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return st, nil
}

func closeStore(ctx context.Context, st store.Store[v1alpha1.VagrantMachine]) {
	if err := st.Close(); err != nil {
		log.G(ctx).WithError(err).Warn("failed to close state database")
	}
}

// Transition loads the machine name from the state database at dbPath,
// requests target, and persists the outcome.
//
// The returned machine reflects the state after the attempt. A nil error
// means the machine is now in target, whether or not a command had to run.
func Transition(ctx context.Context, dbPath, name string, target v1alpha1.RunState, opts TransitionOptions) (*v1alpha1.VagrantMachine, error) {
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer closeStore(ctx, st)

	return transitionWithDeps(ctx, st, name, target, opts)
}

// transitionWithDeps requests a state change with injected dependencies.
func transitionWithDeps(ctx context.Context, ms machineStore, name string, target v1alpha1.RunState, opts TransitionOptions) (*v1alpha1.VagrantMachine, error) {
	if !status.IsTarget(target) {
		return nil, fmt.Errorf("unsupported target state %q: %w", target, errdefs.ErrInvalidArgument)
	}

	m, err := ms.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load machine %q: %w", name, err)
	}

	fallback := opts.DefaultTimeout
	switch {
	case fallback == 0:
		fallback = DefaultTimeout
	case fallback < 0:
		fallback = 0
	}

	timeout := m.Timeout(fallback)
	switch {
	case opts.Timeout > 0:
		timeout = opts.Timeout
	case opts.Timeout < 0:
		timeout = 0
	}

	runner := opts.Runner
	if runner == nil {
		runner = &process.Detector{KillOnTimeout: opts.KillOnTimeout}
	}

	ctrl := NewController(m.Spec.WorkingDir,
		WithInitialState(m.GetState()),
		WithTimeout(timeout),
		WithBinary(opts.Binary),
		WithRunner(runner),
	)

	before := ctrl.State()
	if before == target {
		return m, nil
	}

	result := ctrl.RequestState(ctx, target)
	outcome := ctrl.LastStatus()
	ran := outcome != process.StatusUnknown

	if ran {
		status.RecordOperation(m, ctrl.CommandFor(target), outcome.String(), outcome == process.StatusSuccess)
	}
	if result != before {
		status.MarkState(m, result)
	}
	if ran || result != before {
		if err := ms.Set(ctx, name, m); err != nil {
			return m, fmt.Errorf("failed to save machine %q: %w", name, err)
		}
	}

	if result == target {
		return m, nil
	}
	if !ran {
		if status.IsTerminal(before) {
			return m, fmt.Errorf("machine %q is %s; forget and register it again: %w", name, before, errdefs.ErrFailedPrecondition)
		}
		return m, fmt.Errorf("cannot move machine %q from %s to %s: %w", name, before, target, errdefs.ErrFailedPrecondition)
	}
	return m, fmt.Errorf("%s for machine %q finished with %s: %w", ctrl.CommandFor(target), name, outcome, ErrTransitionFailed)
}

// Register adds a machine to the state database. It fails if a machine with
// the same name is already registered.
func Register(ctx context.Context, dbPath string, m *v1alpha1.VagrantMachine) error {
	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore(ctx, st)

	return registerWithDeps(ctx, st, m)
}

func registerWithDeps(ctx context.Context, ms machineStore, m *v1alpha1.VagrantMachine) error {
	m.Normalize()
	if m.Name == "" {
		return fmt.Errorf("machine name is required: %w", errdefs.ErrInvalidArgument)
	}

	_, err := ms.Get(ctx, m.Name)
	switch {
	case err == nil:
		return fmt.Errorf("machine %q: %w", m.Name, errdefs.ErrAlreadyExists)
	case !errdefs.IsNotFound(err):
		return fmt.Errorf("failed to check machine %q: %w", m.Name, err)
	}

	v1alpha1.SetDefaultAPIVersion(m)
	m.EnsureIdentity()
	// Manifests exported with get -o yaml carry the previous owner's history.
	m.Status.LastProcessStatus = ""
	status.RemoveCondition(m, v1alpha1.ConditionLastOperation)
	status.MarkState(m, m.GetState())

	if err := ms.Set(ctx, m.Name, m); err != nil {
		return fmt.Errorf("failed to save machine %q: %w", m.Name, err)
	}
	log.G(ctx).WithFields(log.Fields{
		"machine": m.Name,
		"state":   m.GetState(),
	}).Info("registered machine")
	return nil
}

// Forget removes a machine from the state database without running vagrant.
func Forget(ctx context.Context, dbPath, name string) error {
	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore(ctx, st)

	return forgetWithDeps(ctx, st, name)
}

func forgetWithDeps(ctx context.Context, ms machineStore, name string) error {
	if _, err := ms.Get(ctx, name); err != nil {
		return fmt.Errorf("failed to load machine %q: %w", name, err)
	}
	if err := ms.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete machine %q: %w", name, err)
	}
	return nil
}

// Get returns a single registered machine.
func Get(ctx context.Context, dbPath, name string) (*v1alpha1.VagrantMachine, error) {
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer closeStore(ctx, st)

	m, err := st.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load machine %q: %w", name, err)
	}
	return m, nil
}

// List returns all registered machines sorted by name.
func List(ctx context.Context, dbPath string) ([]*v1alpha1.VagrantMachine, error) {
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer closeStore(ctx, st)

	return listWithDeps(ctx, st)
}

func listWithDeps(ctx context.Context, ms machineStore) ([]*v1alpha1.VagrantMachine, error) {
	machines := []*v1alpha1.VagrantMachine{}
	err := ms.Scan(ctx, "", func(_ string, m *v1alpha1.VagrantMachine) error {
		machines = append(machines, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	sort.Slice(machines, func(i, j int) bool {
		return machines[i].Name < machines[j].Name
	})
	return machines, nil
}
