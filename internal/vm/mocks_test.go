package vm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/containerd/errdefs"

	"github.com/jbweber/corral/api/v1alpha1"
	"github.com/jbweber/corral/internal/process"
)

// runCall records one invocation of mockRunner.Run.
type runCall struct {
	args    []string
	dir     string
	timeout time.Duration
}

// mockRunner is a mock implementation of the Runner interface for testing.
//
// By default it replays output through the predicate the way the detector
// does: each line with a nil exit code, then a final empty line with the
// exit code. An undecided replay reports StatusTimeout.
type mockRunner struct {
	mu sync.Mutex

	// Scripted child behavior, keyed by vagrant subcommand (up, halt, destroy).
	output   map[string][]string
	exitCode map[string]int
	hang     map[string]bool

	// runFunc overrides the replay entirely when set.
	runFunc func(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error)

	calls []runCall
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		output:   make(map[string][]string),
		exitCode: make(map[string]int),
		hang:     make(map[string]bool),
	}
}

// script sets the output and exit code for a subcommand.
func (m *mockRunner) script(sub string, exitCode int, lines ...string) *mockRunner {
	m.output[sub] = lines
	m.exitCode[sub] = exitCode
	return m
}

func (m *mockRunner) Run(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error) {
	m.mu.Lock()
	m.calls = append(m.calls, runCall{args: cmd.Args(), dir: cmd.Dir(), timeout: timeout})
	m.mu.Unlock()

	if m.runFunc != nil {
		return m.runFunc(ctx, cmd, pred, timeout)
	}

	args := cmd.Args()
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	for _, line := range m.output[sub] {
		if st := pred(line, nil); st.IsTerminal() {
			return st, nil
		}
	}
	if m.hang[sub] {
		return process.StatusTimeout, nil
	}

	code := m.exitCode[sub]
	if st := pred("", &code); st.IsTerminal() {
		return st, nil
	}
	return process.StatusTimeout, nil
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockRunner) lastCall() runCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return runCall{}
	}
	return m.calls[len(m.calls)-1]
}

// mockMachineStore is a mock implementation of the machineStore interface
// that can inject failures into an otherwise working map.
type mockMachineStore struct {
	mu       sync.Mutex
	machines map[string]*v1alpha1.VagrantMachine

	getErr    error
	setErr    error
	deleteErr error
	scanErr   error

	setCalls int
}

func newMockMachineStore(machines ...*v1alpha1.VagrantMachine) *mockMachineStore {
	s := &mockMachineStore{machines: make(map[string]*v1alpha1.VagrantMachine)}
	for _, m := range machines {
		s.machines[m.Name] = m.DeepCopy()
	}
	return s
}

func (s *mockMachineStore) Get(ctx context.Context, name string) (*v1alpha1.VagrantMachine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	m, ok := s.machines[name]
	if !ok {
		return nil, errNotFound(name)
	}
	return m.DeepCopy(), nil
}

func (s *mockMachineStore) Set(ctx context.Context, name string, m *v1alpha1.VagrantMachine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.machines[name] = m.DeepCopy()
	return nil
}

func (s *mockMachineStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.machines, name)
	return nil
}

func (s *mockMachineStore) Scan(ctx context.Context, prefix string, fn func(name string, m *v1alpha1.VagrantMachine) error) error {
	s.mu.Lock()
	if s.scanErr != nil {
		s.mu.Unlock()
		return s.scanErr
	}
	snapshot := make(map[string]*v1alpha1.VagrantMachine, len(s.machines))
	for k, v := range s.machines {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		snapshot[k] = v.DeepCopy()
	}
	s.mu.Unlock()

	for k, v := range snapshot {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func errNotFound(name string) error {
	return fmt.Errorf("%q: %w", name, errdefs.ErrNotFound)
}
