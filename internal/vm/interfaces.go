package vm

import (
	"context"
	"time"

	"github.com/jbweber/corral/api/v1alpha1"
	"github.com/jbweber/corral/internal/process"
)

// Runner executes one command and reports its completion status.
//
// In production, this is satisfied by *process.Detector.
// In tests, this is satisfied by mock implementations.
type Runner interface {
	// Run starts cmd and waits up to timeout for pred to reach a verdict.
	Run(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error)
}

// machineStore defines the persistence operations needed for machine management.
//
// In production, this is satisfied by store.Store[v1alpha1.VagrantMachine].
type machineStore interface {
	// Get returns the machine stored under name, or an errdefs.ErrNotFound error.
	Get(ctx context.Context, name string) (*v1alpha1.VagrantMachine, error)

	// Set stores the machine under name, replacing any existing entry.
	Set(ctx context.Context, name string, m *v1alpha1.VagrantMachine) error

	// Delete removes the machine stored under name.
	Delete(ctx context.Context, name string) error

	// Scan calls fn for every machine whose name starts with prefix.
	Scan(ctx context.Context, prefix string, fn func(name string, m *v1alpha1.VagrantMachine) error) error
}
