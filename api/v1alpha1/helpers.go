package v1alpha1

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// GroupName is the API group for corral resources.
	GroupName = "corral.cofront.xyz"

	// Version is the API version.
	Version = "v1alpha1"

	// VagrantMachineKind is the kind string for VagrantMachine resources.
	VagrantMachineKind = "VagrantMachine"
)

// NewVagrantMachine creates a VagrantMachine with TypeMeta and ObjectMeta
// defaults. New machines start Stopped.
func NewVagrantMachine(name, workingDir string) *VagrantMachine {
	now := Time{Time: time.Now()}

	return &VagrantMachine{
		TypeMeta: TypeMeta{
			APIVersion: GroupName + "/" + Version,
			Kind:       VagrantMachineKind,
		},
		ObjectMeta: ObjectMeta{
			Name:              name,
			UID:               uuid.New().String(),
			CreationTimestamp: now,
			Generation:        1,
		},
		Spec: VagrantMachineSpec{
			WorkingDir: workingDir,
		},
		Status: VagrantMachineStatus{
			State: RunStateStopped,
		},
	}
}

// SetDefaultAPIVersion ensures the machine has the correct apiVersion and kind.
func SetDefaultAPIVersion(m *VagrantMachine) {
	if m.APIVersion == "" {
		m.APIVersion = GroupName + "/" + Version
	}
	if m.Kind == "" {
		m.Kind = VagrantMachineKind
	}
}

// EnsureIdentity fills UID and CreationTimestamp if they are missing, as is
// the case for machines loaded from a hand-written manifest.
func (m *VagrantMachine) EnsureIdentity() {
	if m.UID == "" {
		m.UID = uuid.New().String()
	}
	if m.CreationTimestamp.IsZero() {
		m.CreationTimestamp = Time{Time: time.Now()}
	}
	if m.Generation == 0 {
		m.Generation = 1
	}
}

// GetState returns the current run state, treating an empty value as Stopped.
func (m *VagrantMachine) GetState() RunState {
	if m.Status.State == "" {
		return RunStateStopped
	}
	return m.Status.State
}

// SetState records a new run state. LastTransitionTime only moves when the
// state actually changes.
func (m *VagrantMachine) SetState(state RunState) {
	if m.Status.State != state {
		m.Status.LastTransitionTime = Time{Time: time.Now()}
	}
	m.Status.State = state
}

// Timeout returns the per-command timeout from the spec, or fallback when
// the spec leaves it unset. A zero or negative spec value means no deadline
// and is returned as zero.
func (m *VagrantMachine) Timeout(fallback time.Duration) time.Duration {
	switch {
	case m.Spec.TimeoutMillis == nil:
		return fallback
	case *m.Spec.TimeoutMillis > 0:
		return time.Duration(*m.Spec.TimeoutMillis) * time.Millisecond
	default:
		return 0
	}
}

// SetTimeout stores d as spec.timeoutMillis. Zero or negative disables the
// deadline for this machine.
func (m *VagrantMachine) SetTimeout(d time.Duration) {
	millis := d.Milliseconds()
	if d <= 0 {
		millis = 0
	}
	m.Spec.TimeoutMillis = &millis
}

// Manifest returns a copy of m that register accepts: metadata, spec and the
// current state, without the operation history.
func (m *VagrantMachine) Manifest() *VagrantMachine {
	out := m.DeepCopy()
	out.Status = VagrantMachineStatus{State: m.GetState()}
	return out
}

// UpdateObservedGeneration updates status.observedGeneration to match metadata.generation.
func (m *VagrantMachine) UpdateObservedGeneration() {
	m.Status.ObservedGeneration = m.Generation
}

// Normalize sanitizes user input to consistent formats.
func (m *VagrantMachine) Normalize() {
	m.Name = strings.ToLower(strings.TrimSpace(m.Name))
	m.Spec.WorkingDir = strings.TrimSpace(m.Spec.WorkingDir)
}

// ParseRunState maps a case-insensitive state name to a RunState.
// Unrecognized names yield RunStateUnknown.
func ParseRunState(s string) RunState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stopped":
		return RunStateStopped
	case "running":
		return RunStateRunning
	case "destroyed":
		return RunStateDestroyed
	default:
		return RunStateUnknown
	}
}
