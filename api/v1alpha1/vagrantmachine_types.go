package v1alpha1

// VagrantMachine is a virtual machine whose lifecycle is driven through the
// vagrant CLI in a fixed working directory.
//
// Spec holds how to reach the machine; Status holds the last state corral
// observed. Status is only advanced after a vagrant command is detected as
// successful.
type VagrantMachine struct {
	TypeMeta `json:",inline" yaml:",inline"`

	// +optional
	ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Spec VagrantMachineSpec `json:"spec" yaml:"spec"`

	// +optional
	Status VagrantMachineStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// VagrantMachineSpec defines where and how vagrant is invoked for a machine.
type VagrantMachineSpec struct {
	// WorkingDir is the directory containing the Vagrantfile. Every vagrant
	// command runs with this as its current directory.
	WorkingDir string `json:"workingDir" yaml:"workingDir"`

	// TimeoutMillis bounds how long a single up/halt/destroy may run before
	// it is reported as a timeout. Unset falls back to the global default;
	// zero or negative waits forever.
	// +optional
	TimeoutMillis *int64 `json:"timeoutMillis,omitempty" yaml:"timeoutMillis,omitempty"`
}

// VagrantMachineStatus is the observed state of a VagrantMachine.
type VagrantMachineStatus struct {
	// State is the last-known logical lifecycle stage.
	// +optional
	State RunState `json:"state,omitempty" yaml:"state,omitempty"`

	// LastProcessStatus is the outcome of the most recent vagrant command,
	// e.g. SUCCESS or TIMEOUT.
	// +optional
	LastProcessStatus string `json:"lastProcessStatus,omitempty" yaml:"lastProcessStatus,omitempty"`

	// LastTransitionTime is when State last changed.
	// +optional
	LastTransitionTime Time `json:"lastTransitionTime,omitempty" yaml:"lastTransitionTime,omitempty"`

	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`

	// +optional
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// RunState is the logical lifecycle stage of a machine.
type RunState string

const (
	// RunStateStopped means the machine exists but is halted. It is the
	// initial state of every controller.
	RunStateStopped RunState = "Stopped"

	// RunStateRunning means vagrant up completed successfully.
	RunStateRunning RunState = "Running"

	// RunStateDestroyed means vagrant destroy completed. Terminal.
	RunStateDestroyed RunState = "Destroyed"

	// RunStateUnknown is returned for requests that name no valid target.
	RunStateUnknown RunState = "Unknown"
)

// Condition types
const (
	// ConditionReady is True while the machine is Running.
	ConditionReady = "Ready"

	// ConditionLastOperation records the outcome of the last vagrant command.
	ConditionLastOperation = "LastOperation"
)

// DeepCopy creates a deep copy of the VagrantMachine.
func (in *VagrantMachine) DeepCopy() *VagrantMachine {
	if in == nil {
		return nil
	}
	out := new(VagrantMachine)
	out.TypeMeta = in.TypeMeta
	out.ObjectMeta = in.ObjectMeta
	out.Spec = in.Spec
	if in.Spec.TimeoutMillis != nil {
		millis := *in.Spec.TimeoutMillis
		out.Spec.TimeoutMillis = &millis
	}
	out.Status = *in.Status.DeepCopy()
	return out
}

// DeepCopy creates a deep copy of VagrantMachineStatus.
func (in *VagrantMachineStatus) DeepCopy() *VagrantMachineStatus {
	if in == nil {
		return nil
	}
	out := new(VagrantMachineStatus)
	*out = *in
	if in.Conditions != nil {
		out.Conditions = make([]Condition, len(in.Conditions))
		copy(out.Conditions, in.Conditions)
	}
	return out
}
