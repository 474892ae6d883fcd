// Package v1alpha1 contains API types for corral.cofront.xyz/v1alpha1.
//
// The types follow Kubernetes API conventions (TypeMeta, ObjectMeta,
// Conditions) without depending on k8s.io/apimachinery.
package v1alpha1

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// TypeMeta describes an individual object's type and API version.
type TypeMeta struct {
	// Kind is the resource kind, e.g. VagrantMachine.
	// +optional
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// APIVersion is the versioned schema of this representation of an object.
	// +optional
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
}

// ObjectMeta is metadata that all persisted resources must have.
type ObjectMeta struct {
	// Name is unique per state database. Required.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// CreationTimestamp is set when the machine is first registered.
	// +optional
	CreationTimestamp Time `json:"creationTimestamp,omitempty" yaml:"creationTimestamp,omitempty"`

	// UID is assigned on registration and never changes.
	// +optional
	UID string `json:"uid,omitempty" yaml:"uid,omitempty"`

	// Generation increments whenever the spec is replaced.
	// +optional
	Generation int64 `json:"generation,omitempty" yaml:"generation,omitempty"`
}

// Time wraps time.Time for RFC3339 JSON/YAML serialization.
type Time struct {
	time.Time `json:"-" yaml:"-"`
}

// MarshalJSON implements the json.Marshaler interface.
// Zero values encode as null.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" || string(b) == `""` {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (t Time) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Time.Format(time.RFC3339), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "" || node.Value == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, node.Value)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Condition records one aspect of a machine's observed state.
type Condition struct {
	// Type of condition in CamelCase, e.g. Ready.
	Type string `json:"type" yaml:"type"`

	// Status of the condition, one of True, False, Unknown.
	Status ConditionStatus `json:"status" yaml:"status"`

	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`

	// LastTransitionTime only moves when Status changes.
	// +optional
	LastTransitionTime Time `json:"lastTransitionTime,omitempty" yaml:"lastTransitionTime,omitempty"`

	// Reason is a CamelCase identifier for the last transition.
	// +optional
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Message is a human-readable detail.
	// +optional
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ConditionStatus represents the status of a condition.
type ConditionStatus string

const (
	// ConditionTrue means a resource is in the condition.
	ConditionTrue ConditionStatus = "True"
	// ConditionFalse means a resource is not in the condition.
	ConditionFalse ConditionStatus = "False"
	// ConditionUnknown means it cannot be decided.
	ConditionUnknown ConditionStatus = "Unknown"
)
