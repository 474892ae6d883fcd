// Package status manages VagrantMachine status: the legal run-state
// transitions and the conditions recorded after each vagrant command.
package status

import (
	"time"

	"github.com/jbweber/corral/api/v1alpha1"
)

// SetCondition adds or updates a condition in the machine status.
// LastTransitionTime is only updated if the status changes.
func SetCondition(m *v1alpha1.VagrantMachine, condType string, status v1alpha1.ConditionStatus, reason, message string) {
	now := v1alpha1.Time{Time: time.Now()}

	for i := range m.Status.Conditions {
		if m.Status.Conditions[i].Type == condType {
			existing := &m.Status.Conditions[i]
			if existing.Status != status {
				existing.LastTransitionTime = now
			}
			existing.Status = status
			existing.Reason = reason
			existing.Message = message
			existing.ObservedGeneration = m.Generation
			return
		}
	}

	m.Status.Conditions = append(m.Status.Conditions, v1alpha1.Condition{
		Type:               condType,
		Status:             status,
		ObservedGeneration: m.Generation,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(m *v1alpha1.VagrantMachine, condType string) *v1alpha1.Condition {
	for i := range m.Status.Conditions {
		if m.Status.Conditions[i].Type == condType {
			return &m.Status.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(m *v1alpha1.VagrantMachine, condType string) bool {
	cond := GetCondition(m, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionTrue
}

// RemoveCondition removes a condition by type.
func RemoveCondition(m *v1alpha1.VagrantMachine, condType string) {
	filtered := make([]v1alpha1.Condition, 0, len(m.Status.Conditions))
	for i := range m.Status.Conditions {
		if m.Status.Conditions[i].Type != condType {
			filtered = append(filtered, m.Status.Conditions[i])
		}
	}
	m.Status.Conditions = filtered
}

// MarkState sets the run state and the Ready condition that mirrors it.
func MarkState(m *v1alpha1.VagrantMachine, state v1alpha1.RunState) {
	m.SetState(state)
	switch state {
	case v1alpha1.RunStateRunning:
		SetCondition(m, v1alpha1.ConditionReady, v1alpha1.ConditionTrue, "Running", "vagrant up completed")
	case v1alpha1.RunStateStopped:
		SetCondition(m, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, "Stopped", "machine is halted")
	case v1alpha1.RunStateDestroyed:
		SetCondition(m, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, "Destroyed", "machine has been destroyed")
	default:
		SetCondition(m, v1alpha1.ConditionReady, v1alpha1.ConditionUnknown, "Unknown", "state could not be determined")
	}
	m.UpdateObservedGeneration()
}

// RecordOperation stores the outcome of a vagrant command. outcome is the
// process status name (SUCCESS, FAILED, TIMEOUT); command is the command line.
func RecordOperation(m *v1alpha1.VagrantMachine, command, outcome string, succeeded bool) {
	m.Status.LastProcessStatus = outcome

	status := v1alpha1.ConditionFalse
	if succeeded {
		status = v1alpha1.ConditionTrue
	}
	SetCondition(m, v1alpha1.ConditionLastOperation, status, reasonFor(outcome), command)
}

// reasonFor turns an upper-case process status into a CamelCase reason.
func reasonFor(outcome string) string {
	switch outcome {
	case "SUCCESS":
		return "Succeeded"
	case "FAILED":
		return "Failed"
	case "TIMEOUT":
		return "TimedOut"
	case "":
		return "NotRun"
	default:
		return "Unknown"
	}
}
