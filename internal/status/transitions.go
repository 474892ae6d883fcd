package status

import (
	"github.com/jbweber/corral/api/v1alpha1"
)

// sources lists, per target state, the states it may be reached from.
var sources = map[v1alpha1.RunState][]v1alpha1.RunState{
	v1alpha1.RunStateRunning:   {v1alpha1.RunStateStopped},
	v1alpha1.RunStateStopped:   {v1alpha1.RunStateRunning},
	v1alpha1.RunStateDestroyed: {v1alpha1.RunStateRunning, v1alpha1.RunStateStopped},
}

// IsTarget returns true if state can be requested at all.
func IsTarget(state v1alpha1.RunState) bool {
	_, ok := sources[state]
	return ok
}

// CanTransition returns true if a machine in state from may move to state to.
// The only legal edges are Stopped→Running, Running→Stopped, Running→Destroyed
// and Stopped→Destroyed.
func CanTransition(from, to v1alpha1.RunState) bool {
	for _, s := range sources[to] {
		if s == from {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no transition leaves state.
func IsTerminal(state v1alpha1.RunState) bool {
	return state == v1alpha1.RunStateDestroyed
}
