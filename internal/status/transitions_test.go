package status

import (
	"testing"

	"github.com/jbweber/corral/api/v1alpha1"
)

func TestCanTransition(t *testing.T) {
	states := []v1alpha1.RunState{
		v1alpha1.RunStateStopped,
		v1alpha1.RunStateRunning,
		v1alpha1.RunStateDestroyed,
		v1alpha1.RunStateUnknown,
	}

	allowed := map[[2]v1alpha1.RunState]bool{
		{v1alpha1.RunStateStopped, v1alpha1.RunStateRunning}:   true,
		{v1alpha1.RunStateRunning, v1alpha1.RunStateStopped}:   true,
		{v1alpha1.RunStateRunning, v1alpha1.RunStateDestroyed}: true,
		{v1alpha1.RunStateStopped, v1alpha1.RunStateDestroyed}: true,
	}

	for _, from := range states {
		for _, to := range states {
			want := allowed[[2]v1alpha1.RunState{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsTarget(t *testing.T) {
	tests := []struct {
		state v1alpha1.RunState
		want  bool
	}{
		{v1alpha1.RunStateRunning, true},
		{v1alpha1.RunStateStopped, true},
		{v1alpha1.RunStateDestroyed, true},
		{v1alpha1.RunStateUnknown, false},
		{v1alpha1.RunState("Paused"), false},
	}

	for _, tt := range tests {
		if got := IsTarget(tt.state); got != tt.want {
			t.Errorf("IsTarget(%s) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(v1alpha1.RunStateDestroyed) {
		t.Error("Destroyed should be terminal")
	}
	if IsTerminal(v1alpha1.RunStateStopped) || IsTerminal(v1alpha1.RunStateRunning) {
		t.Error("Stopped and Running should not be terminal")
	}
}
