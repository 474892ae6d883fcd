package vm

import (
	"testing"

	"github.com/jbweber/corral/internal/process"
)

func code(c int) *int { return &c }

func TestPredicates(t *testing.T) {
	tests := []struct {
		name     string
		pred     process.Predicate
		line     string
		exitCode *int
		want     process.Status
	}{
		{"start boot marker", StartPredicate, "==> default: Machine booted and ready!", nil, process.StatusSuccess},
		{"start complete marker", StartPredicate, "Complete!", nil, process.StatusSuccess},
		{"start provisioned marker", StartPredicate, "==> default: Machine already provisioned. Run `vagrant provision`", nil, process.StatusSuccess},
		{"start noise", StartPredicate, "==> default: Booting VM...", nil, process.StatusUnknown},
		{"start clean exit", StartPredicate, "", code(0), process.StatusSuccess},
		{"start failed exit", StartPredicate, "", code(1), process.StatusFailed},
		{"start marker beats failed exit", StartPredicate, "Machine booted and ready!", code(1), process.StatusSuccess},

		{"stop marker", StopPredicate, "==> default: Attempting graceful shutdown of VM...", nil, process.StatusSuccess},
		{"stop noise", StopPredicate, "==> default: Forcing shutdown", nil, process.StatusUnknown},
		{"stop clean exit", StopPredicate, "", code(0), process.StatusSuccess},
		{"stop failed exit is never failure", StopPredicate, "", code(1), process.StatusUnknown},

		{"destroy not created", DestroyPredicate, "==> default: VM not created. Moving on...", nil, process.StatusSuccess},
		{"destroy marker", DestroyPredicate, "==> default: Destroying VM and associated drives...", nil, process.StatusSuccess},
		{"destroy noise", DestroyPredicate, "==> default: Removing hosts", nil, process.StatusUnknown},
		{"destroy clean exit", DestroyPredicate, "", code(0), process.StatusSuccess},
		{"destroy failed exit", DestroyPredicate, "", code(1), process.StatusSuccess},
		{"destroy killed", DestroyPredicate, "", code(-1), process.StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.line, tt.exitCode); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// A scan stops at the first terminal verdict, so later lines cannot change it.
func TestPredicates_FirstTerminalWins(t *testing.T) {
	lines := []string{
		"Bringing machine 'default' up...",
		"==> default: Machine booted and ready!",
		"An error occurred",
	}
	runner := newMockRunner().script("up", 1, lines...)

	var seen []string
	recording := func(line string, exitCode *int) process.Status {
		seen = append(seen, line)
		return StartPredicate(line, exitCode)
	}

	got, err := runner.Run(t.Context(), process.NewCommand("", "vagrant", "up"), recording, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != process.StatusSuccess {
		t.Errorf("got %v, want SUCCESS", got)
	}
	if len(seen) != 2 {
		t.Errorf("predicate saw %d lines, want 2: %v", len(seen), seen)
	}
}
