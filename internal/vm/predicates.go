package vm

import (
	"strings"

	"github.com/jbweber/corral/internal/process"
)

// Output markers vagrant prints on the way to each target state.
var (
	startMarkers = []string{
		"Machine booted and ready!",
		"Complete!",
		"Machine already provisioned.",
	}
	stopMarkers = []string{
		"Attempting graceful shutdown of VM...",
	}
	destroyMarkers = []string{
		"VM not created.",
		"Destroying VM and associated drives",
	}
)

func containsAny(line string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// StartPredicate classifies vagrant up output. A clean exit or a boot marker
// is success; a non-zero exit without a marker is failure.
func StartPredicate(line string, exitCode *int) process.Status {
	if (exitCode != nil && *exitCode == 0) || containsAny(line, startMarkers) {
		return process.StatusSuccess
	}
	if exitCode != nil {
		return process.StatusFailed
	}
	return process.StatusUnknown
}

// StopPredicate classifies vagrant halt output. It never reports failure:
// a non-zero exit stays undecided.
func StopPredicate(line string, exitCode *int) process.Status {
	if (exitCode != nil && *exitCode == 0) || containsAny(line, stopMarkers) {
		return process.StatusSuccess
	}
	return process.StatusUnknown
}

// DestroyPredicate classifies vagrant destroy -f output. Destroy is
// best-effort cleanup, so any exit at all counts as success.
func DestroyPredicate(line string, exitCode *int) process.Status {
	if exitCode != nil || containsAny(line, destroyMarkers) {
		return process.StatusSuccess
	}
	return process.StatusUnknown
}
