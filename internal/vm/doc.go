// Package vm drives the lifecycle of a Vagrant machine.
//
// A Controller holds the machine's logical RunState and maps a requested
// target state to one of three vagrant commands:
//   - Running: vagrant up
//   - Stopped: vagrant halt
//   - Destroyed: vagrant destroy -f
//
// Each command is run through a process.Detector with a state-specific
// predicate. The controller only advances its state when the detector
// reports SUCCESS; FAILED, TIMEOUT and start failures are logged and leave
// the state unchanged.
//
// Error Handling:
//
// RequestState never returns an error. Every outcome is expressed as the
// resulting RunState plus a log entry, and nothing is retried. Retry policy
// belongs to the caller.
//
// Persistence:
//
// Transition, Register, Forget and List work against a machineStore so the
// last-known state survives between CLI invocations.
package vm
