package process

import (
	"strings"
)

// Status is the outcome of one command execution.
type Status int

const (
	// StatusUnknown means no verdict yet. It is the only non-terminal value.
	StatusUnknown Status = iota
	// StatusSuccess means the predicate recognized successful completion.
	StatusSuccess
	// StatusFailed means the predicate recognized failure, or the command
	// could not be started.
	StatusFailed
	// StatusTimeout means no verdict was reached before the deadline.
	StatusTimeout
)

// String returns the upper-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "INVALID"
	}
}

// IsTerminal reports whether s ends the wait.
func (s Status) IsTerminal() bool {
	return s != StatusUnknown
}

// Predicate classifies one observed output line. exitCode is nil while the
// child is still running. Predicates must be pure: the same inputs always
// give the same Status.
type Predicate func(line string, exitCode *int) Status

// Command is an argument vector plus the directory it runs in.
type Command struct {
	args []string
	dir  string
}

// NewCommand builds a Command. args[0] is the executable.
func NewCommand(dir string, args ...string) Command {
	return Command{
		args: append([]string(nil), args...),
		dir:  dir,
	}
}

// Args returns a copy of the argument vector.
func (c Command) Args() []string {
	return append([]string(nil), c.args...)
}

// Dir returns the working directory.
func (c Command) Dir() string {
	return c.dir
}

// String returns the command line joined by spaces.
func (c Command) String() string {
	return strings.Join(c.args, " ")
}
