// Package process runs a single external command and decides when it has
// finished by watching its standard output.
//
// The provisioning tools corral drives do not report success in a structured
// way, so a Detector feeds every stdout line (together with the exit code,
// once the child has exited) to a caller-supplied Predicate. The first
// terminal Status the predicate returns is final.
//
// Concurrency:
//
// Each Run uses three goroutines: the caller, which blocks on a one-shot
// result channel; a scanner, which owns the child's stdout; and a reaper,
// which owns cmd.Wait and publishes the exit code. The result channel is
// written exactly once.
//
// Timeouts:
//
// When the deadline passes the caller gets StatusTimeout. With KillOnTimeout
// set the child's process group is killed so the scanner reaches end of
// stream and releases the pipe. Otherwise the scanner keeps running in the
// background and its eventual verdict is discarded.
package process
