// Package infra implements infrastructure concerns (process, registry, resolver).
package infra

import "os/exec"

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	// Run executes a command and waits for it to complete.
	Run(name string, args ...string) error

	// Output executes a command and returns its stdout.
	Output(name string, args ...string) ([]byte, error)

	// Start launches a command without waiting for it.
	Start(name string, args ...string) error
}

// RealCommandRunner executes real system commands.
type RealCommandRunner struct{}

func (r *RealCommandRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func (r *RealCommandRunner) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}
