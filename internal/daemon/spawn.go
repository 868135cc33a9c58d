package daemon

import (
	"os"
	"os/exec"
)

// SpawnDetached re-executes the current binary with the daemon command
// so the loop runs in the background, detached from the caller's
// console. The child takes over the lock via the takeover protocol.
func SpawnDetached() error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(executable, "daemon")

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd.Start()
}
