//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// terminateGracefully sends SIGTERM on Unix platforms.
func terminateGracefully(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(syscall.SIGTERM)
}
