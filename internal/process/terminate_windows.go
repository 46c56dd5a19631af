//go:build windows

package process

import (
	"os/exec"

	"golang.org/x/sys/windows"
)

// terminateGracefully invokes the native terminate-by-pid helper on Windows.
// Windows has no SIGTERM equivalent that a console helper reliably honours,
// so this is the platform's best-effort "ask nicely".
func terminateGracefully(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(cmd.Process.Pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)
	return windows.TerminateProcess(handle, 1)
}
