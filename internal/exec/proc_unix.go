//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
)

// shellCommand returns the platform shell invocation for a command line.
func shellCommand(line string) (string, []string) {
	return "sh", []string{"-lc", line}
}

// killTree puts the child in its own process group so a timeout kills
// everything it spawned.
func killTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
