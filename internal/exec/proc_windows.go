//go:build windows

package exec

import "os/exec"

func shellCommand(line string) (string, []string) {
	return "cmd", []string{"/C", line}
}

// killTree keeps the default Cancel, which kills the direct child.
func killTree(cmd *exec.Cmd) {}
