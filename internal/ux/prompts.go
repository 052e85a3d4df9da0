package ux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm asks message on out and reads one line from in. Only "y" and
// "yes" approve; an empty line or EOF takes defaultYes.
func Confirm(in io.Reader, out io.Writer, message string, defaultYes bool) bool {
	choices := "y/N"
	if defaultYes {
		choices = "Y/n"
	}
	fmt.Fprintf(out, "%s (%s): ", message, choices)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return defaultYes
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}
