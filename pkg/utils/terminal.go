package utils

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether stdout is attached to a terminal. Used to decide
// whether colored output is appropriate.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the current terminal width, falling back to 80 columns
// when stdout is not a terminal or the size cannot be determined.
func TerminalWidth() int {
	if !IsTerminal() {
		return 80
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
