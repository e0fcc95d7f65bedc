package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Indicator returns a listener that shows label on w while at least one
// request is in flight and erases it once the count returns to zero.
func Indicator(w io.Writer, label string) Listener {
	active := false
	return func(count int) {
		switch {
		case count > 0 && !active:
			active = true
			fmt.Fprintf(w, "\r%s", label)
		case count == 0 && active:
			active = false
			fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", len(label)))
		}
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTerminalStdin reports whether stdin is attached to a terminal
func IsTerminalStdin() bool {
	return IsTerminal(os.Stdin)
}
