//go:build windows

package colors

import (
	"fmt"
	"golang.org/x/sys/windows"
	"os"
)

// enabled indicates whether ANSI escape codes are emitted.
var enabled bool

// EnableColor enables coloring if the console attached to stdout processes ANSI escape codes, turning the mode on
// when the console supports it.
func EnableColor() {
	handle := windows.Handle(os.Stdout.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		enabled = false
		return
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		enabled = true
		return
	}
	enabled = windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}

// DisableColor makes every ColorFunc return its input uncolored.
func DisableColor() {
	enabled = false
}

// Colorize returns the string s wrapped in ANSI code c, if coloring is enabled.
func Colorize(s any, c Color) string {
	if !enabled {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
