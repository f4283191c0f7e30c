//go:build !windows

package colors

import "fmt"

// enabled indicates whether ANSI escape codes are emitted.
var enabled = true

// EnableColor enables coloring. Non-windows terminals are assumed to support ANSI escape codes.
func EnableColor() {
	enabled = true
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
