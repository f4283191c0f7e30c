package colors

import "fmt"

// ColorFunc is a function coloring its input. Passed among the arguments of a log message, it colors the arguments
// which follow it.
type ColorFunc = func(s any) string

// style returns a ColorFunc wrapping its input in each of the codes, outermost last.
func style(codes ...Color) ColorFunc {
	return func(s any) string {
		out := fmt.Sprint(s)
		for _, code := range codes {
			out = Colorize(out, code)
		}
		return out
	}
}

var (
	// Reset returns its input uncolored, ending the color context of a log message.
	Reset ColorFunc = style()

	// Bold and DarkGray highlight names and de-emphasize details.
	Bold     = style(BOLD)
	DarkGray = style(DARK_GRAY)

	// Red colors failure descriptions.
	Red = style(RED)

	// The bold variants color log levels and report verdicts.
	RedBold    = style(RED, BOLD)
	GreenBold  = style(GREEN, BOLD)
	YellowBold = style(YELLOW, BOLD)
	BlueBold   = style(BLUE, BOLD)
	CyanBold   = style(CYAN, BOLD)
)
