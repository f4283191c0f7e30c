package colors

// init enables coloring where the console supports it. Windows consoles need it switched on explicitly.
func init() {
	EnableColor()
}
