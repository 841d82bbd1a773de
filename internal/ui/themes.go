// Package ui holds the terminal color themes shared by the CLI, the config
// usage text and the error reporter.
package ui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Theme is a set of ANSI escape sequences, one per role.
type Theme struct {
	Name      string
	Primary   string
	Secondary string
	Success   string
	Warning   string
	Error     string
	Info      string
	Bold      string
	Underline string
	Reset     string
}

// sgr builds a Select Graphic Rendition sequence from fatih/color attributes.
func sgr(attrs ...color.Attribute) string {
	codes := make([]string, len(attrs))
	for i, a := range attrs {
		codes[i] = strconv.Itoa(int(a))
	}
	return "\033[" + strings.Join(codes, ";") + "m"
}

// fg256 is a 256-color foreground attribute list.
func fg256(n color.Attribute) []color.Attribute {
	return []color.Attribute{38, 5, n}
}

var (
	// DarkTheme is tuned for dark terminal backgrounds.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   sgr(fg256(39)...),
		Secondary: sgr(fg256(245)...),
		Success:   sgr(fg256(82)...),
		Warning:   sgr(fg256(220)...),
		Error:     sgr(fg256(196)...),
		Info:      sgr(fg256(141)...),
		Bold:      sgr(color.Bold),
		Underline: sgr(color.Underline),
		Reset:     sgr(color.Reset),
	}

	// LightTheme uses the 16 base colors, which read well on light
	// backgrounds.
	LightTheme = Theme{
		Name:      "light",
		Primary:   sgr(color.FgBlue),
		Secondary: sgr(color.FgHiBlack),
		Success:   sgr(color.FgGreen),
		Warning:   sgr(color.FgYellow),
		Error:     sgr(color.FgRed),
		Info:      sgr(color.FgMagenta),
		Bold:      sgr(color.Bold),
		Underline: sgr(color.Underline),
		Reset:     sgr(color.Reset),
	}

	// NoColorTheme disables all styling.
	NoColorTheme = Theme{Name: "none"}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// GetCurrentTheme returns the active theme.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme replaces the active theme. Tests use it to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme activates a theme by name: "dark", "light" or "none". Unknown
// names select the dark theme.
func SetTheme(name string) {
	switch name {
	case "light":
		SetCurrentTheme(LightTheme)
	case "none":
		SetCurrentTheme(NoColorTheme)
	default:
		SetCurrentTheme(DarkTheme)
	}
}

// InitTheme picks the theme for this process. Colors are off when noColor is
// set, when NO_COLOR is present (https://no-color.org) or when fatih/color
// has decided stdout cannot render them. The decision is mirrored into
// color.NoColor so that both styling paths agree.
func InitTheme(noColor bool) {
	_, envNoColor := os.LookupEnv("NO_COLOR")
	if noColor || envNoColor || color.NoColor {
		color.NoColor = true
		SetCurrentTheme(NoColorTheme)
		return
	}
	SetCurrentTheme(DarkTheme)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
