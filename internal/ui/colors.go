package ui

// Color accessors read the current theme.

func ColorReset() string   { return GetCurrentTheme().Reset }
func ColorRed() string     { return GetCurrentTheme().Error }
func ColorGreen() string   { return GetCurrentTheme().Success }
func ColorYellow() string  { return GetCurrentTheme().Warning }
func ColorBlue() string    { return GetCurrentTheme().Primary }
func ColorMagenta() string { return GetCurrentTheme().Info }
func ColorCyan() string    { return GetCurrentTheme().Secondary }
func ColorBold() string    { return GetCurrentTheme().Bold }

// Colors implements apperrors.ColorProvider on the current theme.
type Colors struct{}

func (Colors) Yellow() string { return ColorYellow() }
func (Colors) Red() string    { return ColorRed() }
func (Colors) Reset() string  { return ColorReset() }
