package format

// ANSI escape sequences used by the formatters
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Gray    = "\033[37m"

	BrightBlue = "\033[94m"
	BrightCyan = "\033[96m"
)

// ColorizeIf wraps text in the escape sequence when useColors is set.
func ColorizeIf(text, seq string, useColors bool) string {
	if !useColors || seq == "" {
		return text
	}
	return seq + text + Reset
}

// BoldIf is ColorizeIf with Bold.
func BoldIf(text string, useColors bool) string { return ColorizeIf(text, Bold, useColors) }

// DimIf is ColorizeIf with Dim.
func DimIf(text string, useColors bool) string { return ColorizeIf(text, Dim, useColors) }
