package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter colors a piece of CLI output. Without color it falls back to the
// plain prefix and suffix so the emphasis is still visible.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func (f Formatter) Sprint(a ...interface{}) string {
	return f.wrap(fmt.Sprint(a...))
}

func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.wrap(fmt.Sprintf(format, a...))
}

func (f Formatter) wrap(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline appends a newline unless s already ends with one. Spinner
// final messages need it.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// ShortHash keeps the first 12 hex characters of a content hash.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

// noColor honours NO_COLOR (https://no-color.org/) as well as fatih/color's
// own terminal detection.
func noColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return color.NoColor
}

var (
	// Code is for commands the user can run, like `envcrypt decrypt`.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	Path = Formatter{color.New(color.FgYellow), "", ""}
	Flag = Formatter{color.New(color.FgYellow), "", ""}

	// Status markers.
	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight quotes file names inside sentences when color is off.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	Hash = Formatter{color.New(color.FgMagenta), "", ""}

	// Muted is for secondary details. Without color it is parenthesized.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)
