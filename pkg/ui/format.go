package ui

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/arthur-debert/dotvault/pkg/errors"
)

// Format selects a renderer
type Format int

const (
	FormatAuto Format = iota
	FormatTerminal
	FormatText
	FormatJSON
	FormatYAML
)

// formatNames holds the canonical name of each format first, then aliases
var formatNames = map[Format][]string{
	FormatAuto:     {"auto", ""},
	FormatTerminal: {"term", "terminal"},
	FormatText:     {"text", "plain"},
	FormatJSON:     {"json"},
	FormatYAML:     {"yaml", "yml"},
}

func (f Format) String() string {
	if names, ok := formatNames[f]; ok {
		return names[0]
	}
	return "unknown"
}

// ParseFormat accepts a canonical name or alias, case insensitively
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, names := range formatNames {
		for _, n := range names {
			if n == name {
				return f, nil
			}
		}
	}
	return FormatAuto, errors.Newf(errors.ErrInvalidInput, "unknown format: %s", s).WithDetail("format", s)
}

// DetectFormat resolves FormatAuto for output. Styling needs a terminal that
// can show color and a user who has not opted out with NO_COLOR or
// TERM=dumb.
func DetectFormat(output *os.File) Format {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return FormatText
	}
	fd := output.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return FormatText
	}
	if termenv.NewOutput(output).ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}
