// Package terminal provides rich terminal output with colors and styling
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/style"
	"github.com/arthur-debert/dotvault/pkg/types"
	"github.com/arthur-debert/dotvault/pkg/vault"
)

const badgeWidth = 9

// Renderer provides rich terminal output using lipgloss and pterm
type Renderer struct {
	output io.Writer
}

// New creates a new terminal renderer
func New(w io.Writer) (*Renderer, error) {
	return &Renderer{output: w}, nil
}

// RenderResult renders any result type with rich terminal formatting
func (r *Renderer) RenderResult(result interface{}) error {
	switch v := result.(type) {
	case *types.Result:
		return r.renderResult(v)
	case *vault.StatusReport:
		return r.renderStatus(v)
	default:
		_, err := fmt.Fprintf(r.output, "%+v\n", result)
		return err
	}
}

func (r *Renderer) renderResult(res *types.Result) error {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("dotvault "+res.Command) + "\n")

	for _, s := range res.Steps {
		line := style.Indicator(s.Outcome) + " " +
			style.OutcomeStyle(s.Outcome).Sprint(fmt.Sprintf("%-8s", s.Name))
		if s.Target != "" {
			line += " " + style.PathStyle.Render(s.Target)
		}
		if s.Message != "" {
			msg := s.Message
			switch s.Outcome {
			case types.OutcomeFailed:
				msg = style.ErrorStyle.Render(msg)
			case types.OutcomeSkipped, types.OutcomeNoop:
				msg = style.MutedStyle.Render(msg)
			default:
				msg = style.NormalStyle.Render(msg)
			}
			line += "  " + msg
		}
		b.WriteString(style.Indent(line, 1) + "\n")
	}

	if res.NothingToDo {
		b.WriteString(style.MutedStyle.Render("Nothing to do.") + "\n")
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

func (r *Renderer) renderStatus(report *vault.StatusReport) error {
	var b strings.Builder
	header := "dotvault " + style.PathStyle.Render(report.Root)
	if report.Remote != "" {
		header += style.MutedStyle.Render(" → " + report.Remote)
	}
	b.WriteString(style.TitleStyle.Render(header) + "\n\n")

	if len(report.Entries) == 0 {
		b.WriteString(style.Indent(style.MutedStyle.Render("no paths declared"), 1) + "\n")
	}
	for _, e := range report.Entries {
		badge := style.Badge(style.StateStyle(e.State), string(e.State), badgeWidth)
		path := style.PathStateStyle(e.State).Render(report.Display(e.Original))
		b.WriteString(style.Indent(badge+" "+path, 1) + "\n")
	}

	if len(report.Orphans) > 0 {
		b.WriteString("\n" + style.Bold("Not declared") + "\n")
		for _, o := range report.Orphans {
			b.WriteString(style.Indent(style.MutedStyle.Render(o), 1) + "\n")
		}
	}
	if len(report.Changes) > 0 {
		b.WriteString("\n" + style.Bold("Uncommitted") + "\n")
		for _, c := range report.Changes {
			b.WriteString(style.Indent(style.InfoStyle.Render(c), 1) + "\n")
		}
	}

	if drift := len(report.Drift()); drift > 0 {
		b.WriteString("\n" + style.WarningIndicator + " " +
			style.WarningStyle.Render(fmt.Sprintf("%d path(s) need attention, run dotvault sync", drift)) + "\n")
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderError renders an error with its code
func (r *Renderer) RenderError(err error) error {
	line := style.ErrorIndicator + " " + style.ErrorStyle.Render(err.Error())
	if code := errors.GetErrorCode(err); code != errors.ErrUnknown {
		line += " " + style.MutedStyle.Render("("+string(code)+")")
	}
	_, werr := fmt.Fprintln(r.output, line)
	return werr
}

// RenderMessage renders a simple message
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, style.InfoIndicator+" "+style.NormalStyle.Render(msg))
	return err
}
