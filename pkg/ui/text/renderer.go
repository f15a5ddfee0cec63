// Package text provides plain text output without any styling
package text

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/dotvault/pkg/types"
	"github.com/arthur-debert/dotvault/pkg/vault"
)

// Renderer provides plain text output without colors or styling
type Renderer struct {
	output io.Writer
}

// New creates a new text renderer
func New(output io.Writer) (*Renderer, error) {
	return &Renderer{output: output}, nil
}

// RenderResult renders any result type as plain text
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
	for _, s := range res.Steps {
		line := fmt.Sprintf("%-8s %-10s", s.Outcome, s.Name)
		if s.Target != "" {
			line += " " + s.Target
		}
		if s.Message != "" {
			line += ": " + s.Message
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	if res.NothingToDo {
		b.WriteString("Nothing to do.\n")
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

func (r *Renderer) renderStatus(report *vault.StatusReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "vault: %s\n", report.Root)
	if report.Remote != "" {
		fmt.Fprintf(&b, "remote: %s\n", report.Remote)
	}

	b.WriteString("\npaths:\n")
	if len(report.Entries) == 0 {
		b.WriteString("  (none declared)\n")
	}
	for _, e := range report.Entries {
		fmt.Fprintf(&b, "  %-10s %s\n", e.State, report.Display(e.Original))
	}

	if len(report.Orphans) > 0 {
		b.WriteString("\nnot declared:\n")
		for _, o := range report.Orphans {
			fmt.Fprintf(&b, "  %s\n", o)
		}
	}
	if len(report.Changes) > 0 {
		b.WriteString("\nuncommitted:\n")
		for _, c := range report.Changes {
			fmt.Fprintf(&b, "  %s\n", c)
		}
	}

	if drift := len(report.Drift()); drift > 0 {
		fmt.Fprintf(&b, "\n%d path(s) need attention, run sync\n", drift)
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderError renders an error as plain text
func (r *Renderer) RenderError(err error) error {
	_, err2 := fmt.Fprintf(r.output, "Error: %v\n", err)
	return err2
}

// RenderMessage renders a simple message
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, msg)
	return err
}
