package types

import (
	"github.com/arthur-debert/dotvault/pkg/errors"
)

// Outcome of a single step
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeNoop    Outcome = "noop"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeWarning Outcome = "warning"
)

// Process exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitNothingToDo = 2
	ExitConflict    = 3
	ExitFilesystem  = 4
)

// Step is one entry of a command's report. Name is the stage or action
// ("track", "commit", "pull"...), Target the path or remote it applied to.
type Step struct {
	Name    string           `json:"name" yaml:"name"`
	Target  string           `json:"target,omitempty" yaml:"target,omitempty"`
	Outcome Outcome          `json:"outcome" yaml:"outcome"`
	Message string           `json:"message,omitempty" yaml:"message,omitempty"`
	Code    errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`
}

// Result is the structured report every command returns
type Result struct {
	Command     string `json:"command" yaml:"command"`
	Steps       []Step `json:"steps" yaml:"steps"`
	NothingToDo bool   `json:"nothingToDo,omitempty" yaml:"nothingToDo,omitempty"`
}

// NewResult creates an empty result for command
func NewResult(command string) *Result {
	return &Result{Command: command, Steps: []Step{}}
}

// Add appends a step
func (r *Result) Add(step Step) {
	r.Steps = append(r.Steps, step)
}

// AddError appends a failed step carrying err's code and message
func (r *Result) AddError(name, target string, err error) {
	r.Add(Step{
		Name:    name,
		Target:  target,
		Outcome: OutcomeFailed,
		Message: err.Error(),
		Code:    errors.GetErrorCode(err),
	})
}

// Failed reports whether any step failed
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// ExitCode maps the result to a process exit code. When several failures
// are present, conflicts win over filesystem errors, which win over
// everything else.
func (r *Result) ExitCode() int {
	code := ExitSuccess
	for _, s := range r.Steps {
		if s.Outcome != OutcomeFailed {
			continue
		}
		if c := exitCodeFor(s.Code); c == ExitConflict || (c == ExitFilesystem && code != ExitConflict) || code == ExitSuccess {
			code = c
		}
	}
	if code == ExitSuccess && r.NothingToDo {
		return ExitNothingToDo
	}
	return code
}

// ExitCodeForError maps an error that aborted a command before it produced
// a result.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return exitCodeFor(errors.GetErrorCode(err))
}

func exitCodeFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrConflict, errors.ErrRejected:
		return ExitConflict
	case errors.ErrFilesystem, errors.ErrCollision:
		return ExitFilesystem
	default:
		return ExitFailure
	}
}
