// Package syncer runs the commit, pull, push pipeline against a repository
// as a finite state machine. Every stage's outcome is kept in the report so
// a partial failure shows exactly how far the pipeline got.
package syncer

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/repository"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Stage is one step of the pipeline
type Stage string

const (
	StageCommit Stage = "commit"
	StagePull   Stage = "pull"
	StagePush   Stage = "push"
)

// Stages lists the pipeline in execution order
var Stages = []Stage{StageCommit, StagePull, StagePush}

// State of the machine
type State string

const (
	StateIdle            State = "idle"
	StateCommit          State = "commit"
	StatePull            State = "pull"
	StatePush            State = "push"
	StateReport          State = "report"
	StateSucceeded       State = "succeeded"
	StatePartiallyFailed State = "partially_failed"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StatePartiallyFailed || s == StateFailed
}

var stageState = map[Stage]State{
	StageCommit: StateCommit,
	StagePull:   StatePull,
	StagePush:   StatePush,
}

// DefaultCommitMessage is used when none is configured
const DefaultCommitMessage = "Sync files"

// StageResult is the outcome of one stage
type StageResult struct {
	Stage   Stage            `json:"stage" yaml:"stage"`
	Outcome types.Outcome    `json:"outcome" yaml:"outcome"`
	Message string           `json:"message,omitempty" yaml:"message,omitempty"`
	Code    errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`
	Err     error            `json:"-" yaml:"-"`
}

// Report is the final state plus every stage result, in pipeline order
type Report struct {
	State  State                 `json:"state" yaml:"state"`
	Stages []StageResult         `json:"stages" yaml:"stages"`
	Commit repository.CommitID   `json:"commit,omitempty" yaml:"commit,omitempty"`
	Pull   repository.PullResult `json:"pull" yaml:"pull"`
}

// Stage returns the result for s, if it was part of the run
func (r *Report) Stage(s Stage) (StageResult, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr, true
		}
	}
	return StageResult{}, false
}

// Pulled reports whether the pull stage brought in new commits
func (r *Report) Pulled() bool {
	sr, ok := r.Stage(StagePull)
	return ok && sr.Outcome == types.OutcomeSuccess && r.Pull.Updated
}

// Steps converts the stage results into command steps
func (r *Report) Steps() []types.Step {
	steps := make([]types.Step, 0, len(r.Stages))
	for _, sr := range r.Stages {
		steps = append(steps, types.Step{
			Name:    string(sr.Stage),
			Outcome: sr.Outcome,
			Message: sr.Message,
			Code:    sr.Code,
		})
	}
	return steps
}

// Options configure an Orchestrator
type Options struct {
	CommitMessage string
}

// Orchestrator drives the pipeline
type Orchestrator struct {
	repo    repository.Repository
	message string
	logger  zerolog.Logger
}

// New creates an orchestrator for repo
func New(repo repository.Repository, opts Options) *Orchestrator {
	msg := opts.CommitMessage
	if msg == "" {
		msg = DefaultCommitMessage
	}
	return &Orchestrator{
		repo:    repo,
		message: msg,
		logger:  logging.GetLogger("syncer"),
	}
}

// Run executes commit, pull and push
func (o *Orchestrator) Run(ctx context.Context) *Report {
	return o.RunStages(ctx, Stages...)
}

// run holds the machine's working data for one invocation
type run struct {
	enabled mapset.Set[Stage]
	report  *Report
}

// RunStages executes the enabled subset of the pipeline, always in
// pipeline order.
func (o *Orchestrator) RunStages(ctx context.Context, stages ...Stage) *Report {
	done := logging.LogOperationStart(o.logger, "sync")
	defer done()

	r := &run{
		enabled: mapset.NewThreadUnsafeSet(stages...),
		report:  &Report{State: StateIdle},
	}

	for state := StateIdle; ; {
		next := o.transition(ctx, state, r)
		o.logger.Debug().Str("from", string(state)).Str("to", string(next)).Msg("Sync transition")
		r.report.State = next
		if next.Terminal() {
			break
		}
		state = next
	}

	o.logger.Info().Str("state", string(r.report.State)).Msg("Sync finished")
	return r.report
}

func (o *Orchestrator) transition(ctx context.Context, state State, r *run) State {
	switch state {
	case StateIdle:
		return o.nextAfter("", r)

	case StateCommit:
		sr := o.commit(ctx, r.report)
		r.report.Stages = append(r.report.Stages, sr)
		if sr.Outcome == types.OutcomeFailed {
			o.skipRemaining(StageCommit, r, "commit failed")
			return StateReport
		}
		return o.nextAfter(StageCommit, r)

	case StatePull:
		sr := o.pull(ctx, r.report)
		r.report.Stages = append(r.report.Stages, sr)
		if sr.Outcome == types.OutcomeFailed {
			o.skipRemaining(StagePull, r, "pull failed")
			return StateReport
		}
		return o.nextAfter(StagePull, r)

	case StatePush:
		r.report.Stages = append(r.report.Stages, o.push(ctx))
		return StateReport

	case StateReport:
		return terminalState(r.report)
	}

	return StateFailed
}

// nextAfter returns the state of the first enabled stage after s
func (o *Orchestrator) nextAfter(s Stage, r *run) State {
	passed := s == ""
	for _, stage := range Stages {
		if !passed {
			passed = stage == s
			continue
		}
		if r.enabled.Contains(stage) {
			return stageState[stage]
		}
	}
	return StateReport
}

func (o *Orchestrator) skipRemaining(after Stage, r *run, reason string) {
	passed := false
	for _, stage := range Stages {
		if !passed {
			passed = stage == after
			continue
		}
		if r.enabled.Contains(stage) {
			r.report.Stages = append(r.report.Stages, StageResult{
				Stage:   stage,
				Outcome: types.OutcomeSkipped,
				Message: "skipped, " + reason,
			})
		}
	}
}

// terminalState: no failure is success, a failure in the first executed
// stage means nothing was applied, anything else is partial.
func terminalState(report *Report) State {
	for i, sr := range report.Stages {
		if sr.Outcome != types.OutcomeFailed {
			continue
		}
		if i == 0 {
			return StateFailed
		}
		return StatePartiallyFailed
	}
	return StateSucceeded
}

func (o *Orchestrator) commit(ctx context.Context, report *Report) StageResult {
	if err := ctx.Err(); err != nil {
		return failed(StageCommit, err)
	}
	id, committed, err := o.repo.CommitAll(ctx, o.message)
	if err != nil {
		o.logger.Error().Err(err).Msg("Commit stage failed")
		return failed(StageCommit, err)
	}
	if !committed {
		return StageResult{Stage: StageCommit, Outcome: types.OutcomeNoop, Message: "nothing to commit"}
	}
	report.Commit = id
	return StageResult{Stage: StageCommit, Outcome: types.OutcomeSuccess, Message: "committed " + id.Short()}
}

func (o *Orchestrator) pull(ctx context.Context, report *Report) StageResult {
	if err := ctx.Err(); err != nil {
		return failed(StagePull, err)
	}
	res, err := o.repo.Pull(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("Pull stage failed")
		return failed(StagePull, err)
	}
	report.Pull = res
	if !res.Updated {
		return StageResult{Stage: StagePull, Outcome: types.OutcomeNoop, Message: res.Message}
	}
	return StageResult{Stage: StagePull, Outcome: types.OutcomeSuccess, Message: res.Message}
}

func (o *Orchestrator) push(ctx context.Context) StageResult {
	if err := ctx.Err(); err != nil {
		return failed(StagePush, err)
	}
	res, err := o.repo.Push(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("Push stage failed")
		return failed(StagePush, err)
	}
	if !res.Pushed {
		return StageResult{Stage: StagePush, Outcome: types.OutcomeNoop, Message: res.Message}
	}
	return StageResult{Stage: StagePush, Outcome: types.OutcomeSuccess, Message: res.Message}
}

func failed(stage Stage, err error) StageResult {
	code := errors.GetErrorCode(err)
	if code == errors.ErrUnknown {
		code = errors.ErrRepository
	}
	return StageResult{
		Stage:   stage,
		Outcome: types.OutcomeFailed,
		Message: err.Error(),
		Code:    code,
		Err:     err,
	}
}
