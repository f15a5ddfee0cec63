package vault

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/dotvault/pkg/config"
	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/syncer"
	"github.com/arthur-debert/dotvault/pkg/transition"
	"github.com/arthur-debert/dotvault/pkg/types"
)

var actionMessages = map[transition.Action]string{
	transition.ActionAdopt:   "moved into repository and linked",
	transition.ActionLink:    "linked",
	transition.ActionRepair:  "link repaired",
	transition.ActionRestore: "restored",
	transition.ActionUnlink:  "broken link removed",
}

// display shortens a path under home to ~/rel
func (v *Vault) display(path string) string {
	rel, err := v.paths.RelativeToHome(path)
	if err != nil {
		return path
	}
	return "~/" + filepath.ToSlash(rel)
}

// step converts one transition into a report step
func (v *Vault) step(name string, r transition.Result) types.Step {
	s := types.Step{Name: name, Target: v.display(r.Path)}
	switch {
	case r.Err != nil:
		s.Outcome = types.OutcomeFailed
		s.Message = r.Err.Error()
		s.Code = errors.GetErrorCode(r.Err)
	case r.Action != transition.ActionNone:
		s.Outcome = types.OutcomeSuccess
		s.Message = actionMessages[r.Action]
		if r.Warning != "" {
			s.Outcome = types.OutcomeWarning
			s.Message += ", " + r.Warning
		}
	case r.Warning != "":
		s.Outcome = types.OutcomeWarning
		s.Message = r.Warning
		if r.Before == types.StateLinked {
			s.Outcome = types.OutcomeNoop
		}
	default:
		s.Outcome = types.OutcomeNoop
	}
	return s
}

// addBatch appends a step per result. With quiet set, paths that were
// already in the wanted state are left out.
func (v *Vault) addBatch(res *types.Result, name string, batch *transition.BatchResult, quiet bool) {
	for _, r := range batch.Results {
		s := v.step(name, r)
		if quiet && s.Outcome == types.OutcomeNoop {
			continue
		}
		res.Add(s)
	}
}

// reconcile tracks every declared path, adding a step per path that
// changed or failed plus a summary.
func (v *Vault) reconcile(res *types.Result) *transition.BatchResult {
	declared, err := v.declared()
	if err != nil {
		res.AddError("resolve", "", err)
		return &transition.BatchResult{}
	}

	batch := v.engine.TrackAll(declared)
	v.addBatch(res, "link", batch, true)

	summary := types.Step{Name: "link", Outcome: types.OutcomeNoop}
	if n := batch.Changed(); n > 0 {
		summary.Outcome = types.OutcomeSuccess
		summary.Message = fmt.Sprintf("%d of %d declared paths changed", n, len(declared))
	} else {
		summary.Message = fmt.Sprintf("%d declared paths in place", len(declared))
	}
	res.Add(summary)
	return batch
}

// reload re-reads the configuration after a pull may have changed it
func (v *Vault) reload(res *types.Result) bool {
	cfg, err := config.Load(v.paths.ConfigFile())
	if err != nil {
		res.AddError("config", v.display(v.paths.ConfigFile()), err)
		return false
	}
	v.cfg = cfg
	return true
}

func (v *Vault) orchestrator() *syncer.Orchestrator {
	return syncer.New(v.repo, syncer.Options{CommitMessage: v.cfg.Commit.SyncMessage})
}

// commit commits the working tree with message. A clean tree is a noop.
func (v *Vault) commit(ctx context.Context, res *types.Result, message string) {
	report := syncer.New(v.repo, syncer.Options{CommitMessage: message}).RunStages(ctx, syncer.StageCommit)
	for _, s := range report.Steps() {
		res.Add(s)
	}
}

// settle flags results where nothing was done and nothing went wrong
func settle(res *types.Result) *types.Result {
	for _, s := range res.Steps {
		if s.Outcome == types.OutcomeSuccess || s.Outcome == types.OutcomeFailed {
			return res
		}
	}
	res.NothingToDo = true
	return res
}
