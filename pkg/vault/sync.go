package vault

import (
	"context"

	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/syncer"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Sync links every declared path, then commits, pulls and pushes. When the
// pull brought in changes the configuration is reloaded and paths are
// linked again.
func (v *Vault) Sync(ctx context.Context) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "sync")
	defer done()

	res := types.NewResult("sync")
	v.reconcile(res)

	report := v.orchestrator().Run(ctx)
	res.Steps = append(res.Steps, report.Steps()...)
	v.afterPull(res, report)

	return res, nil
}

// Pull fetches remote changes and links what they declare
func (v *Vault) Pull(ctx context.Context) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "pull")
	defer done()

	res := types.NewResult("pull")
	report := v.orchestrator().RunStages(ctx, syncer.StagePull)
	res.Steps = append(res.Steps, report.Steps()...)
	if report.State == syncer.StateSucceeded && (!report.Pulled() || v.reload(res)) {
		v.reconcile(res)
	}
	return res, nil
}

// Push links every declared path, commits and pushes
func (v *Vault) Push(ctx context.Context) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "push")
	defer done()

	res := types.NewResult("push")
	v.reconcile(res)

	report := v.orchestrator().RunStages(ctx, syncer.StageCommit, syncer.StagePush)
	res.Steps = append(res.Steps, report.Steps()...)
	return res, nil
}

// Undo drops the last local commit when it has not been pushed. The
// working tree keeps its content so no file changes.
func (v *Vault) Undo(ctx context.Context) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "undo")
	defer done()

	res := types.NewResult("undo")
	head, err := v.repo.Undo(ctx)
	if err != nil {
		res.AddError("undo", "", err)
		return res, nil
	}
	res.Add(types.Step{Name: "undo", Outcome: types.OutcomeSuccess, Message: "reset to " + head.Short()})
	return res, nil
}

func (v *Vault) afterPull(res *types.Result, report *syncer.Report) {
	if !report.Pulled() {
		return
	}
	if v.reload(res) {
		v.reconcile(res)
	}
}
