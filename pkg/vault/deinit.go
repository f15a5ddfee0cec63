package vault

import (
	"context"
	"os"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Deinit moves every declared path back home. Only when every path was
// restored are the repository and configuration removed; otherwise both
// stay so the operation can be retried. A successful Deinit releases the
// lock and leaves the vault unusable.
func (v *Vault) Deinit(ctx context.Context) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "deinit")
	defer done()

	res := types.NewResult("deinit")
	declared, err := v.declared()
	if err != nil {
		return nil, err
	}

	batch := v.engine.UntrackAll(declared)
	v.addBatch(res, "untrack", batch, false)
	if err := batch.Err(); err != nil {
		res.Add(types.Step{
			Name:    "deinit",
			Target:  v.paths.Root(),
			Outcome: types.OutcomeSkipped,
			Message: "repository kept, some paths could not be restored",
		})
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		res.AddError("deinit", v.paths.Root(), err)
		return res, nil
	}

	if err := v.fs.RemoveAll(v.paths.RepositoryDir()); err != nil {
		res.AddError("deinit", v.paths.RepositoryDir(), errors.Wrapf(err, errors.ErrFilesystem, "cannot remove %s", v.paths.RepositoryDir()))
		return res, nil
	}
	res.Add(types.Step{Name: "deinit", Target: v.paths.RepositoryDir(), Outcome: types.OutcomeSuccess, Message: "repository removed"})

	if err := v.fs.Remove(v.paths.ConfigFile()); err != nil && !os.IsNotExist(err) {
		res.AddError("deinit", v.paths.ConfigFile(), errors.Wrapf(err, errors.ErrFilesystem, "cannot remove %s", v.paths.ConfigFile()))
		return res, nil
	}
	res.Add(types.Step{Name: "deinit", Target: v.paths.ConfigFile(), Outcome: types.OutcomeSuccess, Message: "configuration removed"})

	if err := v.lock.release(); err != nil {
		res.AddError("deinit", v.paths.LockFile(), err)
		return res, nil
	}
	// only succeeds when nothing else lives in the root
	_ = v.fs.Remove(v.paths.Root())
	return res, nil
}
