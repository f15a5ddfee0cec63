package vault

import (
	"context"
	"strings"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/repository"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Git runs the git binary inside the repository and then links every
// declared path again, since the command may have changed the working tree
// or the configuration it holds.
func (v *Vault) Git(ctx context.Context, args []string, streams repository.Streams) (*types.Result, error) {
	done := logging.LogOperationStart(v.logger, "git")
	defer done()

	if len(args) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no git arguments given")
	}

	res := types.NewResult("git")
	target := "git " + strings.Join(args, " ")
	if err := repository.RunGit(ctx, v.paths.RepositoryDir(), args, streams); err != nil {
		res.AddError("git", target, err)
		return res, nil
	}
	res.Add(types.Step{Name: "git", Target: target, Outcome: types.OutcomeSuccess})

	if v.reload(res) {
		v.reconcile(res)
	}
	return res, nil
}
