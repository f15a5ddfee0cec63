package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/dotvault/internal/version"
	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/repository"
	"github.com/arthur-debert/dotvault/pkg/types"
	"github.com/arthur-debert/dotvault/pkg/vault"
)

// vaultOp is a command body that runs against an opened vault
type vaultOp func(ctx context.Context, v *vault.Vault) (*types.Result, error)

// withVault opens the vault, runs op, renders the result and closes the
// vault, in that order.
func (a *app) withVault(cmd *cobra.Command, op vaultOp) error {
	ctx := cmd.Context()
	v, err := vault.Open(ctx, vault.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := v.Close(); cerr != nil {
			logger := logging.GetLogger("cli")
			logger.Warn().Err(cerr).Msg("Failed to release lock")
		}
	}()

	res, err := op(ctx, v)
	if err != nil {
		return err
	}
	return a.finish(res)
}

// finish renders res and turns its exit code into an error cobra returns
func (a *app) finish(res *types.Result) error {
	if err := a.renderer.RenderResult(res); err != nil {
		return err
	}
	if code := res.ExitCode(); code != types.ExitSuccess {
		return &exitError{code: code}
	}
	return nil
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "init [url]",
		Short:   MsgInitShort,
		Long:    MsgInitLong,
		Example: "  dotvault init\n  dotvault init git@github.com:me/dotfiles.git",
		GroupID: "remote",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			v, res, err := vault.Init(cmd.Context(), vault.Options{}, url)
			if err != nil {
				return err
			}
			defer func() { _ = v.Close() }()
			return a.finish(res)
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <path>...",
		Short:   MsgAddShort,
		Long:    MsgAddLong,
		Example: "  dotvault add ~/.bashrc ~/.config/nvim\n  dotvault add '~/.config/fish/**/*.fish'",
		GroupID: "files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Add(ctx, args)
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <path>...",
		Aliases: []string{"rm"},
		Short:   MsgRemoveShort,
		Long:    MsgRemoveLong,
		GroupID: "files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Remove(ctx, args)
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   MsgStatusShort,
		GroupID: "files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := vault.Open(cmd.Context(), vault.Options{})
			if err != nil {
				return err
			}
			defer func() { _ = v.Close() }()

			report, err := v.Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderer.RenderResult(report)
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		Short:   MsgSyncShort,
		Long:    MsgSyncLong,
		GroupID: "remote",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Sync(ctx)
			})
		},
	}
}

func newPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "pull",
		Short:   MsgPullShort,
		GroupID: "remote",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Pull(ctx)
			})
		},
	}
}

func newPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "push",
		Short:   MsgPushShort,
		GroupID: "remote",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Push(ctx)
			})
		},
	}
}

func newUndoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "undo",
		Short:   MsgUndoShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Undo(ctx)
			})
		},
	}
}

func newGitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:                "git -- <args>...",
		Short:              MsgGitShort,
		Long:               MsgGitLong,
		Example:            "  dotvault git -- log --oneline\n  dotvault git -- remote -v",
		GroupID:            "misc",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && args[0] == "--" {
				args = args[1:]
			}
			if len(args) == 0 {
				return errors.New(errors.ErrInvalidInput, "no git arguments given")
			}
			streams := repository.Streams{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Git(ctx, args, streams)
			})
		},
	}
}

func newDeinitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "deinit",
		Short:   MsgDeinitShort,
		Long:    MsgDeinitLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(cmd, func(ctx context.Context, v *vault.Vault) (*types.Result, error) {
				return v.Deinit(ctx)
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat, version.Version, version.Commit, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
