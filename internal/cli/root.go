// Package cli wires the vault operations to cobra commands. Every command
// renders its result and maps it to a process exit code.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/dotvault/internal/version"
	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/paths"
	"github.com/arthur-debert/dotvault/pkg/types"
	"github.com/arthur-debert/dotvault/pkg/ui"
)

// exitError carries a non-zero exit code for a command that already
// rendered its result.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds the state shared by every command of one invocation
type app struct {
	verbosity int
	output    string
	renderer  ui.Renderer
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "dotvault",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(a.verbosity, logFile())
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			logging.LogCommand(cmd.CommandPath(), args)

			format, err := ui.ParseFormat(a.output)
			if err != nil {
				return err
			}
			a.renderer, err = ui.NewRenderer(format, cmd.OutOrStdout())
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New(errors.ErrInvalidInput, "no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "auto", MsgFlagOutput)

	rootCmd.AddGroup(&cobra.Group{ID: "files", Title: "FILES:"})
	rootCmd.AddGroup(&cobra.Group{ID: "remote", Title: "REMOTE:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newStatusCmd(a),
		newSyncCmd(a),
		newPullCmd(a),
		newPushCmd(a),
		newUndoCmd(a),
		newGitCmd(a),
		newDeinitCmd(a),
		newVersionCmd(),
		newCompletionCmd(),
	)

	return rootCmd
}

// logFile is the log path under the state directory, or "" when the
// paths cannot be determined.
func logFile() string {
	p, err := paths.New("", "")
	if err != nil {
		return ""
	}
	return p.LogFilePath()
}

// Run executes the command line and returns the process exit code.
// Errors that did not produce a result are rendered to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return types.ExitSuccess
	}

	var exit *exitError
	if stderrors.As(err, &exit) {
		return exit.code
	}

	renderError(rootCmd, stderr, err)
	return types.ExitCodeForError(err)
}

// renderError uses the requested output format when it could be parsed
func renderError(rootCmd *cobra.Command, stderr io.Writer, err error) {
	format := ui.FormatText
	if flag := rootCmd.PersistentFlags().Lookup("output"); flag != nil {
		if f, perr := ui.ParseFormat(flag.Value.String()); perr == nil && f != ui.FormatAuto {
			format = f
		}
	}
	r, rerr := ui.NewRenderer(format, stderr)
	if rerr != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return
	}
	_ = r.RenderError(err)
}
