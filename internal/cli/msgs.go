package cli

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	MsgRootShort       = "Track dotfiles in a git repository and keep them linked"
	MsgVersionShort    = "Print version information"
	MsgInitShort       = "Create the vault, or clone it from a remote"
	MsgAddShort        = "Start tracking files"
	MsgRemoveShort     = "Stop tracking files and move them back home"
	MsgSyncShort       = "Link, commit, pull and push"
	MsgPullShort       = "Pull remote changes and link new files"
	MsgPushShort       = "Commit and push local changes"
	MsgStatusShort     = "Show the state of every tracked path"
	MsgUndoShort       = "Undo the last local commit"
	MsgDeinitShort     = "Move every file back home and remove the vault"
	MsgGitShort        = "Run a git command in the repository, then relink"
	MsgCompletionShort = "Generate shell completion script"

	// Flag descriptions
	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagOutput  = "Output format: auto, term, text, json, yaml"

	MsgVersionFormat = "dotvault version %s\n  commit: %s\n  built:  %s\n"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/init-long.txt
	msgInitLongRaw string
	MsgInitLong    = strings.TrimSpace(msgInitLongRaw)

	//go:embed msgs/add-long.txt
	msgAddLongRaw string
	MsgAddLong    = strings.TrimSpace(msgAddLongRaw)

	//go:embed msgs/remove-long.txt
	msgRemoveLongRaw string
	MsgRemoveLong    = strings.TrimSpace(msgRemoveLongRaw)

	//go:embed msgs/sync-long.txt
	msgSyncLongRaw string
	MsgSyncLong    = strings.TrimSpace(msgSyncLongRaw)

	//go:embed msgs/deinit-long.txt
	msgDeinitLongRaw string
	MsgDeinitLong    = strings.TrimSpace(msgDeinitLongRaw)

	//go:embed msgs/git-long.txt
	msgGitLongRaw string
	MsgGitLong    = strings.TrimSpace(msgGitLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
