package ui_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/linkstate"
	"github.com/arthur-debert/dotvault/pkg/types"
	"github.com/arthur-debert/dotvault/pkg/ui"
	"github.com/arthur-debert/dotvault/pkg/vault"
)

func sampleResult() *types.Result {
	res := types.NewResult("add")
	res.Add(types.Step{Name: "track", Target: "~/.bashrc", Outcome: types.OutcomeSuccess, Message: "moved into repository and linked"})
	res.AddError("track", "~/.vimrc", errors.New(errors.ErrCollision, "occupied"))
	return res
}

func sampleStatus() *vault.StatusReport {
	return &vault.StatusReport{
		Home:   "/home/me",
		Root:   "/home/me/.dotvault",
		Remote: "git@example.com:me/dotfiles.git",
		Entries: []linkstate.Entry{
			{Original: "/home/me/.bashrc", State: types.StateLinked},
			{Original: "/home/me/.vimrc", State: types.StateBroken},
		},
		Orphans: []string{"~/.old"},
		Changes: []string{".bashrc"},
	}
}

func render(t *testing.T, format ui.Format, v interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	r, err := ui.NewRenderer(format, &buf)
	require.NoError(t, err)
	require.NoError(t, r.RenderResult(v))
	return buf.String()
}

func TestNewRendererAutoOnBufferIsText(t *testing.T) {
	out := render(t, ui.FormatAuto, sampleResult())
	assert.Contains(t, out, "success  track      ~/.bashrc: moved into repository and linked")
}

func TestNewRendererUnknownFormat(t *testing.T) {
	_, err := ui.NewRenderer(ui.Format(42), &bytes.Buffer{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestTextResult(t *testing.T) {
	out := render(t, ui.FormatText, sampleResult())
	assert.Contains(t, out, "failed   track      ~/.vimrc: [COLLISION] occupied")

	res := types.NewResult("sync")
	res.NothingToDo = true
	assert.Contains(t, render(t, ui.FormatText, res), "Nothing to do.")
}

func TestTextStatus(t *testing.T) {
	out := render(t, ui.FormatText, sampleStatus())
	assert.Contains(t, out, "vault: /home/me/.dotvault")
	assert.Contains(t, out, "linked     ~/.bashrc")
	assert.Contains(t, out, "broken     ~/.vimrc")
	assert.Contains(t, out, "not declared:\n  ~/.old")
	assert.Contains(t, out, "uncommitted:\n  .bashrc")
	assert.Contains(t, out, "1 path(s) need attention")
}

func TestTerminalStatusMentionsEveryPath(t *testing.T) {
	out := render(t, ui.FormatTerminal, sampleStatus())
	assert.Contains(t, out, "~/.bashrc")
	assert.Contains(t, out, "~/.vimrc")
	assert.Contains(t, out, "~/.old")
	assert.Contains(t, out, "run dotvault sync")
}

func TestTerminalResult(t *testing.T) {
	out := render(t, ui.FormatTerminal, sampleResult())
	assert.Contains(t, out, "dotvault add")
	assert.Contains(t, out, "~/.bashrc")
	assert.Contains(t, out, "occupied")
}

func TestJSONResult(t *testing.T) {
	out := render(t, ui.FormatJSON, sampleResult())

	var decoded types.Result
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "add", decoded.Command)
	require.Len(t, decoded.Steps, 2)
	assert.Equal(t, errors.ErrCollision, decoded.Steps[1].Code)
}

func TestYAMLStatus(t *testing.T) {
	out := render(t, ui.FormatYAML, sampleStatus())

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "/home/me/.dotvault", decoded["root"])
	entries, ok := decoded["entries"].([]interface{})
	require.True(t, ok)
	assert.Len(t, entries, 2)
}

func TestRenderErrorCarriesCode(t *testing.T) {
	err := errors.New(errors.ErrLocked, "another command is running").WithDetail("path", "/x/dotvault.lock")

	var buf bytes.Buffer
	r, rerr := ui.NewRenderer(ui.FormatJSON, &buf)
	require.NoError(t, rerr)
	require.NoError(t, r.RenderError(err))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "LOCKED", decoded["code"])
	assert.Equal(t, map[string]interface{}{"path": "/x/dotvault.lock"}, decoded["details"])

	buf.Reset()
	r, _ = ui.NewRenderer(ui.FormatText, &buf)
	require.NoError(t, r.RenderError(err))
	assert.Equal(t, "Error: [LOCKED] another command is running\n", buf.String())
}
