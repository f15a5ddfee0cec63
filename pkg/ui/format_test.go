package ui_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/ui"
)

func TestFormatRoundTripsThroughName(t *testing.T) {
	for _, f := range []ui.Format{ui.FormatAuto, ui.FormatTerminal, ui.FormatText, ui.FormatJSON, ui.FormatYAML} {
		parsed, err := ui.ParseFormat(f.String())
		require.NoError(t, err, f.String())
		assert.Equal(t, f, parsed)
	}
	assert.Equal(t, "unknown", ui.Format(999).String())
}

func TestParseFormatAliases(t *testing.T) {
	tests := []struct {
		input string
		want  ui.Format
	}{
		{"", ui.FormatAuto},
		{"terminal", ui.FormatTerminal},
		{"TERM", ui.FormatTerminal},
		{"plain", ui.FormatText},
		{"Json", ui.FormatJSON},
		{"yml", ui.FormatYAML},
		{" yaml ", ui.FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ui.ParseFormat(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormatUnknown(t *testing.T) {
	_, err := ui.ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "unknown format: xml")
}

func TestDetectFormat(t *testing.T) {
	t.Run("NO_COLOR forces text", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		assert.Equal(t, ui.FormatText, ui.DetectFormat(os.Stdout))
	})

	t.Run("dumb terminal forces text", func(t *testing.T) {
		t.Setenv("TERM", "dumb")
		assert.Equal(t, ui.FormatText, ui.DetectFormat(os.Stdout))
	})

	t.Run("regular file is not a terminal", func(t *testing.T) {
		f, err := os.CreateTemp(t.TempDir(), "out")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		assert.Equal(t, ui.FormatText, ui.DetectFormat(f))
	})
}
