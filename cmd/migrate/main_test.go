package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectAction(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		want    string
		wantErr string
	}{
		{name: "up", opts: options{up: true, force: -1}, want: "up"},
		{name: "down", opts: options{down: true, force: -1}, want: "down"},
		{name: "negative steps", opts: options{steps: -2, force: -1}, want: "steps"},
		{name: "version", opts: options{version: true, force: -1}, want: "version"},
		{name: "force zero", opts: options{force: 0}, want: "force"},
		{name: "nothing", opts: options{force: -1}, wantErr: "no action specified"},
		{name: "up and down", opts: options{up: true, down: true, force: -1}, wantErr: "only one action"},
		{name: "up and force", opts: options{up: true, force: 3}, wantErr: "got 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, err := selectAction(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, act.name)
			assert.NotNil(t, act.run)
		})
	}
}

func TestRun_RejectsMissingAction(t *testing.T) {
	err := run([]string{})
	require.ErrorIs(t, err, errNoAction)
}

func TestRun_RejectsUnknownFlag(t *testing.T) {
	assert.Error(t, run([]string{"-sideways"}))
}
