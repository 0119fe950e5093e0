package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/jobwrecker/internal/model"
)

func TestCheckConvertFlags(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		server    string
		job       string
		view      string
		configURL string
		wantErr   string
		wantURL   string
	}{
		{name: "file with job", file: "config.xml", job: "app"},
		{name: "file with view", file: "view.xml", view: "Team"},
		{name: "file without name", file: "config.xml", wantErr: "requires a job name"},
		{name: "file and server", file: "config.xml", server: "http://ci", job: "app", wantErr: "not both"},
		{name: "job and view", server: "http://ci", job: "app", view: "Team", wantErr: "not both"},
		{name: "nothing", wantErr: "is required"},
		{name: "server from config", configURL: "http://ci", wantURL: "http://ci"},
		{name: "file ignores config server", file: "config.xml", job: "app", configURL: "http://ci"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			convertFile, convertServer, convertJobName, convertViewName = tt.file, tt.server, tt.job, tt.view
			cfg = model.DefaultConfig()
			cfg.Server.URL = tt.configURL

			err := checkConvertFlags()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, convertServer)
		})
	}
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	c := model.DefaultConfig()
	c.Workers = 8
	c.OutputDir = "from-file"

	require.NoError(t, rootCmd.ParseFlags([]string{"--workers", "2"}))
	t.Cleanup(func() {
		workers = 4
		rootCmd.Flags().Lookup("workers").Changed = false
	})

	applyFlags(rootCmd, c)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, "from-file", c.OutputDir)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		l, err := newLogger(format, true)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}
