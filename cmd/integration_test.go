package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runIntegrationSet executes "integration set" for user u1. Every flag is
// reset first since cobra keeps flag values between executions.
func runIntegrationSet(t *testing.T, args ...string) error {
	t.Helper()

	base := []string{"integration", "set", "--user", "u1",
		"--provider=", "--token=", "--refresh-token=", "--jira-url="}
	rootCmd.SetArgs(append(base, args...))
	defer rootCmd.SetArgs(nil)

	return Execute()
}

func TestIntegrationSetValidation(t *testing.T) {
	t.Setenv("COVALYNCE_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "Unsupported provider",
			args:    []string{"--provider", "trello", "--token", "abc"},
			wantErr: `unsupported provider "trello"`,
		},
		{
			name:    "JIRA URL on GitHub",
			args:    []string{"--provider", "github", "--jira-url", "https://acme.atlassian.net"},
			wantErr: "--jira-url only applies to the jira provider",
		},
		{
			name:    "Nothing to store",
			args:    []string{"--provider", "jira"},
			wantErr: "nothing to store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runIntegrationSet(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIntegrationSetThenList(t *testing.T) {
	t.Setenv("COVALYNCE_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))

	require.NoError(t, runIntegrationSet(t, "--provider", "jira", "--token", "jira-secret-token"))
	require.NoError(t, runIntegrationSet(t, "--provider", "jira", "--jira-url", "https://acme.atlassian.net"))
	require.NoError(t, runIntegrationSet(t, "--provider", "github", "--token", "gho_abcdef"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"integration", "list", "--user", "u1"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, Execute())

	var rows []struct {
		Provider models.Provider   `json:"provider"`
		Token    string            `json:"token"`
		Metadata map[string]string `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 2)

	assert.Equal(t, models.ProviderGitHub, rows[0].Provider)
	assert.Equal(t, "gho_...***", rows[0].Token)
	assert.Empty(t, rows[0].Metadata)

	assert.Equal(t, models.ProviderJira, rows[1].Provider)
	assert.Equal(t, "jira...***", rows[1].Token)
	assert.Equal(t, "https://acme.atlassian.net", rows[1].Metadata["jira_url"])
	assert.NotContains(t, out.String(), "jira-secret-token")
}

func TestIntegrationListEmpty(t *testing.T) {
	t.Setenv("COVALYNCE_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"integration", "list", "--user", "nobody"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, Execute())
	assert.JSONEq(t, "[]", out.String())
}
