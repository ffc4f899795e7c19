package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmangroup/snowball/internal/cli/config"
	"github.com/jmangroup/snowball/internal/state"
)

// setupProject creates a project directory with compiled models, makes it
// the CWD, and loads a config pointing at it. Extra env vars layer on top
// of the defaults.
func setupProject(t *testing.T, models map[string]string, env map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	compiled := filepath.Join(dir, "target", "compiled")
	require.NoError(t, os.MkdirAll(compiled, 0o755))
	for name, sql := range models {
		require.NoError(t, os.WriteFile(filepath.Join(compiled, name+".sql"), []byte(sql), 0o644))
	}

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("SNOWBALL_FORMATTER", "none")
	t.Setenv("SNOWBALL_OUTPUT", "markdown")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	return cfg
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestBuildCommand(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"monthly_arr": "SELECT amount FROM payments",
	}, nil)

	out, err := execute(t, NewBuildCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "monthly_arr")
	assert.Contains(t, out, "completed")

	data, err := os.ReadFile(filepath.Join(cfg.OutDir, "monthly_arr.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE OR ALTER PROCEDURE dbo.sp_monthly_arr")
}

func TestBuildCommand_JSONOutput(t *testing.T) {
	setupProject(t, map[string]string{
		"orders": "SELECT id FROM raw_orders",
	}, map[string]string{
		"SNOWBALL_OUTPUT":   "json",
		"SNOWBALL_PLATFORM": "snowflake",
	})

	out, err := execute(t, NewBuildCommand())
	require.NoError(t, err)

	var summary struct {
		RunID    string `json:"run_id"`
		Platform string `json:"platform"`
		Status   string `json:"status"`
		Models   []struct {
			Model  string `json:"model"`
			Status string `json:"status"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "snowflake", summary.Platform)
	assert.Equal(t, "completed", summary.Status)
	require.Len(t, summary.Models, 1)
	assert.Equal(t, "orders", summary.Models[0].Model)
}

func TestBuildCommand_PartialFailure(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"broken": "   \n",
		"good":   "SELECT 1 AS n FROM t",
	}, nil)

	out, err := execute(t, NewBuildCommand())
	require.Error(t, err)
	assert.Contains(t, out, "failed")

	// The healthy model still builds.
	assert.FileExists(t, filepath.Join(cfg.OutDir, "good.sql"))
	assert.NoFileExists(t, filepath.Join(cfg.OutDir, "broken.sql"))
}

func TestNotebooksCommand(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"sessions": "SELECT session_id FROM events",
	}, map[string]string{
		"SNOWBALL_PLATFORM": "databricks",
	})

	_, err := execute(t, NewNotebooksCommand())
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(cfg.OutDir, "sessions.sql"))
	nb, err := os.ReadFile(filepath.Join(cfg.OutDir, "notebooks", "sessions.ipynb"))
	require.NoError(t, err)
	assert.Contains(t, string(nb), "%%sql")
}

func TestListCommand(t *testing.T) {
	setupProject(t, map[string]string{
		"customers": "SELECT 1",
		"orders":    "SELECT 2",
	}, nil)

	out, err := execute(t, NewListCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "customers")
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "2 model(s)")
}

func TestRunsCommand(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"orders": "SELECT id FROM raw_orders",
	}, nil)

	_, err := execute(t, NewBuildCommand())
	require.NoError(t, err)

	out, err := execute(t, NewRunsCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "sqlserver")
	assert.Contains(t, out, "completed")

	// Look up the run ID from the manifest for the detail view.
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(cfg.StatePath))
	runs, err := store.ListRuns(1)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)

	out, err = execute(t, NewRunsCommand(), runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "success")
}

func TestRunsCommand_EmptyManifest(t *testing.T) {
	setupProject(t, nil, nil)

	out, err := execute(t, NewRunsCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet")
}

// chdir changes the working directory for the test and restores the
// previous one on cleanup (stand-in for t.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
