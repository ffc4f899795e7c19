package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetForTest(t *testing.T) {
	t.Helper()
	ResetConfig()
	t.Cleanup(ResetConfig)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("compiled-dir", "", "")
	fs.String("mapping", "", "")
	fs.String("out-dir", "", "")
	fs.String("notebooks-dir", "", "")
	fs.String("platform", "", "")
	fs.String("schema", "", "")
	fs.Int("workers", 0, "")
	fs.String("formatter", "", "")
	fs.Duration("format-timeout", 0, "")
	fs.String("state", "", "")
	fs.Bool("verbose", false, "")
	fs.String("output", "", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetForTest(t)
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", cfg.Platform)
	assert.Equal(t, "dbo", cfg.Schema)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "sqlfluff fix --force", cfg.Formatter)
	assert.Equal(t, 30*time.Second, cfg.FormatTimeout)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.True(t, filepath.IsAbs(cfg.CompiledDir))
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "target", "compiled"), cfg.CompiledDir)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, ".snowball", "state.db"), cfg.StatePath)
	assert.Empty(t, cfg.Mapping)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	yaml := `
platform: snowflake
schema: analytics
workers: 4
format_timeout: 45s
mapping: mappings/dim.csv
`
	path := filepath.Join(dir, "snowball.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "snowflake", cfg.Platform)
	assert.Equal(t, "analytics", cfg.Schema)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 45*time.Second, cfg.FormatTimeout)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "mappings", "dim.csv"), cfg.Mapping)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_FindsFileInCWD(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("snowball.yml", []byte("platform: redshift\n"), 0o644))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "redshift", cfg.Platform)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "snowball.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platform: snowflake\n"), 0o644))
	t.Setenv("SNOWBALL_PLATFORM", "databricks")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "databricks", cfg.Platform)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	resetForTest(t)
	chdir(t, t.TempDir())
	t.Setenv("SNOWBALL_PLATFORM", "databricks")
	t.Setenv("SNOWBALL_SCHEMA", "staging")

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--platform", "fabric"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	// Flag wins over env; untouched keys keep the env value.
	assert.Equal(t, "fabric", cfg.Platform)
	assert.Equal(t, "staging", cfg.Schema)
}

func TestLoadConfig_StateFlagMapsToStatePath(t *testing.T) {
	resetForTest(t)
	chdir(t, t.TempDir())

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--state", "custom/state.db"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	cwd, _ := os.Getwd()
	assert.Equal(t, filepath.Join(cwd, "custom", "state.db"), cfg.StatePath)
}

func TestLoadConfig_FlagPathsResolveAgainstCWD(t *testing.T) {
	resetForTest(t)
	projectDir := t.TempDir()
	path := filepath.Join(projectDir, "snowball.yaml")
	require.NoError(t, os.WriteFile(path, []byte("out_dir: artifacts\n"), 0o644))

	workDir := t.TempDir()
	chdir(t, workDir)

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--compiled-dir", "compiled"}))

	cfg, err := LoadConfig(path, fs)
	require.NoError(t, err)

	cwd, _ := os.Getwd()
	assert.Equal(t, filepath.Join(cwd, "compiled"), cfg.CompiledDir)
	// Config-file paths stay anchored to the project root.
	assert.Equal(t, filepath.Join(projectDir, "artifacts"), cfg.OutDir)
}

func TestLoadConfig_InvalidPlatform(t *testing.T) {
	resetForTest(t)
	chdir(t, t.TempDir())
	t.Setenv("SNOWBALL_PLATFORM", "oracle")

	_, err := LoadConfig("", nil)
	assert.ErrorContains(t, err, "oracle")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad platform", func(c *Config) { c.Platform = "teradata" }, "teradata"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative timeout", func(c *Config) { c.FormatTimeout = -time.Second }, "format_timeout"},
		{"bad output", func(c *Config) { c.OutputFormat = "xml" }, "output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Platform:      DefaultPlatform,
				Workers:       DefaultWorkers,
				FormatTimeout: DefaultFormatTimeout,
				OutputFormat:  DefaultOutput,
			}
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestGetLogger_FallsBackToDiscard(t *testing.T) {
	logger := GetLogger(context.Background())
	require.NotNil(t, logger)
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
