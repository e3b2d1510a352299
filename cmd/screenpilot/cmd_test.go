package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/metalagman/screenpilot/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeTestConfig writes a dry-run config under a temp dir and points
// --config at it.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `executor:
  driver: dryrun
capture:
  dir: ` + filepath.Join(dir, "shots") + `
audit:
  enabled: true
  db_path: ` + filepath.Join(dir, "audit.db") + `
llm:
  default_provider: openai
  providers:
    openai:
      type: openai
      model: gpt-4o-mini
      api_key_env: SCREENPILOT_TEST_UNSET_KEY
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", path)
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCmd_JSON(t *testing.T) {
	out, err := execute(t, parseCmd(), "点击A，然后输入'B'；blah")
	require.NoError(t, err)

	var got struct {
		Actions []struct {
			Action     string         `json:"action"`
			Parameters map[string]any `json:"parameters"`
		} `json:"actions"`
		Skipped []struct {
			Fragment string `json:"fragment"`
		} `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Actions, 2)
	assert.Equal(t, "click", got.Actions[0].Action)
	assert.Equal(t, "A", got.Actions[0].Parameters["target"])
	assert.Equal(t, "type", got.Actions[1].Action)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "blah", got.Skipped[0].Fragment)
}

func TestParseCmd_YAMLAndDescriptors(t *testing.T) {
	out, err := execute(t, parseCmd(), "--format", "yaml", "--json",
		`[{"action":"wait","parameters":{"duration":2}},{"parameters":{}}]`)
	require.NoError(t, err)

	var got struct {
		Actions []map[string]any `yaml:"actions"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "wait", got.Actions[0]["action"])
}

func TestParseCmd_Suggest(t *testing.T) {
	out, err := execute(t, parseCmd(), "--suggest", "滚动")
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "向下滚动")
}

func TestParseCmd_UnknownFormat(t *testing.T) {
	_, err := execute(t, parseCmd(), "--format", "xml", "截图")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", path)

	out, err := execute(t, configCmd(), "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, configCmd(), "init")
	require.Error(t, err)
	_, err = execute(t, configCmd(), "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, configCmd(), "show", "--format", "json")
	require.NoError(t, err)
	var got config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, config.Default().Executor, got.Executor)
	assert.Equal(t, config.Default().Security.AllowedActions, got.Security.AllowedActions)
}

func TestRunCmd_DryRun(t *testing.T) {
	dir := writeTestConfig(t)

	out, err := execute(t, runCmd(), "--no-screenshot", "点击坐标(100, 200)，然后向下滚动5次")
	require.NoError(t, err)
	assert.Contains(t, out, "executed 2 actions")
	assert.Contains(t, out, "source: rules")
	assert.Contains(t, out, "click 100,200")
	assert.Contains(t, out, "scroll 5")

	_, err = os.Stat(filepath.Join(dir, "locks", "ui.lock"))
	require.NoError(t, err)

	out, err = execute(t, historyCmd(), "--type", "action_executed", "--json")
	require.NoError(t, err)
	var events []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "action_executed", events[0]["type"])
}

func TestRunCmd_BlockedInstruction(t *testing.T) {
	writeTestConfig(t)

	out, err := execute(t, runCmd(), "--no-screenshot", "--json", "输入'eval(1)'")
	require.ErrorIs(t, err, errInstructionFailed)

	var got struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Success)
	assert.True(t, strings.HasPrefix(got.Message, "instruction blocked"), got.Message)
}

func TestRunCmd_RequiresInstruction(t *testing.T) {
	writeTestConfig(t)

	_, err := execute(t, runCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction required")
}

func TestRunCmd_Interactive(t *testing.T) {
	writeTestConfig(t)

	cmd := runCmd()
	cmd.SetIn(strings.NewReader("help\n\npress tab\nquit\n截图\n"))
	out, err := execute(t, cmd, "-i", "--no-screenshot")
	require.NoError(t, err)
	assert.Contains(t, out, "等待3秒")
	assert.Contains(t, out, "executed 1 actions")
	assert.Contains(t, out, "key Tab")
	assert.NotContains(t, out, "screenshot:")
}

func TestHistoryPrune(t *testing.T) {
	writeTestConfig(t)

	_, err := execute(t, runCmd(), "--no-screenshot", "向下滚动")
	require.NoError(t, err)

	out, err := execute(t, historyCmd(), "prune", "--keep-last", "1", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would delete 0 sessions")

	out, err = execute(t, historyCmd(), "prune", "--keep-last", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 sessions")
	assert.Contains(t, out, "kept 1")
}

func TestHistoryCmd_AuditDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audit:\n  enabled: false\n"), 0o600))
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", path)

	_, err := execute(t, historyCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit is disabled")
}

func TestStatusCmd(t *testing.T) {
	writeTestConfig(t)

	out, err := execute(t, statusCmd())
	require.NoError(t, err)

	var got statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, config.DriverDryRun, got.Driver)
	assert.Equal(t, 1920, got.Screen.Width)
	require.Len(t, got.Providers, 1)
	assert.Equal(t, "openai", got.Providers[0].Name)
	assert.False(t, got.Providers[0].Available)
	assert.NotEmpty(t, got.Session)
	assert.Contains(t, got.Tools, "tesseract")
}
