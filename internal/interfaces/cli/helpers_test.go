package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolateEnv blanks the variables the config loader reads and moves into a
// temp directory so that no local config file is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, n := range []string{
		"CI_SERVER_PORT", "PORT", "CI_SERVER_MODE", "NODE_ENV", "APP_ENV",
		"CI_DATA_SOURCE_URL", "DATABASE_URL", "SUPABASE_URL",
		"CI_DATA_SOURCE_KEY", "SUPABASE_ANON_KEY", "SUPABASE_KEY",
		"CI_LOG_LEVEL", "CI_RATE_LIMIT_REDIS_ADDR",
	} {
		t.Setenv(n, "")
	}
	t.Setenv("HOME", t.TempDir())

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

const quietConfig = `
log:
  level: error
  format: console
`

func withDataSource(url string) string {
	return strings.TrimSpace(quietConfig) + "\ndata_source:\n  url: \"" + url + "\"\n"
}
