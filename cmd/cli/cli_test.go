package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/shortener/cmd"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd.RootCmd.SetOut(out)
	cmd.RootCmd.SetErr(io.Discard)
	cmd.RootCmd.SetArgs(args)
	err := cmd.RootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Setenv("DATABASE_NAME", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("CACHE_DRIVER", "none")
	t.Setenv("LOG_LEVEL", "panic")

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Database migrations executed successfully.")

	out, err = execute(t, "create", "--url", "https://example.com/cli", "--alias", "cli-alias", "--expires-in", "48h")
	require.NoError(t, err)
	assert.Contains(t, out, "Code: cli-alias")
	assert.Contains(t, out, "/links/cli-alias")

	_, err = execute(t, "create", "--url", "https://example.com/cli", "--alias", "cli-alias", "--expires-in", "0s")
	assert.Error(t, err, "alias already taken")

	_, err = execute(t, "create", "--url", "not a url", "--alias", "", "--expires-in", "0s")
	assert.Error(t, err)

	out, err = execute(t, "stats", "cli-alias")
	require.NoError(t, err)
	assert.Contains(t, out, "URL longue: https://example.com/cli")
	assert.Contains(t, out, "Total de clics: 0")

	_, err = execute(t, "stats", "unknown1")
	assert.Error(t, err)

	out, err = execute(t, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "0 expired link(s) removed.")
}
