package boot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
logLevel = "DEBUG"
outDir = "site"

[fetcher]
timeout = 3000
proxy = ["http://127.0.0.1:8888"]
`), 0o644))

	env, err := Setup(cfgPath, "")
	require.NoError(t, err)
	defer env.Close()
	assert.Equal(t, "site", env.Cfg.OutDir)
	assert.Equal(t, 3000, env.Cfg.Fetcher.Timeout)

	f, err := env.Fetcher()
	require.NoError(t, err)
	store, err := env.Tasks(f)
	require.NoError(t, err)
	assert.Len(t, store.List(), 5)

	env2, err := Setup(filepath.Join(dir, "missing.toml"), filepath.Join(dir, "out"))
	require.NoError(t, err)
	defer env2.Close()
	assert.Equal(t, filepath.Join(dir, "out"), env2.Cfg.OutDir)
	assert.Equal(t, "INFO", env2.Cfg.LogLevel)
}

func TestSetup_Errors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`logLevel = "LOUD"`), 0o644))
	_, err := Setup(cfgPath, "")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(cfgPath, []byte("[fetcher]\nproxy = [\"://bad\"]\n"), 0o644))
	env, err := Setup(cfgPath, "")
	require.NoError(t, err)
	defer env.Close()
	_, err = env.Fetcher()
	assert.Error(t, err)
}
