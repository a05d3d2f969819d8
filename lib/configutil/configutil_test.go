package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string   `json:"name"`
	Timeout int      `json:"timeout"`
	Tags    []string `json:"tags"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = os.WriteFile(path, []byte(`{
		// comments are allowed
		name: "catalog",
		timeout: 30,
	}`), 0666)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "catalog", Timeout: 30}, cfg)

	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{timeout: 5, tags: ["a"]}`), 0666)
	require.NoError(t, err)

	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "catalog", Timeout: 5, Tags: []string{"a"}}, cfg)
}

func TestReadConfigWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{name: "x"}`), 0666)
	require.NoError(t, err)

	cfg, err := ReadConfigWithDefaults(path, testConfig{Name: "default", Timeout: 30})
	require.NoError(t, err)
	require.Equal(t, "x", cfg.Name)
	require.Equal(t, 30, cfg.Timeout)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("dir", "config.local.json5"), LocalPath(filepath.Join("dir", "config.json5")))
}
