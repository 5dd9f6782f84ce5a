package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	APIKey  string        `split_words:"true" required:"true"`
	Retries int           `split_words:"true" default:"2"`
	Timeout time.Duration `split_words:"true" default:"30s"`
}

func TestNewReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_API_KEY=from-file\nCFGTEST_RETRIES=4\n"), 0o600))

	SetEnvFile(path)
	t.Cleanup(func() {
		SetEnvFile("")
		os.Unsetenv("CFGTEST_API_KEY")
		os.Unsetenv("CFGTEST_RETRIES")
	})

	conf, err := New[testConfig]("CFGTEST")
	require.NoError(t, err)
	assert.Equal(t, "from-file", conf.APIKey)
	assert.Equal(t, 4, conf.Retries)
	assert.Equal(t, 30*time.Second, conf.Timeout)
}

func TestNewKeepsExistingEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGKEEP_API_KEY=from-file\n"), 0o600))

	t.Setenv("CFGKEEP_API_KEY", "from-env")
	SetEnvFile(path)
	t.Cleanup(func() { SetEnvFile("") })

	conf, err := New[testConfig]("CFGKEEP")
	require.NoError(t, err)
	assert.Equal(t, "from-env", conf.APIKey)
}

func TestNewMissingRequired(t *testing.T) {
	SetEnvFile("")
	_, err := New[testConfig]("CFGMISSING")
	require.Error(t, err)
}

func TestNewExplicitFileMissing(t *testing.T) {
	SetEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	t.Cleanup(func() { SetEnvFile("") })

	_, err := New[testConfig]("CFGTEST")
	require.Error(t, err)
}

func TestMustNewPanics(t *testing.T) {
	SetEnvFile("")
	assert.Panics(t, func() {
		MustNew[testConfig]("CFGPANIC")
	})
}
