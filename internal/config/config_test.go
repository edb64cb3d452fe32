package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/mcversion/internal/companion"
	"github.com/liangyou/mcversion/internal/installer"
	"github.com/liangyou/mcversion/internal/remote"
	"github.com/liangyou/mcversion/internal/watch"
)

func homeAt(dir string) Option {
	return WithHomeDir(func() (string, error) { return dir, nil })
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := Load(homeAt(home))
	require.NoError(t, err)

	root := filepath.Join(home, ".mcversion")
	assert.Equal(t, root, cfg.RootDir)
	assert.Equal(t, remote.DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, watch.DefaultInterval, cfg.Interval)
	assert.Equal(t, filepath.Join(root, "known_versions.txt"), cfg.KnownFile)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Companion.Enabled)
	assert.Equal(t, companion.DefaultListenAddr, cfg.Companion.Listen)
	assert.Equal(t, companion.DefaultCacheTTL, cfg.Companion.CacheTTL)
	assert.Equal(t, "script", cfg.Install.Autostart)
	assert.Equal(t, installer.DefaultDownloadURL(runtime.GOOS), cfg.Install.DownloadURL)
}

func TestLoadMergesUserConfigFile(t *testing.T) {
	home := t.TempDir()
	root := filepath.Join(home, ".mcversion")
	require.NoError(t, os.MkdirAll(root, 0o755))
	yaml := []byte("endpoint: http://example.test:9000/\ninterval: 5m\ncompanion:\n  enabled: false\nlog:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yaml"), yaml, 0o644))

	cfg, err := Load(homeAt(home))
	require.NoError(t, err)

	assert.Equal(t, "http://example.test:9000", cfg.Endpoint)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.False(t, cfg.Companion.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadExplicitConfigFileMustExist(t *testing.T) {
	_, err := Load(homeAt(t.TempDir()), WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	home := t.TempDir()
	file := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("known_file: /from/file\nnotify:\n  app_name: File\n"), 0o644))

	t.Setenv("MCVERSION_KNOWN_FILE", "/from/env")
	t.Setenv("MCVERSION_NOTIFY_APP_NAME", "Env")

	cfg, err := Load(homeAt(home), WithConfigFile(file))
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.KnownFile)
	assert.Equal(t, "Env", cfg.Notify.AppName)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MCVERSION_ENDPOINT", "http://env.test")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("endpoint", "", "")
	fs.Duration("interval", 0, "")
	fs.String("dir", "", "")
	require.NoError(t, fs.Parse([]string{"--endpoint", "http://flag.test", "--dir", "/opt/mc"}))

	cfg, err := Load(homeAt(home), WithFlags(fs))
	require.NoError(t, err)

	assert.Equal(t, "http://flag.test", cfg.Endpoint)
	assert.Equal(t, "/opt/mc", cfg.Install.Dir)
	assert.Equal(t, watch.DefaultInterval, cfg.Interval, "unset flag must not override the default")
}
