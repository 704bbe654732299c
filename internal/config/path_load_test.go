package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathOrder(t *testing.T) {
	home := t.TempDir()
	xdg := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(PathEnv, "/etc/secondeye/bench.jsonc")

	tests := []struct {
		name     string
		explicit string
		env      string
		xdg      string
		want     string
	}{
		{name: "flag wins", explicit: "/tmp/custom.jsonc", env: "/etc/secondeye/bench.jsonc", xdg: xdg, want: "/tmp/custom.jsonc"},
		{name: "flag expands home", explicit: "~/kiosk.jsonc", xdg: xdg, want: filepath.Join(home, "kiosk.jsonc")},
		{name: "env beats xdg", env: " /etc/secondeye/bench.jsonc ", xdg: xdg, want: "/etc/secondeye/bench.jsonc"},
		{name: "env expands home", env: "~/profiles/desk.jsonc", xdg: xdg, want: filepath.Join(home, "profiles", "desk.jsonc")},
		{name: "xdg", xdg: xdg, want: filepath.Join(xdg, "secondeye", "config.jsonc")},
		{name: "home fallback", want: filepath.Join(home, ".config", "secondeye", "config.jsonc")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(PathEnv, tc.env)
			t.Setenv("XDG_CONFIG_HOME", tc.xdg)

			resolved, err := ResolvePath(tc.explicit)
			require.NoError(t, err)
			require.Equal(t, tc.want, resolved)
		})
	}
}

func TestLoadMissingFileDefaultsEverySection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, Default(), loaded.Config)
	require.Equal(t, Sections(), loaded.Defaulted)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
	require.Contains(t, loaded.Warnings[0].Message, Default().Backend.BaseURL)
}

func TestLoadReportsSectionsLeftAtDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`
{
  "backend": {
    "base_url": "http://127.0.0.1:9000",
  },
  "button": {"enable": false}, // no level meter on this unit
}
`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "http://127.0.0.1:9000", loaded.Config.Backend.BaseURL)
	require.False(t, loaded.Config.Button.Enable)
	require.Equal(t, []string{"audio", "camera", "image", "indicator", "metrics", "debug"}, loaded.Defaulted)
	require.Empty(t, loaded.Warnings)
}

func TestLoadWarnsWhenBackendSectionMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"audio": {"input": "usb"}}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, loaded.Defaulted, "backend")
	require.Len(t, loaded.Warnings, 1)
	require.Equal(t, "no backend section; questions go to http://127.0.0.1:8000", loaded.Warnings[0].Message)
}

func TestLoadFollowsPathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend": {"timeout_ms": 4000}}`), 0o600))
	t.Setenv(PathEnv, path)

	loaded, err := Load("")
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, 4000, loaded.Config.Backend.TimeoutMS)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "parse config")
	require.ErrorContains(t, err, path)
}
