package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBuildFillsUnsetFields(t *testing.T) {
	build := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-09-30T08:15:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := fromBuild(Info{Version: "dev", Go: "go1.25.5"}, build)
	require.Equal(t, Info{
		Version: "v0.3.1",
		Commit:  "0123456789abcdef0123",
		Date:    "2026-09-30T08:15:00Z",
		Dirty:   true,
		Go:      "go1.25.5",
	}, info)
	require.Equal(t, "secondeye v0.3.1 (commit 0123456789ab-dirty, built 2026-09-30T08:15:00Z, go1.25.5)", info.String())
}

func TestFromBuildKeepsLinkerValues(t *testing.T) {
	build := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	}

	info := fromBuild(Info{Version: "1.2.3", Commit: "abc123", Date: "2026-02-18"}, build)
	require.Equal(t, "1.2.3", info.Version)
	require.Equal(t, "abc123", info.Commit)
	require.Equal(t, "2026-02-18", info.Date)

	require.Equal(t, "dev", fromBuild(Info{Version: "dev"}, build).Version)
}

func TestInfoStringWithoutMetadata(t *testing.T) {
	require.Equal(t, "secondeye dev (commit unknown, built unknown, go1.25.5)", Info{Version: "dev", Go: "go1.25.5"}.String())
}

func TestUserAgentUsesLinkerVersion(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	Version = "0.4.0"
	require.Equal(t, "secondeye/0.4.0", UserAgent())
}
