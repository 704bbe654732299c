// Package version reports build metadata. Release builds set the variables
// with -ldflags "-X"; other builds fall back to the VCS stamp Go embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info is the resolved build metadata.
type Info struct {
	Version string
	Commit  string
	Date    string
	Dirty   bool
	Go      string
}

// Get merges the linker-set variables with the embedded build info.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version()}
	if build, ok := debug.ReadBuildInfo(); ok {
		info = fromBuild(info, build)
	}
	return info
}

func fromBuild(info Info, build *debug.BuildInfo) Info {
	if info.Version == "dev" && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = setting.Value
			}
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		}
	}
	return info
}

func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		commit = "unknown"
	}
	if i.Dirty {
		commit += "-dirty"
	}
	date := i.Date
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("secondeye %s (commit %s, built %s, %s)", i.Version, commit, date, i.Go)
}

// String is the one-line version banner.
func String() string {
	return Get().String()
}

// UserAgent is the HTTP User-Agent sent to the backend.
func UserAgent() string {
	return "secondeye/" + Get().Version
}
