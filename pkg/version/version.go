// Package version carries the build identity of the testfang binary.
package version

import (
	"runtime/debug"
	"strings"
)

const unknown = "<unknown>"

// Set through -ldflags "-X github.com/Sumatoshi-tech/testfang/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills whatever ldflags left unset from the module build info.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = strings.TrimPrefix(info.Main.Version, "v")
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String formats the identity for "testfang version".
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
