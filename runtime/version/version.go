// Package version reports the build version of the running binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set through linker options, e.g. -X github.com/prysmaticlabs/voteperf/runtime/version.gitTag=v0.2.0
var (
	gitCommit = ""
	gitTag    = "dev"
	buildDate = ""
)

// Version returns the version string of this build.
func Version() string {
	commit, date := gitCommit, buildDate
	if commit == "" {
		commit, date = vcsInfo()
	}
	if commit == "" {
		commit = "local"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("voteperf/%s/%s (%s). Built at: %s", gitTag, commit, runtime.Version(), date)
}

// BuildData returns the tag and short commit.
func BuildData() string {
	commit := gitCommit
	if commit == "" {
		commit, _ = vcsInfo()
	}
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("%s/%s", gitTag, commit)
}

func vcsInfo() (commit, date string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.time":
			date = s.Value
		}
	}
	return commit, date
}
