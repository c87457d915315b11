// Package buildinfo holds build identifiers set via -ldflags.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns a compact identifier for window titles and log lines.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if c := commit(); c != "" {
		return c
	}
	return "dev"
}

// String describes the build in one line.
func String() string {
	return fmt.Sprintf("trainer %s (commit %s, built %s)", Version, orUnknown(commit()), Date)
}

// commit prefers the linker value and falls back to the VCS stamp.
func commit() string {
	if Commit != "" && Commit != "unknown" {
		return short(Commit)
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return short(s.Value)
		}
	}
	return ""
}

func short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
