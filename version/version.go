package version

import (
	"runtime/debug"
	"strings"
)

const (
	unknown = "(devel)"

	shortRevision = 12
)

// FromBuildInfo describes the running binary, e.g. "v0.3.0 (4f2c9a1b7d3e+dirty, 2025-06-01T10:00:00Z)".
func FromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknown
	}

	return describe(info)
}

func describe(info *debug.BuildInfo) string {
	version := info.Main.Version
	if version == "" {
		version = unknown
	}

	var revision, ts string

	var dirty bool

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			ts = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if revision == "" {
		return version
	}

	if len(revision) > shortRevision {
		revision = revision[:shortRevision]
	}

	if dirty {
		revision += "+dirty"
	}

	details := []string{revision}
	if ts != "" {
		details = append(details, ts)
	}

	return version + " (" + strings.Join(details, ", ") + ")"
}
