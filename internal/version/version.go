// Package version reports the tabedit build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule  = "pkt.systems/tabedit"
	unknownVersion = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/tabedit/internal/version.buildVersion=...".
var buildVersion = ""

var readBuildInfo = debug.ReadBuildInfo

// Current returns the best available version string without a dirty suffix.
func Current() string {
	return resolve(false)
}

// CurrentWithDirty includes "+dirty" for builds from a modified tree.
func CurrentWithDirty() string {
	return resolve(true)
}

// Module returns the main module path.
func Module() string {
	if info, ok := readBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// Banner is the one-line description printed by "tabedit version".
func Banner() string {
	return fmt.Sprintf("tabedit %s (%s, %s/%s)", CurrentWithDirty(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func resolve(includeDirty bool) string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return trimDirty(v, includeDirty)
	}
	info, ok := readBuildInfo()
	if !ok {
		return unknownVersion
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return trimDirty(v, includeDirty)
	}
	if v := pseudoVersion(info); v != "" {
		return trimDirty(v, includeDirty)
	}
	return unknownVersion
}

func trimDirty(v string, includeDirty bool) string {
	if includeDirty {
		return v
	}
	return strings.TrimSuffix(v, "+dirty")
}

// pseudoVersion derives a Go-style pseudo version from VCS build settings.
func pseudoVersion(info *debug.BuildInfo) string {
	if info == nil {
		return ""
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	revision := settings["vcs.revision"]
	stamp, err := time.Parse(time.RFC3339, settings["vcs.time"])
	if revision == "" || err != nil {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	v := "v0.0.0-" + stamp.UTC().Format("20060102150405") + "-" + revision
	if settings["vcs.modified"] == "true" {
		v += "+dirty"
	}
	return v
}
