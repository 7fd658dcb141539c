// Package buildinfo exposes the build-time stamped version and
// directory configuration described in spec.md §6: GIT_VERSION,
// BIN_DIR and CONF_DIR are baked into the binary at link time.
package buildinfo

import "runtime/debug"

// Set at build time via:
//
//	-ldflags "-X github.com/hostmobility/insight-agent/internal/buildinfo.GitVersion=$(git describe --always --dirty)"
var (
	GitVersion string
	BinDir     string
	ConfDir    = "/etc/opt/host-insight-client"
)

// Version returns the build-stamped git describe string, falling back
// to the Go module's own VCS metadata when the binary was built
// without the ldflags above (e.g. `go run` during development).
func Version() string {
	if GitVersion != "" {
		return GitVersion
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	rev := settingOrDefault(bi, "vcs.revision", "unknown")
	if settingOrDefault(bi, "vcs.modified", "false") == "true" {
		rev += "-dirty"
	}
	return rev
}

func settingOrDefault(bi *debug.BuildInfo, key, def string) string {
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return def
}
