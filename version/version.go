// Package version reports build information set at link time, e.g.
//
//	go build -ldflags "-X github.com/atlasextract/atlas/version.GitRelease=v0.3.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// GitRelease is the release tag the binary was built from.
	GitRelease = "dev"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = ""
	// GitCommitDate is the commit timestamp.
	GitCommitDate = ""
	// GoInfo is the Go toolchain and platform.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)

func init() {
	if GitCommit != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			GitCommit = s.Value
		case "vcs.time":
			if GitCommitDate == "" {
				GitCommitDate = s.Value
			}
		}
	}
}
