package version

import (
	"fmt"
	"runtime"
)

// Version indicates the version of the binary, such as a release number or semantic version.
// Set via -ldflags "-X github.com/openpdu/wattboxctl/internal/version.Version=v1.0.0"
var Version string

// GitCommit stores the latest Git commit hash.
// Set via -ldflags "-X github.com/openpdu/wattboxctl/internal/version.GitCommit=$(git rev-parse HEAD)"
var GitCommit string

// BuildTime stores the build timestamp in UTC.
// Set via -ldflags "-X github.com/openpdu/wattboxctl/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime string

func VersionInfo() string {
	return fmt.Sprintf("Version: %s, Git Commit: %s, Build Time: %s, Go Version: %s",
		Version, GitCommit, BuildTime, runtime.Version())
}
