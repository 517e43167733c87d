package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in logs, the journal and NATS client names.
const Name = "lightnode"

var (
	// Version is set via ldflags during build.
	Version = "dev"
	// GitCommit is set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is set via ldflags during build.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns e.g. "lightnode dev (unknown)".
func String() string {
	return fmt.Sprintf("%s %s (%s)", Name, Version, GitCommit)
}

// ClientName names a connection opened by component, e.g. "lightnode-bridge".
func ClientName(component string) string {
	return Name + "-" + component
}
