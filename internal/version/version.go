package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X ...".
var (
	App       = "NacionMX Postulaciones"
	Version   string
	GitCommit string
	BuildTime string
)

// GetVersion returns the release version, or "dev" for local builds.
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// PrintVersion writes the build identification block for the -version flag.
func PrintVersion() {
	fmt.Printf("%s version %s\n", App, GetVersion())
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		fmt.Printf("Git commit: %s\n", commit)
	}
	if BuildTime != "" {
		fmt.Printf("Build time: %s\n", BuildTime)
	}
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("Built for: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
