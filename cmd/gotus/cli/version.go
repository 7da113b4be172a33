package cli

import "fmt"

// Filled in at build time via -ldflags "-X github.com/gotus/gotus/cmd/gotus/cli.VersionName=...".
var (
	VersionName = "n/a"
	GitCommit   = "n/a"
	BuildDate   = "n/a"
)

// ShowVersion prints the build information for the -version flag.
func ShowVersion() {
	fmt.Printf("Version: %s\nCommit: %s\nDate: %s\n", VersionName, GitCommit, BuildDate)
}
