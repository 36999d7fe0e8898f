// Package version carries build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the current simulator version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line version summary for logs and -version output.
func String() string {
	return fmt.Sprintf("navsim %s (%s, built %s)", Version, GitSHA, BuildTime)
}
