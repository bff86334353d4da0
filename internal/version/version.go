// Package version holds build metadata injected at link time.
package version

// Set with -ldflags "-X github.com/stupside/vidrelay/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
