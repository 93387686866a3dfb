// Package version exposes the build version of taskmcp.
package version

// Version is overridden at build time via -ldflags "-X github.com/taskmcp/taskmcp/pkg/version.Version=..."
var Version = "dev"

// GetVersion returns the build version.
func GetVersion() string {
	return Version
}
