// Package version holds build metadata, injected via -ldflags.
package version

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the full version line.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
