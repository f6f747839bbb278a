// Package version exposes the healthchecker build identity.
package version

// Set via -ldflags "-X github.com/carverauto/healthchecker/pkg/version.version=..."
//
//nolint:gochecknoglobals // These are intentionally global for ldflags injection
var (
	version = "dev"
	buildID = "dev"
)

const programName = "healthchecker"

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// GetBuildID returns the current build ID
func GetBuildID() string {
	return buildID
}

// GetFullVersion returns version with build ID
func GetFullVersion() string {
	return version + " (build: " + buildID + ")"
}

// Banner is what `healthchecker --version` prints.
func Banner() string {
	return programName + " " + GetFullVersion()
}
