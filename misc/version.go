// Package misc keeps build time information about the program.
package misc

// Set with -ldflags "-X xrb/misc.version=... -X xrb/misc.gitHash=..."
var (
	appName = "xrb"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
