// Package misc holds build time information.
package misc

import "strings"

// Set with -ldflags "-X stylemig/misc.version=... -X stylemig/misc.gitHash=..."
var (
	appName = "stylemig"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return strings.TrimPrefix(version, "v")
}

func GetGitHash() string {
	return gitHash
}
