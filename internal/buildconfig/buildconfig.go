// Package buildconfig exposes version information injected at link time:
//
//	go build -ldflags "-X github.com/Thommy96/BaRiStA/internal/buildconfig.version=v1.2.0 \
//	  -X github.com/Thommy96/BaRiStA/internal/buildconfig.commit=$(git rev-parse --short HEAD)"
package buildconfig

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// String renders version and commit for CLI output.
func String() string {
	return fmt.Sprintf("%s (%s)", version, commit)
}

// VersionInfo returns full version information
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
