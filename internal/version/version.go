// Package version exposes build version information.
package version

import "runtime"

// Version is set at build time via ldflags.
var Version = "dev"

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version information for the current build.
func Get() Info {
	return Info{
		Version:   Version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
