// Package buildinfo holds build-time metadata kept apart from user configuration.
package buildinfo

import (
	"fmt"
	"runtime"
)

// UnknownValue stands in for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context carries the values set with -ldflags at build time.
type Context struct {
	Version   string
	BuildDate string
}

// NewContext returns a Context for the given build values.
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version tag, or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date, or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// String formats the metadata for the version command.
func (c *Context) String() string {
	return fmt.Sprintf("itemstore %s (built %s, %s %s/%s)",
		c.GetVersion(), c.GetBuildDate(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
