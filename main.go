package main

import (
	"os"

	"github.com/tphakala/itemstore/cmd"
	"github.com/tphakala/itemstore/internal/buildinfo"
	"github.com/tphakala/itemstore/internal/conf"
)

// buildDate and version are set with -ldflags at build time.
var (
	buildDate string
	version   string
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, buildinfo.NewContext(version, buildDate))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
