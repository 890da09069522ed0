package main

import (
	"os"

	"github.com/aatumaykin/ipubot/internal/version"
)

// Set with -ldflags "-X main.Version=..." at build time.
var (
	Version   string
	BuildTime string
	GitCommit string
	GoVersion string
)

func init() {
	version.SetInfo(Version, BuildTime, GitCommit, GoVersion)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
