// Package version holds build information injected with -ldflags.
package version

import (
	"fmt"

	"github.com/aatumaykin/ipubot/internal/constants"
)

var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

// SetInfo overrides the non-empty values.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// FormatStartupMessage renders the banner printed by serve.
func FormatStartupMessage() string {
	return fmt.Sprintf(constants.MsgStartup, Version, BuildTime)
}

// String renders the full build information for "ipubot version".
func String() string {
	return fmt.Sprintf("ipubot %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, GoVersion)
}
