package messages

import (
	"fmt"
	"strings"

	"github.com/aatumaykin/ipubot/internal/constants"
)

// FormatError prefixes err for terminal output.
func FormatError(err error) string {
	return fmt.Sprintf(constants.MsgErrorFormat, err)
}

// FormatConfigLoadError reports a config file that could not be read or decoded.
func FormatConfigLoadError(err error) string {
	return strings.TrimSuffix(fmt.Sprintf(constants.MsgConfigLoadError, err), "\n")
}

// FormatValidationErrors lists every validation problem, numbered from 1.
// It returns "" for an empty list.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	lines := make([]string, 0, len(errs)+1)
	lines = append(lines, strings.TrimSuffix(constants.MsgConfigValidationError, "\n"))
	for i, err := range errs {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintf(constants.MsgConfigValidatePrefix, fmt.Sprintf("%d. %v", i+1, err)), "\n"))
	}
	return strings.Join(lines, "\n")
}
