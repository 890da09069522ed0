package commands

import (
	"strconv"
	"strings"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/unicode/norm"

	"github.com/aatumaykin/ipubot/internal/constants"
)

var (
	delayPattern     = re2.MustCompile(`^\+(\d+)`)
	invisiblePattern = re2.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}]`)
)

// Command is a parsed chat command.
type Command struct {
	Name    string
	Args    []string
	Minutes int // set for CommandDelay
}

// Normalize folds compatibility characters (full-width "！" and "＋",
// full-width digits) and drops invisible characters.
func Normalize(text string) string {
	text = invisiblePattern.ReplaceAllString(text, "")
	return strings.TrimSpace(norm.NFKC.String(text))
}

// Parse recognizes a command in text. A "@name" suffix on the command word
// must match botUsername when one is given; commands addressed to another
// bot are ignored.
func Parse(text, botUsername string) (Command, bool) {
	text = Normalize(text)
	if text == "" {
		return Command{}, false
	}

	if m := delayPattern.FindStringSubmatch(text); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			return Command{}, false
		}
		return Command{Name: constants.CommandDelay, Minutes: minutes}, true
	}

	rest, ok := trimPrefix(text)
	if !ok {
		return Command{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Command{}, false
	}

	name := fields[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		target := name[at+1:]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return Command{}, false
		}
		name = name[:at]
	}

	return Command{Name: strings.ToLower(name), Args: fields[1:]}, true
}

func trimPrefix(text string) (string, bool) {
	for _, p := range constants.CommandPrefixes {
		if rest, ok := strings.CutPrefix(text, p); ok {
			return rest, true
		}
	}
	return "", false
}
