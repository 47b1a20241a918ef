package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

const dollarSentinel = "\x00TOOLGUARD_DOLLAR\x00"

// ExpandEnvStrict expands ${VAR} references in s using lookup.
//
// Every referenced variable must be set; the error lists all missing names
// and wraps ErrMissingEnv. $$ emits a literal $. Bare $VAR is left as is.
func ExpandEnvStrict(s string, lookup func(string) (string, bool)) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		val, ok := lookup(key)
		if !ok {
			if !slices.Contains(missing, key) {
				missing = append(missing, key)
			}
			return match
		}
		return val
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(out, dollarSentinel, "$"), nil
}
