// Package vars implements ${...} variable substitution for shell statements.
//
// Supported references:
//
//	${name}           session variable, then configuration value
//	${hivevar:name}   session variable only
//	${hiveconf:name}  configuration value only
//	${env:NAME}       process environment
//	${system:name}    a small set of process properties (user.name, user.home, user.dir)
//
// Unresolved references are left untouched. Substitution is applied
// repeatedly so a value may itself contain references, bounded by a depth.
package vars

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strings"
)

// DefaultDepth is the maximum number of substitution passes.
const DefaultDepth = 40

// Namespace prefixes.
const (
	PrefixVar    = "hivevar:"
	PrefixConf   = "hiveconf:"
	PrefixEnv    = "env:"
	PrefixSystem = "system:"
)

// ErrDepthExceeded is returned when substitution does not converge within the depth limit.
var ErrDepthExceeded = errors.New("variable substitution depth too large")

var refPattern = regexp.MustCompile(`\$\{[^\}\$ ]+\}`)

// ConfLookup resolves a configuration key to its string value.
type ConfLookup func(key string) (string, bool)

// Substitution resolves variable references against session state.
type Substitution struct {
	// Vars holds session variables (--define, --hivevar, set hivevar:x=y).
	Vars map[string]string
	// Conf resolves configuration keys. May be nil.
	Conf ConfLookup
	// Env resolves environment variables. Defaults to os.LookupEnv.
	Env func(string) (string, bool)
	// Depth bounds the number of passes. Zero means DefaultDepth.
	Depth int
	// Disabled turns substitution into the identity function.
	Disabled bool
}

// New returns a Substitution over the given variables and configuration lookup.
func New(vars map[string]string, conf ConfLookup) *Substitution {
	if vars == nil {
		vars = make(map[string]string)
	}
	return &Substitution{Vars: vars, Conf: conf}
}

// Substitute expands every resolvable reference in text.
func (s *Substitution) Substitute(text string) (string, error) {
	if s == nil || s.Disabled || !strings.Contains(text, "${") {
		return text, nil
	}

	depth := s.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}

	current := text
	for i := 0; i < depth; i++ {
		next := refPattern.ReplaceAllStringFunc(current, func(ref string) string {
			if val, ok := s.resolve(ref[2 : len(ref)-1]); ok {
				return val
			}
			return ref
		})
		if next == current {
			return next, nil
		}
		current = next
	}
	return "", fmt.Errorf("%w (%d) in %q", ErrDepthExceeded, depth, text)
}

func (s *Substitution) resolve(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, PrefixSystem):
		return systemProperty(strings.TrimPrefix(name, PrefixSystem))
	case strings.HasPrefix(name, PrefixEnv):
		return s.lookupEnv(strings.TrimPrefix(name, PrefixEnv))
	case strings.HasPrefix(name, PrefixConf):
		return s.lookupConf(strings.TrimPrefix(name, PrefixConf))
	case strings.HasPrefix(name, PrefixVar):
		v, ok := s.Vars[strings.TrimPrefix(name, PrefixVar)]
		return v, ok
	}
	if v, ok := s.Vars[name]; ok {
		return v, true
	}
	return s.lookupConf(name)
}

func (s *Substitution) lookupConf(key string) (string, bool) {
	if s.Conf == nil {
		return "", false
	}
	return s.Conf(key)
}

func (s *Substitution) lookupEnv(key string) (string, bool) {
	if s.Env != nil {
		return s.Env(key)
	}
	return os.LookupEnv(key)
}

func systemProperty(key string) (string, bool) {
	switch key {
	case "user.name":
		if u, err := user.Current(); err == nil {
			return u.Username, true
		}
	case "user.home":
		if home, err := os.UserHomeDir(); err == nil {
			return home, true
		}
	case "user.dir":
		if wd, err := os.Getwd(); err == nil {
			return wd, true
		}
	}
	return "", false
}
