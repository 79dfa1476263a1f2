// Package commands implements the shell's local commands: statements that
// are served inside the shell instead of being sent to the backend.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapshell/internal/shell"
)

// Variable namespaces understood by `set`.
const (
	varPrefix  = "hivevar:"
	confPrefix = "hiveconf:"
	envPrefix  = "env:"
	sysPrefix  = "system:"
)

// DatabaseSwitcher changes the backend's current database.
type DatabaseSwitcher interface {
	UseDatabase(ctx context.Context, name string) error
}

// Register installs the local commands on reg. switcher may be nil, in which
// case `use` is left to the fallback handler.
func Register(reg *shell.HandlerRegistry, switcher DatabaseSwitcher) {
	reg.Register("set", func(sess *shell.Session) (shell.Handler, error) {
		return shell.Simple(&Set{sess: sess}), nil
	})
	reg.Register("reset", func(sess *shell.Session) (shell.Handler, error) {
		return shell.Simple(&Reset{sess: sess}), nil
	})
	if switcher != nil {
		reg.Register("use", func(sess *shell.Session) (shell.Handler, error) {
			return shell.Simple(&Use{sess: sess, switcher: switcher}), nil
		})
	}
}

// Set shows and changes configuration values and session variables.
//
//	set                   list every setting and variable
//	set key               show one value
//	set key=value         change a setting
//	set hivevar:name=v    define a variable
type Set struct {
	sess *shell.Session
}

// Run implements shell.SimpleHandler.
func (c *Set) Run(_ context.Context, args string) (shell.Response, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		c.dumpAll()
		return shell.OK, nil
	}

	key, value, hasValue := strings.Cut(args, "=")
	key = strings.TrimSpace(key)
	if !hasValue {
		return c.show(key), nil
	}

	value, err := c.sess.Substitute(strings.TrimSpace(value))
	if err != nil {
		return shell.Failure(1, err.Error()), nil
	}

	switch {
	case strings.HasPrefix(key, varPrefix):
		name := strings.TrimPrefix(key, varPrefix)
		if name == "" {
			return shell.Failure(1, "variable name is empty"), nil
		}
		c.sess.Vars[name] = value
	case strings.HasPrefix(key, envPrefix), strings.HasPrefix(key, sysPrefix):
		ns, _, _ := strings.Cut(key, ":")
		return shell.Failure(1, ns+":* variables can not be set."), nil
	default:
		if err := c.sess.SetConf(strings.TrimPrefix(key, confPrefix), value); err != nil {
			return shell.Failure(1, err.Error()), nil
		}
	}
	c.sess.Logger.Debug("set", "key", key, "value", value)
	return shell.OK, nil
}

func (c *Set) show(key string) shell.Response {
	var (
		value string
		ok    bool
	)
	if name, isVar := strings.CutPrefix(key, varPrefix); isVar {
		value, ok = c.sess.Vars[name]
	} else {
		value, ok = c.sess.Conf.Get(strings.TrimPrefix(key, confPrefix))
	}

	if !ok {
		_, _ = fmt.Fprintf(c.sess.Out, "%s is undefined\n", key)
	} else {
		_, _ = fmt.Fprintf(c.sess.Out, "%s=%s\n", key, value)
	}
	return shell.OK
}

func (c *Set) dumpAll() {
	for _, k := range c.sess.Conf.Keys() {
		v, _ := c.sess.Conf.Get(k)
		_, _ = fmt.Fprintf(c.sess.Out, "%s=%s\n", k, v)
	}
	names := make([]string, 0, len(c.sess.Vars))
	for name := range c.sess.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(c.sess.Out, "%s%s=%s\n", varPrefix, name, c.sess.Vars[name])
	}
}

// Reset restores every setting to its value at session start.
type Reset struct {
	sess *shell.Session
}

// Run implements shell.SimpleHandler.
func (c *Reset) Run(_ context.Context, _ string) (shell.Response, error) {
	c.sess.ResetConf()
	return shell.OK, nil
}

// Use switches the current database.
type Use struct {
	sess     *shell.Session
	switcher DatabaseSwitcher
}

// Run implements shell.SimpleHandler.
func (c *Use) Run(ctx context.Context, args string) (shell.Response, error) {
	name, err := c.sess.Substitute(strings.TrimSpace(args))
	if err != nil {
		return shell.Failure(1, err.Error()), nil
	}
	name = strings.Trim(name, "`\"")
	if name == "" {
		return shell.Failure(1, "missing database name"), nil
	}
	if err := c.switcher.UseDatabase(ctx, name); err != nil {
		return shell.Failure(1, err.Error()), nil
	}
	c.sess.CurrentDB = name
	return shell.OK, nil
}
