package config

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// setting binds a configuration key to typed accessors on Config.
type setting struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

var settings = map[string]setting{
	"print_header":     boolSetting(func(c *Config) *bool { return &c.PrintHeader }),
	"ignore_errors":    boolSetting(func(c *Config) *bool { return &c.IgnoreErrors }),
	"silent":           boolSetting(func(c *Config) *bool { return &c.Silent }),
	"verbose":          boolSetting(func(c *Config) *bool { return &c.Verbose }),
	"print_current_db": boolSetting(func(c *Config) *bool { return &c.PrintCurrentDB }),
	"substitute":       boolSetting(func(c *Config) *bool { return &c.Substitute }),
	"prompt":           stringSetting(func(c *Config) *string { return &c.Prompt }),
	"shell":            stringSetting(func(c *Config) *string { return &c.Shell }),
	"max_retries":      intSetting(func(c *Config) *int { return &c.MaxRetries }, 0),
	"fetch_size":       intSetting(func(c *Config) *int { return &c.FetchSize }, 1),
	"substitute_depth": intSetting(func(c *Config) *int { return &c.SubstituteDepth }, 1),
	"output": {
		get: func(c *Config) string { return c.Output },
		set: func(c *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			if !slices.Contains(OutputFormats, v) {
				return fmt.Errorf("invalid output format %q (expected one of %s)", v, strings.Join(OutputFormats, ", "))
			}
			c.Output = v
			return nil
		},
	},
}

func boolSetting(field func(c *Config) *bool) setting {
	return setting{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("expects a boolean value, got %q", v)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringSetting(field func(c *Config) *string) setting {
	return setting{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			*field(c) = v
			return nil
		},
	}
}

func intSetting(field func(c *Config) *int, minimum int) setting {
	return setting{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("expects an integer value, got %q", v)
			}
			if n < minimum {
				return fmt.Errorf("expects a value >= %d, got %d", minimum, n)
			}
			*field(c) = n
			return nil
		},
	}
}

// normalizeKey accepts both snake_case and kebab-case keys.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// Set assigns value to key. Known keys are parsed into their typed fields;
// any other key is stored verbatim in Conf.
func (c *Config) Set(key, value string) error {
	k := normalizeKey(key)
	if k == "" {
		return fmt.Errorf("empty configuration key")
	}
	if s, ok := settings[k]; ok {
		if err := s.set(c, value); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		return nil
	}
	if c.Conf == nil {
		c.Conf = make(map[string]string)
	}
	c.Conf[key] = value
	return nil
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, bool) {
	if s, ok := settings[normalizeKey(key)]; ok {
		return s.get(c), true
	}
	v, ok := c.Conf[key]
	return v, ok
}

// Keys returns every known key plus the free-form keys currently set, sorted.
func (c *Config) Keys() []string {
	keys := KnownKeys()
	for k := range c.Conf {
		if _, ok := settings[normalizeKey(k)]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// KnownKeys returns the typed configuration keys, sorted.
func KnownKeys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.Output) {
		return fmt.Errorf("invalid output format %q (expected one of %s)", c.Output, strings.Join(OutputFormats, ", "))
	}
	if c.FetchSize <= 0 {
		return fmt.Errorf("fetch_size must be positive, got %d", c.FetchSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Target == nil || c.Target.Type == "" {
		return fmt.Errorf("target type is required")
	}
	return nil
}
