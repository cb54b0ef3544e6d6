package config

import (
	"strings"
	"time"

	"github.com/hornwind/ipset/pkg/ipset"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// SetConfig describes one managed set: its kernel type, creation
// parameters and the desired member entries.
type SetConfig struct {
	Name     string   `mapstructure:"name"`
	Type     string   `mapstructure:"type"`
	Family   string   `mapstructure:"family,omitempty"`
	HashSize uint32   `mapstructure:"hashSize,omitempty"`
	MaxElem  uint32   `mapstructure:"maxElem,omitempty"`
	Timeout  uint32   `mapstructure:"timeout,omitempty"`
	Counters bool     `mapstructure:"counters,omitempty"`
	Comment  bool     `mapstructure:"comment,omitempty"`
	Entries  []string `mapstructure:"entries,omitempty"`
	Policy   string   `mapstructure:"policy,omitempty"`
}

type Config struct {
	Chain           string      `mapstructure:"chain,omitempty"`
	DefaultPolicy   string      `mapstructure:"defaultPolicy,omitempty"`
	RefreshInterval string      `mapstructure:"refreshInterval,omitempty"`
	StatePath       string      `mapstructure:"statePath,omitempty"`
	Sets            []SetConfig `mapstructure:"sets,omitempty"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

var policies = map[string]struct{}{
	"ACCEPT": {},
	"DROP":   {},
}

// Validate checks set names, types and policies before anything
// touches the kernel.
func (c *Config) Validate() error {
	if c.DefaultPolicy != "" {
		if _, ok := policies[strings.ToUpper(c.DefaultPolicy)]; !ok {
			return errors.Errorf("unknown default policy %q", c.DefaultPolicy)
		}
	}
	if c.RefreshInterval != "" {
		if _, err := time.ParseDuration(c.RefreshInterval); err != nil {
			return errors.Wrap(err, "invalid refreshInterval")
		}
	}

	seen := make(map[string]struct{}, len(c.Sets))
	for _, s := range c.Sets {
		if s.Name == "" {
			return errors.New("set with empty name")
		}
		if _, dup := seen[s.Name]; dup {
			return errors.Errorf("duplicate set %q", s.Name)
		}
		seen[s.Name] = struct{}{}

		typ, ok := ipset.TypeByName(s.Type)
		if !ok {
			return errors.Errorf("set %q: unknown type %q", s.Name, s.Type)
		}
		if s.Family != "" && s.Family != "inet" && s.Family != "inet6" {
			return errors.Errorf("set %q: unknown family %q", s.Name, s.Family)
		}
		if s.Policy != "" {
			if _, ok := policies[strings.ToUpper(s.Policy)]; !ok {
				return errors.Errorf("set %q: unknown policy %q", s.Name, s.Policy)
			}
		}
		for _, e := range s.Entries {
			if _, err := typ.ParseData(e); err != nil {
				return errors.Wrapf(err, "set %q: entry %q", s.Name, e)
			}
		}
	}
	return nil
}

// Interval returns the parsed refresh interval or the fallback.
func (c *Config) Interval(fallback time.Duration) time.Duration {
	if c.RefreshInterval == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return fallback
	}
	return d
}
