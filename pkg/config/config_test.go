package config

import "testing"

func validConfig() Config {
	return Config{
		Chain:           "managed-sets",
		DefaultPolicy:   "DROP",
		RefreshInterval: "30s",
		Sets: []SetConfig{
			{
				Name:    "allow-hosts",
				Type:    "hash:ip",
				Family:  "inet",
				Timeout: 300,
				Entries: []string{"10.0.0.1", "10.0.0.2"},
				Policy:  "ACCEPT",
			},
			{
				Name:    "deny-nets",
				Type:    "hash:net",
				Entries: []string{"192.0.2.0/24"},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"empty set name", func(c *Config) { c.Sets[0].Name = "" }, false},
		{"duplicate set name", func(c *Config) { c.Sets[1].Name = c.Sets[0].Name }, false},
		{"unknown type", func(c *Config) { c.Sets[0].Type = "hash:frob" }, false},
		{"unknown family", func(c *Config) { c.Sets[0].Family = "ipx" }, false},
		{"unknown policy", func(c *Config) { c.Sets[0].Policy = "PASS" }, false},
		{"lowercase policy ok", func(c *Config) { c.Sets[0].Policy = "accept" }, true},
		{"bad entry", func(c *Config) { c.Sets[0].Entries = []string{"not-an-ip"} }, false},
		{"entry type mismatch", func(c *Config) { c.Sets[1].Entries = []string{"bogus/24"} }, false},
		{"bad default policy", func(c *Config) { c.DefaultPolicy = "MAYBE" }, false},
		{"bad interval", func(c *Config) { c.RefreshInterval = "soon" }, false},
		{"empty interval ok", func(c *Config) { c.RefreshInterval = "" }, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			if c.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !c.ok && err == nil {
				t.Error("Validate accepted a broken config")
			}
		})
	}
}

func TestInterval(t *testing.T) {
	cfg := Config{RefreshInterval: "45s"}
	if got := cfg.Interval(0); got.Seconds() != 45 {
		t.Errorf("Interval = %v", got)
	}

	cfg.RefreshInterval = ""
	if got := cfg.Interval(30); got != 30 {
		t.Errorf("fallback = %v", got)
	}
}
