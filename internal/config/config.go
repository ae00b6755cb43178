// Package config loads the hierarchical sync configuration: logging,
// graph store connection, and named ledger profiles.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GrantType names an OAuth2 grant used against the identity provider.
type GrantType string

const (
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
)

// IdentityProvider configures an OAuth2 token source.
type IdentityProvider struct {
	TokenEndpoint string    `yaml:"token_endpoint"`
	ClientID      string    `yaml:"client_id"`
	ClientSecret  string    `yaml:"client_secret"`
	GrantType     GrantType `yaml:"grant_type"`
	Username      string    `yaml:"username"`
	Password      string    `yaml:"password"`
}

// Profile names one ledger endpoint plus its token source configuration.
type Profile struct {
	LedgerURL        string            `yaml:"ledger_url"`
	Parties          []string          `yaml:"parties"`
	SyntheticUser    string            `yaml:"synthetic_user"`
	StartingOffset   *int64            `yaml:"starting_offset"`
	IdentityProvider *IdentityProvider `yaml:"identity_provider"`
}

// GraphStore configures the Neo4j-style graph store connection and the
// batched writer's thresholds.
type GraphStore struct {
	URI              string `yaml:"uri"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	BatchSize        int    `yaml:"batch_size"`
	FlushTimeoutSecs int    `yaml:"flush_timeout_secs"`
	IdleTimeoutSecs  int    `yaml:"idle_timeout_secs"`
}

// Config is the root configuration document.
type Config struct {
	LogLevel       string             `yaml:"log_level"`
	GraphStore     GraphStore         `yaml:"graph_store"`
	ActiveProfile  string             `yaml:"active_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.GraphStore.BatchSize == 0 {
		c.GraphStore.BatchSize = 100
	}
	if c.GraphStore.FlushTimeoutSecs == 0 {
		c.GraphStore.FlushTimeoutSecs = 1
	}
	if c.GraphStore.IdleTimeoutSecs == 0 {
		c.GraphStore.IdleTimeoutSecs = 60
	}
}

// SelectedProfile returns the profile named by override, or the active
// profile if override is empty. Configuration errors (missing profile) are
// fatal at startup per the error handling design.
func (c *Config) SelectedProfile(override string) (Profile, error) {
	name := c.ActiveProfile
	if override != "" {
		name = override
	}
	if name == "" {
		return Profile{}, fmt.Errorf("no active profile configured and none selected")
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	return profile, nil
}
