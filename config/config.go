// Package config defines the engine configuration: triple store driver
// endpoints, identifier namespace, pagination defaults and the mutation
// journal. Configuration is loaded once at process start and validated
// before any component is constructed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration.
type Config struct {
	Namespace NamespaceConfig `yaml:"namespace"`
	Store     StoreConfig     `yaml:"store"`
	Paging    PagingConfig    `yaml:"paging"`
	Journal   JournalConfig   `yaml:"journal"`
}

// NamespaceConfig defines the IRI namespace entities are minted under.
type NamespaceConfig struct {
	// BaseIRI is the prefix for all entity IRIs, e.g.
	// "http://darklight.ai/ns/cyio". Must not end with a slash.
	BaseIRI string `yaml:"base_iri"`
}

// StoreConfig defines how the engine reaches the triple store service.
type StoreConfig struct {
	// URL is the NATS server the store driver connects through.
	URL string `yaml:"url"`

	// SubjectPrefix is the request/reply subject root for store
	// operations, e.g. "store" yields "store.query.id",
	// "store.mutate.create" and so on.
	SubjectPrefix string `yaml:"subject_prefix"`

	// Timeout bounds each store round trip.
	Timeout time.Duration `yaml:"timeout"`

	// LookupCacheTTL bounds how long id-to-IRI existence lookups are
	// reused by the orchestration layer. Zero disables the cache.
	LookupCacheTTL time.Duration `yaml:"lookup_cache_ttl"`
}

// PagingConfig defines list operation defaults.
type PagingConfig struct {
	// DefaultFirst is the page size applied when the caller supplies none.
	DefaultFirst int `yaml:"default_first"`

	// MaxFirst caps the page size a caller may request.
	MaxFirst int `yaml:"max_first"`
}

// JournalConfig defines the JetStream mutation journal. The engine does
// not roll back partial multi-step writes; the journal is what makes them
// discoverable for reconciliation.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`

	// MaxAge bounds journal retention. Zero keeps entries indefinitely.
	MaxAge time.Duration `yaml:"max_age"`
}

// Default returns a configuration with production defaults applied.
func Default() *Config {
	return &Config{
		Namespace: NamespaceConfig{
			BaseIRI: "http://darklight.ai/ns/cyio",
		},
		Store: StoreConfig{
			URL:            "nats://127.0.0.1:4222",
			SubjectPrefix:  "store",
			Timeout:        10 * time.Second,
			LookupCacheTTL: 30 * time.Second,
		},
		Paging: PagingConfig{
			DefaultFirst: 25,
			MaxFirst:     500,
		},
		Journal: JournalConfig{
			Enabled: true,
			Stream:  "MUTATION_JOURNAL",
			Subject: "journal.mutations",
			MaxAge:  7 * 24 * time.Hour,
		},
	}
}

// LoadFile reads a YAML configuration file, layers it over the defaults
// and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency. Schema
// drift must be caught at boot, not discovered from a bad query at
// runtime, so validation is strict.
func (c *Config) Validate() error {
	if c.Namespace.BaseIRI == "" {
		return fmt.Errorf("namespace.base_iri is required")
	}
	if strings.HasSuffix(c.Namespace.BaseIRI, "/") {
		return fmt.Errorf("namespace.base_iri must not end with a slash: %q", c.Namespace.BaseIRI)
	}
	if c.Store.URL == "" {
		return fmt.Errorf("store.url is required")
	}
	if c.Store.SubjectPrefix == "" {
		return fmt.Errorf("store.subject_prefix is required")
	}
	if strings.ContainsAny(c.Store.SubjectPrefix, " \t*>") {
		return fmt.Errorf("store.subject_prefix contains invalid subject characters: %q", c.Store.SubjectPrefix)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive")
	}
	if c.Paging.DefaultFirst <= 0 {
		return fmt.Errorf("paging.default_first must be positive")
	}
	if c.Paging.MaxFirst < c.Paging.DefaultFirst {
		return fmt.Errorf("paging.max_first (%d) must be >= paging.default_first (%d)",
			c.Paging.MaxFirst, c.Paging.DefaultFirst)
	}
	if c.Journal.Enabled {
		if c.Journal.Stream == "" {
			return fmt.Errorf("journal.stream is required when the journal is enabled")
		}
		if c.Journal.Subject == "" {
			return fmt.Errorf("journal.subject is required when the journal is enabled")
		}
	}
	return nil
}
