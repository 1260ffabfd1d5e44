// Package config loads and validates the verification run configuration.
// The file format matches the YAML config consumed by the migration utility
// itself, so one file can drive both the transfer and its acceptance check.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Modes accepted for the "mode" key. The mode records which direction the
// migration ran; verification always walks both sides.
var ValidModes = []string{"export", "import"}

// RDF serializations an archive may be written in, keyed by media type.
var ValidRDFLangs = []string{
	"application/ld+json",
	"application/n-triples",
	"application/rdf+xml",
	"text/n3",
	"text/plain",
	"text/turtle",
}

// Config holds all fixity settings.
type Config struct {
	// Migration direction: "export" (live wrote the archive) or "import"
	// (archive populated the live side).
	Mode string `yaml:"mode"`

	// Repository is the root URI of the live LDP repository,
	// e.g. http://localhost:8080/rest.
	Repository string `yaml:"repository"`

	// Dir is the root of the filesystem archive.
	Dir string `yaml:"dir"`

	// Binaries controls whether binary resources (and their companion
	// metadata) are verified. Matches the migration utility's flag: when
	// the transfer skipped binaries, the check must too.
	Binaries bool `yaml:"binaries"`

	// Bag marks the archive as a BagIt bag: the payload lives under
	// dir/data and the bag manifests are validated before pairing.
	Bag bool `yaml:"bag"`

	// RDFLang is the media type the archive's RDF sources were serialized
	// in; it is also sent as the Accept header on live RDF fetches.
	RDFLang string `yaml:"rdf_lang"`

	// User holds "user:pass" credentials for the repository. Usually
	// supplied via the FIXITY_USER environment variable or the -u flag
	// rather than written into the file.
	User string `yaml:"user"`

	// IgnoredPredicates are excluded from both graphs before comparison.
	// Defaults to the repository's server-managed timestamp predicates,
	// which necessarily differ between a live server and its export.
	IgnoredPredicates []string `yaml:"ignored_predicates"`

	// MaxBlankNodes caps the number of distinct blank nodes per graph the
	// isomorphism search will take on.
	MaxBlankNodes int `yaml:"max_blank_nodes"`

	// IsoStepLimit caps the number of candidate assignments tried during
	// blank-node matching before the comparison is abandoned.
	IsoStepLimit int `yaml:"iso_step_limit"`

	// Timeout bounds each repository request and each single-resource
	// comparison, e.g. "30s".
	Timeout string `yaml:"timeout"`

	// HistoryDB is an optional SQLite file recording past runs.
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Mode:     "export",
		Binaries: true,
		Bag:      false,
		RDFLang:  "text/turtle",
		IgnoredPredicates: []string{
			"http://fedora.info/definitions/v4/repository#created",
			"http://fedora.info/definitions/v4/repository#createdBy",
			"http://fedora.info/definitions/v4/repository#lastModified",
			"http://fedora.info/definitions/v4/repository#lastModifiedBy",
		},
		MaxBlankNodes: 256,
		IsoStepLimit:  1_000_000,
		Timeout:       "30s",
	}
}

// Load reads a YAML config file over the defaults. The file must exist:
// unlike optional tool settings, a verification run is meaningless without
// the endpoints it names.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. Credentials are
// the main customer: CI systems inject them without touching the file.
func (c *Config) applyEnvOverrides() {
	if user := os.Getenv("FIXITY_USER"); user != "" {
		c.User = user
	}
	if db := os.Getenv("FIXITY_HISTORY_DB"); db != "" {
		c.HistoryDB = db
	}
}

// GetTimeout returns the per-request timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Credentials splits the "user:pass" setting. ok is false when no
// credentials were configured.
func (c *Config) Credentials() (user, pass string, ok bool) {
	if c.User == "" {
		return "", "", false
	}
	user, pass, found := strings.Cut(c.User, ":")
	if !found {
		return c.User, "", true
	}
	return user, pass, true
}

// PayloadDir returns the directory the archive walker should start from:
// the bag payload directory for bagged archives, Dir otherwise.
func (c *Config) PayloadDir() string {
	if c.Bag {
		return filepath.Join(c.Dir, "data")
	}
	return c.Dir
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Repository == "" {
		return fmt.Errorf("repository URI not configured")
	}
	if !strings.HasPrefix(c.Repository, "http://") && !strings.HasPrefix(c.Repository, "https://") {
		return fmt.Errorf("invalid repository URI: %s", c.Repository)
	}
	if c.Dir == "" {
		return fmt.Errorf("archive dir not configured")
	}

	validMode := false
	for _, m := range ValidModes {
		if c.Mode == m {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid mode: %s (valid: %v)", c.Mode, ValidModes)
	}

	validLang := false
	for _, l := range ValidRDFLangs {
		if c.RDFLang == l {
			validLang = true
			break
		}
	}
	if !validLang {
		return fmt.Errorf("invalid rdf_lang: %s (valid: %v)", c.RDFLang, ValidRDFLangs)
	}

	if c.MaxBlankNodes <= 0 {
		return fmt.Errorf("max_blank_nodes must be positive, got %d", c.MaxBlankNodes)
	}
	if c.IsoStepLimit <= 0 {
		return fmt.Errorf("iso_step_limit must be positive, got %d", c.IsoStepLimit)
	}

	return nil
}
