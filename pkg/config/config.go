// Package config loads the user's gridpro configuration. Every setting is
// listed explicitly in Config and checked by Validate before anything runs.
package config

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/gridpro/gridpro/pkg/document"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/hash"
	"github.com/gridpro/gridpro/pkg/license"
	"github.com/gridpro/gridpro/pkg/version"
)

// LicenseKeyEnv overrides the licenseKey setting.
const LicenseKeyEnv = "GRIDPRO_LICENSE_KEY"

type Config struct {
	LicenseKey       string `json:"licenseKey,omitempty"`
	LicensePublicKey string `json:"licensePublicKey,omitempty"`
	Product          string `json:"product,omitempty"`

	LicenseTimeout time.Duration `json:"-"`
	ExecTimeout    time.Duration `json:"-"`

	// Raw duration strings as written in the file.
	LicenseTimeoutRaw string `json:"licenseTimeout,omitempty"`
	ExecTimeoutRaw    string `json:"execTimeout,omitempty"`

	Document    DocumentConfig    `json:"document"`
	Interpreter []string          `json:"interpreter,omitempty"`
	Features    map[string]string `json:"features,omitempty"`
	Allowlist   []string          `json:"allowlist,omitempty"`
}

type DocumentConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Default returns the configuration used when there is no config file.
func Default() Config {
	return Config{
		Product:           version.Product,
		LicenseTimeoutRaw: "10s",
		ExecTimeoutRaw:    "60s",
		LicenseTimeout:    10 * time.Second,
		ExecTimeout:       60 * time.Second,
		Document: DocumentConfig{
			Driver: document.DriverFile,
			Path:   "workbook.gridpro.yaml",
		},
		Interpreter: []string{"python3", "-"},
		Features: map[string]string{
			license.FeatureEmbeddedCode:    "trial",
			license.FeatureReports:         "trial",
			license.FeaturePermissionAudit: "commercial",
		},
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// isn't an error. The license key environment variable takes precedence over
// the file. The result is not validated.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()

	raw, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, errors.WithContext("read config", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.NewFriendlyError(
				"Failed to parse the config file at %s.\n\nThe full error was: %s", path, err)
		}
	}

	if key, ok := os.LookupEnv(LicenseKeyEnv); ok && key != "" {
		cfg.LicenseKey = key
	}

	if err := cfg.parseDurations(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) parseDurations() error {
	var err error
	if cfg.LicenseTimeout, err = parseDuration("licenseTimeout", cfg.LicenseTimeoutRaw); err != nil {
		return err
	}
	if cfg.ExecTimeout, err = parseDuration("execTimeout", cfg.ExecTimeoutRaw); err != nil {
		return err
	}
	return nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, newInvalidError("%s is required", field)
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, newInvalidError("%s: %q is not a duration", field, raw)
	}
	if d <= 0 {
		return 0, newInvalidError("%s must be positive, got %s", field, raw)
	}
	return d, nil
}

// Validate checks every setting and reports all problems at once.
func (cfg Config) Validate() error {
	var problems []string
	addf := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.Product == "" {
		addf("product is required")
	}
	if cfg.LicenseTimeout <= 0 {
		addf("licenseTimeout must be positive")
	}
	if cfg.ExecTimeout <= 0 {
		addf("execTimeout must be positive")
	}

	if cfg.LicensePublicKey != "" {
		if _, err := license.DecodePublicKey(cfg.LicensePublicKey); err != nil {
			addf("licensePublicKey: %s", err)
		}
	}

	switch cfg.Document.Driver {
	case document.DriverFile, document.DriverSQLite:
		if cfg.Document.Path == "" {
			addf("document.path is required for the %s driver", cfg.Document.Driver)
		}
	case document.DriverMemory:
	default:
		addf("document.driver: unknown driver %q", cfg.Document.Driver)
	}

	if len(cfg.Interpreter) == 0 || strings.TrimSpace(cfg.Interpreter[0]) == "" {
		addf("interpreter is required")
	}

	if _, err := license.ParseFeatures(cfg.Features); err != nil {
		addf("features: %s", err)
	}

	for _, fp := range cfg.Allowlist {
		if _, err := hash.DecodeDigest(fp); err != nil {
			addf("allowlist: %q is not a fingerprint", fp)
		}
	}

	if len(problems) != 0 {
		return newInvalidError("%s", strings.Join(problems, "\n  "))
	}
	return nil
}

// FeatureTable returns the parsed feature table. It should only be called on
// a validated config.
func (cfg Config) FeatureTable() license.Features {
	features, err := license.ParseFeatures(cfg.Features)
	if err != nil || len(features) == 0 {
		return license.DefaultFeatures()
	}
	return features
}

// PublicKey returns the configured license public key, or the one set at
// build time.
func (cfg Config) PublicKey() (ed25519.PublicKey, error) {
	if cfg.LicensePublicKey != "" {
		return license.DecodePublicKey(cfg.LicensePublicKey)
	}
	return license.DefaultPublicKey()
}

func newInvalidError(format string, args ...interface{}) error {
	return errors.NewFriendlyError("Invalid configuration:\n  "+format, args...)
}
