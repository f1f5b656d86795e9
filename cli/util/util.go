package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/gridpro/gridpro/pkg/cfgdir"
	"github.com/gridpro/gridpro/pkg/codestore"
	"github.com/gridpro/gridpro/pkg/config"
	"github.com/gridpro/gridpro/pkg/document"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/execute"
	"github.com/gridpro/gridpro/pkg/license"
	"github.com/gridpro/gridpro/pkg/permission"
	"github.com/gridpro/gridpro/pkg/runner"
)

// Options holds the global flags.
type Options struct {
	ConfigPath   string
	DocumentPath string
	LicenseKey   string
	Verbose      bool
	JSON         bool
}

// Env is everything a command needs to work with a document.
type Env struct {
	Config  config.Config
	License *license.State
	Store   *codestore.Store
	Runner  *runner.Runner

	licenseKey string
	doc        document.Document
}

// Setup loads and validates the config, then opens the document.
func Setup(opts Options) (*Env, error) {
	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = cfgdir.ConfigFile()
	}

	cfg, err := config.Load(afero.NewOsFs(), configPath)
	if err != nil {
		return nil, errors.WithContext("load config", err)
	}
	if opts.DocumentPath != "" {
		cfg.Document.Path = opts.DocumentPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	licenseKey := cfg.LicenseKey
	if opts.LicenseKey != "" {
		licenseKey = opts.LicenseKey
	}

	publicKey, err := cfg.PublicKey()
	if err != nil {
		// Only signed keys need it, so the noncommercial key still works.
		log.WithError(err).Debug("No license public key")
	}

	state := license.NewState(license.OfflineBackend{
		PublicKey: publicKey,
		Product:   cfg.Product,
	}, cfg.FeatureTable())
	state.Timeout = cfg.LicenseTimeout

	doc, err := document.Open(cfg.Document.Driver, cfg.Document.Path)
	if err != nil {
		return nil, errors.WithContext("open document", err)
	}
	log.WithField("driver", cfg.Document.Driver).
		WithField("path", cfg.Document.Path).
		Debug("Opened document")

	store := codestore.New(doc)
	return &Env{
		Config:  cfg,
		License: state,
		Store:   store,
		Runner: &runner.Runner{
			License:     state,
			Store:       store,
			Verifier:    permission.NewVerifier(cfg.Allowlist...),
			Executor:    execute.Command{Argv: cfg.Interpreter},
			ExecTimeout: cfg.ExecTimeout,
		},
		licenseKey: licenseKey,
		doc:        doc,
	}, nil
}

// ValidateLicense validates the configured license key. The result is cached
// by the license state, so only the first call does any work.
func (env *Env) ValidateLicense(ctx context.Context) (license.Record, error) {
	var pp ProgressPrinter
	if IsTerminal() {
		pp = NewProgressPrinter(os.Stderr, "Validating license")
		go pp.Run()
	}

	record, err := env.License.Validate(ctx, env.licenseKey, false)

	if pp.stop != nil {
		pp.Stop()
	}
	return record, err
}

func (env *Env) Close() {
	if err := env.doc.Close(); err != nil {
		log.WithError(err).Warn("Failed to close document")
	}
}

// IsTerminal returns whether stdout is attached to a terminal.
func IsTerminal() bool {
	return terminal.IsTerminal(int(os.Stdout.Fd()))
}

// Color colors the string when stdout is a terminal.
func Color(str string, color int) string {
	if !IsTerminal() {
		return str
	}
	return goterm.Color(str, color)
}

// HandleFatalError prints the error and exits. With --json, the error is
// printed as a structured payload so that scripts can tell the failure
// kinds apart.
func HandleFatalError(opts Options, err error) {
	if !opts.JSON {
		errors.HandleFatalError(err)
	}

	payload, marshalErr := json.Marshal(errors.Marshal(err))
	if marshalErr != nil {
		errors.HandleFatalError(err)
	}
	fmt.Fprintln(os.Stderr, string(payload))
	os.Exit(1)
}
