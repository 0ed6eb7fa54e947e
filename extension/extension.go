// Package extension provides the Forge extension adapter for the token ledger.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tokenledger" or
// "tokenledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	tokenledger "github.com/lienworks/tokenledger"
	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/store"
	"github.com/lienworks/tokenledger/store/memory"
	"github.com/lienworks/tokenledger/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tokenledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Token balance and amortization engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the token ledger engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tokenledger.Engine
	store      store.Store
	engineOpts []tokenledger.Option
}

// New creates a new token ledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine instance.
// This is nil until Register is called.
func (e *Extension) Engine() *tokenledger.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}

	e.engine = tokenledger.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*tokenledger.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tokenledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tokenledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs tokenledger.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]tokenledger.Option, error) {
	opts := make([]tokenledger.Option, 0, len(e.engineOpts)+1)

	limits, err := e.validationLimits()
	if err != nil {
		return nil, err
	}
	opts = append(opts, tokenledger.WithValidationLimits(limits))

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// validationLimits parses the loan validation fields from the resolved config.
func (e *Extension) validationLimits() (amortize.ValidationLimits, error) {
	limits := amortize.DefaultLimits()

	if e.config.MaxLTV != "" {
		v, err := decimal.NewFromString(e.config.MaxLTV)
		if err != nil {
			return limits, fmt.Errorf("tokenledger: invalid max_ltv %q: %w", e.config.MaxLTV, err)
		}
		limits.MaxLTV = v
	}
	if e.config.HighRate != "" {
		v, err := decimal.NewFromString(e.config.HighRate)
		if err != nil {
			return limits, fmt.Errorf("tokenledger: invalid high_rate %q: %w", e.config.HighRate, err)
		}
		limits.HighRate = v
	}
	if e.config.LongTermMonths > 0 {
		limits.LongTermMonths = e.config.LongTermMonths
	}
	if e.config.SmallLoanMinimum != "" {
		currency := e.config.SmallLoanCurrency
		if currency == "" {
			currency = DefaultConfig().SmallLoanCurrency
		}
		m, err := types.ParseMoney(e.config.SmallLoanMinimum, currency)
		if err != nil {
			return limits, fmt.Errorf("tokenledger: invalid small_loan_minimum %q: %w", e.config.SmallLoanMinimum, err)
		}
		limits.SmallLoanMinimum = m
	}

	return limits, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tokenledger: configuration is required but not found in config files; " +
				"ensure 'extensions.tokenledger' or 'tokenledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tokenledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("max_ltv", e.config.MaxLTV),
		forge.F("high_rate", e.config.HighRate),
		forge.F("long_term_months", e.config.LongTermMonths),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.tokenledger" first (namespaced pattern).
	if cm.IsSet("extensions.tokenledger") {
		if err := cm.Bind("extensions.tokenledger", &cfg); err == nil {
			e.Logger().Debug("tokenledger: loaded config from file",
				forge.F("key", "extensions.tokenledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("tokenledger: failed to bind extensions.tokenledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "tokenledger" key.
	if cm.IsSet("tokenledger") {
		if err := cm.Bind("tokenledger", &cfg); err == nil {
			e.Logger().Debug("tokenledger: loaded config from file",
				forge.F("key", "tokenledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("tokenledger: failed to bind tokenledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxLTV == "" {
		cfg.MaxLTV = defaults.MaxLTV
	}
	if cfg.HighRate == "" {
		cfg.HighRate = defaults.HighRate
	}
	if cfg.LongTermMonths == 0 {
		cfg.LongTermMonths = defaults.LongTermMonths
	}
	if cfg.SmallLoanMinimum == "" {
		cfg.SmallLoanMinimum = defaults.SmallLoanMinimum
	}
	if cfg.SmallLoanCurrency == "" {
		cfg.SmallLoanCurrency = defaults.SmallLoanCurrency
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxLTV == "" && programmaticConfig.MaxLTV != "" {
		yamlConfig.MaxLTV = programmaticConfig.MaxLTV
	}
	if yamlConfig.HighRate == "" && programmaticConfig.HighRate != "" {
		yamlConfig.HighRate = programmaticConfig.HighRate
	}
	if yamlConfig.LongTermMonths == 0 && programmaticConfig.LongTermMonths != 0 {
		yamlConfig.LongTermMonths = programmaticConfig.LongTermMonths
	}
	if yamlConfig.SmallLoanMinimum == "" && programmaticConfig.SmallLoanMinimum != "" {
		yamlConfig.SmallLoanMinimum = programmaticConfig.SmallLoanMinimum
	}
	if yamlConfig.SmallLoanCurrency == "" && programmaticConfig.SmallLoanCurrency != "" {
		yamlConfig.SmallLoanCurrency = programmaticConfig.SmallLoanCurrency
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
