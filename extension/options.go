package extension

import (
	tokenledger "github.com/lienworks/tokenledger"
	"github.com/lienworks/tokenledger/plugin"
	"github.com/lienworks/tokenledger/store"
	"github.com/lienworks/tokenledger/subscription"
)

// Option configures the token ledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a tokenledger.Option through to the underlying engine.
func WithEngineOption(opt tokenledger.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, tokenledger.WithPlugin(p))
	}
}

// WithTierTable sets the subscription tier table for invoice grants.
func WithTierTable(t subscription.Table) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, tokenledger.WithTierTable(t))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
