package extension

// Config holds the token ledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tokenledger" or "tokenledger" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// MaxLTV is the maximum loan-to-value ratio accepted by loan validation,
	// as a decimal string (default: "0.80").
	MaxLTV string `json:"max_ltv" mapstructure:"max_ltv" yaml:"max_ltv"`

	// HighRate is the annual rate above which loan validation warns,
	// as a decimal string (default: "0.15").
	HighRate string `json:"high_rate" mapstructure:"high_rate" yaml:"high_rate"`

	// LongTermMonths is the term length above which loan validation warns
	// (default: 360).
	LongTermMonths int `json:"long_term_months" mapstructure:"long_term_months" yaml:"long_term_months"`

	// SmallLoanMinimum is the principal below which loan validation warns,
	// as a decimal amount string in SmallLoanCurrency (default: "10000.00").
	SmallLoanMinimum string `json:"small_loan_minimum" mapstructure:"small_loan_minimum" yaml:"small_loan_minimum"`

	// SmallLoanCurrency is the currency for SmallLoanMinimum (default: "USD").
	SmallLoanCurrency string `json:"small_loan_currency" mapstructure:"small_loan_currency" yaml:"small_loan_currency"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxLTV:            "0.80",
		HighRate:          "0.15",
		LongTermMonths:    360,
		SmallLoanMinimum:  "10000.00",
		SmallLoanCurrency: "USD",
	}
}
