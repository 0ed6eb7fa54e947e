package amortize

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lienworks/tokenledger/types"
)

// ValidationLimits bounds loan parameters. Errors block schedule
// generation; warnings flag unusual but workable deals.
type ValidationLimits struct {
	MaxLTV           decimal.Decimal `json:"max_ltv"`
	HighRate         decimal.Decimal `json:"high_rate"`
	LongTermMonths   int             `json:"long_term_months"`
	SmallLoanMinimum types.Money     `json:"small_loan_minimum"`
}

// DefaultLimits returns the stock underwriting thresholds.
func DefaultLimits() ValidationLimits {
	return ValidationLimits{
		MaxLTV:           decimal.RequireFromString("0.80"),
		HighRate:         decimal.RequireFromString("0.15"),
		LongTermMonths:   360,
		SmallLoanMinimum: types.USD("10000.00"),
	}
}

// Report is the outcome of validating loan parameters.
type Report struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateLoanParameters checks a loan against the limits. The report is
// valid when no errors accumulated; warnings never invalidate.
func ValidateLoanParameters(p LoanParameters, limits ValidationLimits) Report {
	var report Report

	if p.Principal.Amount.Sign() <= 0 {
		report.addError("principal must be positive, got %s", p.Principal)
	}
	if p.TermMonths <= 0 {
		report.addError("term must be at least one month, got %d", p.TermMonths)
	}
	if p.AnnualRate.IsNegative() {
		report.addError("annual rate must not be negative, got %s", p.AnnualRate)
	}
	if p.PropertyValue.Amount.Sign() <= 0 {
		report.addError("property value must be positive, got %s", p.PropertyValue)
	} else if p.Principal.Amount.Sign() > 0 {
		ltv := LoanToValue(p)
		nearMax := limits.MaxLTV.Mul(decimal.RequireFromString("0.9"))
		switch {
		case ltv.Cmp(limits.MaxLTV) > 0:
			report.addError("loan to value %s exceeds maximum %s", ltv, limits.MaxLTV)
		case ltv.Cmp(nearMax) > 0:
			report.addWarning("loan to value %s is within 10%% of maximum %s", ltv, limits.MaxLTV)
		}
	}

	if !limits.HighRate.IsZero() && p.AnnualRate.Cmp(limits.HighRate) > 0 {
		report.addWarning("annual rate %s is above %s", p.AnnualRate, limits.HighRate)
	}
	if limits.LongTermMonths > 0 && p.TermMonths > limits.LongTermMonths {
		report.addWarning("term of %d months exceeds %d", p.TermMonths, limits.LongTermMonths)
	}
	if !limits.SmallLoanMinimum.IsZero() &&
		p.Principal.Currency == limits.SmallLoanMinimum.Currency &&
		p.Principal.LessThan(limits.SmallLoanMinimum) {
		report.addWarning("principal %s is below %s", p.Principal, limits.SmallLoanMinimum)
	}

	report.IsValid = len(report.Errors) == 0
	return report
}
