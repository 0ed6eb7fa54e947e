// Package amortize implements loan amortization math on exact decimal
// arithmetic. All rounding happens only at documented boundaries, via
// types.RoundHalfUp.
package amortize

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lienworks/tokenledger/types"
)

// rateScale is the precision kept for the monthly rate before it enters
// the payment formula. The annual rate divides by 12 exactly at this
// scale and is not re-rounded afterwards.
const rateScale int32 = 10

// powPrecision bounds the fractional-exponent power used by ROI
// annualization.
const powPrecision int32 = 16

var twelve = decimal.NewFromInt(12)

// LoanParameters describes a loan to amortize.
type LoanParameters struct {
	Principal      types.Money     `json:"principal"`
	AnnualRate     decimal.Decimal `json:"annual_rate"`
	TermMonths     int             `json:"term_months"`
	PropertyValue  types.Money     `json:"property_value"`
	FirstDueDate   time.Time       `json:"first_due_date"`
	DownPayment    types.Money     `json:"down_payment"`
	ClosingCosts   types.Money     `json:"closing_costs"`
	MonthlyIncome  types.Money     `json:"monthly_income"`
	MonthlyExpense types.Money     `json:"monthly_expense"`
}

// monthlyRate returns AnnualRate/12 truncated to rateScale digits.
func (p LoanParameters) monthlyRate() decimal.Decimal {
	return p.AnnualRate.DivRound(twelve, rateScale)
}

// MonthlyPayment computes the level payment
//
//	P * r * (1+r)^n / ((1+r)^n - 1)
//
// rounded half up to the currency scale. A zero rate degenerates to
// P/n with the same rounding. A non-positive principal or term yields a
// zero payment.
func MonthlyPayment(p LoanParameters) (types.Money, error) {
	if p.AnnualRate.IsNegative() {
		return types.Money{}, fmt.Errorf("amortize: annual rate must not be negative, got %s", p.AnnualRate)
	}
	if p.Principal.Amount.Sign() <= 0 || p.TermMonths <= 0 {
		return types.Zero(p.Principal.Currency), nil
	}
	n := int64(p.TermMonths)
	principal := p.Principal.Amount

	if p.AnnualRate.IsZero() {
		raw := principal.DivRound(decimal.NewFromInt(n), types.CurrencyScale+4)
		return moneyAt(p.Principal.Currency, raw), nil
	}

	r := p.monthlyRate()
	factor := decimal.NewFromInt(1).Add(r).Pow(decimal.NewFromInt(n))
	numerator := principal.Mul(r).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	raw := numerator.DivRound(denominator, types.CurrencyScale+4)
	return moneyAt(p.Principal.Currency, raw), nil
}

// LoanToValue returns loan amount over property value as a ratio rounded
// half up to four decimal places. A non-positive property value or
// principal yields zero.
func LoanToValue(p LoanParameters) decimal.Decimal {
	if p.PropertyValue.Amount.Sign() <= 0 || p.Principal.Amount.Sign() <= 0 {
		return decimal.Zero
	}
	raw := p.Principal.Amount.DivRound(p.PropertyValue.Amount, types.RatioScale+4)
	return types.RoundHalfUp(raw, types.RatioScale)
}

// ROIProjection summarizes projected cash performance over the loan term.
type ROIProjection struct {
	TotalInvested    types.Money     `json:"total_invested"`
	TotalPaid        types.Money     `json:"total_paid"`
	TotalInterest    types.Money     `json:"total_interest"`
	NetCashFlow      types.Money     `json:"net_cash_flow"`
	CashOnCashReturn decimal.Decimal `json:"cash_on_cash_return"`
	AnnualizedReturn decimal.Decimal `json:"annualized_return"`
}

// ProjectROI runs the amortization schedule and derives return ratios.
// Cash-on-cash is annual net cash flow over cash invested; the
// annualized return converts the whole-term multiple to a yearly rate.
// Both ratios come back rounded half up to four decimal places.
func ProjectROI(p LoanParameters) (ROIProjection, error) {
	sched, err := GenerateSchedule(p)
	if err != nil {
		return ROIProjection{}, err
	}
	cur := p.Principal.Currency

	invested := types.Sum(p.DownPayment, p.ClosingCosts)
	if invested.Currency == "" {
		invested = types.Zero(cur)
	}

	totalPaid := types.Zero(cur)
	totalInterest := types.Zero(cur)
	for _, e := range sched.Entries {
		totalPaid = totalPaid.Add(e.Payment)
		totalInterest = totalInterest.Add(e.Interest)
	}

	monthlyNet := p.MonthlyIncome.Amount.Sub(p.MonthlyExpense.Amount)
	payment, err := MonthlyPayment(p)
	if err != nil {
		return ROIProjection{}, err
	}
	monthlyCash := monthlyNet.Sub(payment.Amount)
	netCashFlow := moneyAt(cur, monthlyCash.Mul(decimal.NewFromInt(int64(p.TermMonths))))

	proj := ROIProjection{
		TotalInvested: invested,
		TotalPaid:     totalPaid,
		TotalInterest: totalInterest,
		NetCashFlow:   netCashFlow,
	}

	if invested.Amount.Sign() > 0 {
		annualCash := monthlyCash.Mul(twelve)
		coc := annualCash.DivRound(invested.Amount, types.RatioScale+4)
		proj.CashOnCashReturn = types.RoundHalfUp(coc, types.RatioScale)

		years := decimal.NewFromInt(int64(p.TermMonths)).DivRound(twelve, rateScale)
		terminal := invested.Amount.Add(netCashFlow.Amount)
		if terminal.Sign() > 0 && years.Sign() > 0 {
			multiple := terminal.DivRound(invested.Amount, powPrecision)
			exponent := decimal.NewFromInt(1).DivRound(years, rateScale)
			grown, perr := multiple.PowWithPrecision(exponent, powPrecision)
			if perr != nil {
				return ROIProjection{}, fmt.Errorf("amortize: annualized return: %w", perr)
			}
			ann := grown.Sub(decimal.NewFromInt(1))
			proj.AnnualizedReturn = types.RoundHalfUp(ann, types.RatioScale)
		}
	}
	return proj, nil
}

func checkComputable(p LoanParameters) error {
	if p.Principal.Amount.Sign() <= 0 {
		return fmt.Errorf("amortize: principal must be positive, got %s", p.Principal)
	}
	if p.TermMonths <= 0 {
		return fmt.Errorf("amortize: term must be at least one month, got %d", p.TermMonths)
	}
	if p.AnnualRate.IsNegative() {
		return fmt.Errorf("amortize: annual rate must not be negative, got %s", p.AnnualRate)
	}
	return nil
}

func moneyAt(currency string, raw decimal.Decimal) types.Money {
	return types.Money{
		Amount:   types.RoundHalfUp(raw, types.CurrencyScale),
		Currency: currency,
	}
}
