package amortize

import (
	"fmt"
	"time"

	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/types"
)

// ScheduleEntry is one month of an amortization schedule. Principal and
// Interest always sum to Payment exactly.
type ScheduleEntry struct {
	Number           int         `json:"number"`
	DueDate          time.Time   `json:"due_date"`
	Payment          types.Money `json:"payment"`
	Principal        types.Money `json:"principal"`
	Interest         types.Money `json:"interest"`
	RemainingBalance types.Money `json:"remaining_balance"`
}

// Schedule is a generated amortization table, persistable by reference.
type Schedule struct {
	types.Entity
	ID         id.ScheduleID   `json:"id"`
	LoanRef    string          `json:"loan_ref"`
	UserID     string          `json:"user_id"`
	Parameters LoanParameters  `json:"parameters"`
	Payment    types.Money     `json:"payment"`
	Entries    []ScheduleEntry `json:"entries"`
}

// GenerateSchedule produces the month-by-month breakdown. Each month the
// interest is remaining balance times the monthly rate, rounded half up
// to the currency scale; principal is the payment minus that interest.
// The final month retires the exact remaining balance and its payment is
// recomputed, so the balance lands on zero with no drift.
func GenerateSchedule(p LoanParameters) (Schedule, error) {
	if err := checkComputable(p); err != nil {
		return Schedule{}, err
	}
	payment, err := MonthlyPayment(p)
	if err != nil {
		return Schedule{}, err
	}
	cur := p.Principal.Currency
	r := p.monthlyRate()

	remaining := p.Principal
	entries := make([]ScheduleEntry, 0, p.TermMonths)

	for m := 1; m <= p.TermMonths; m++ {
		due := dueDateFor(p.FirstDueDate, m)
		interest := moneyAt(cur, remaining.Amount.Mul(r))
		var principal, monthPayment types.Money
		if m == p.TermMonths {
			principal = remaining
			monthPayment = principal.Add(interest)
		} else {
			principal = payment.Subtract(interest)
			monthPayment = payment
			if principal.Amount.Cmp(remaining.Amount) > 0 {
				// Payment overshoots near the end of short or low-rate
				// schedules; clamp to the balance.
				principal = remaining
				monthPayment = principal.Add(interest)
			}
		}
		if principal.Amount.Sign() <= 0 && m < p.TermMonths {
			return Schedule{}, fmt.Errorf("amortize: payment %s does not cover interest %s in month %d", payment, interest, m)
		}
		remaining = remaining.Subtract(principal)

		entries = append(entries, ScheduleEntry{
			Number:           m,
			DueDate:          due,
			Payment:          monthPayment,
			Principal:        principal,
			Interest:         interest,
			RemainingBalance: remaining,
		})
	}

	return Schedule{
		Entity:     types.NewEntity(),
		ID:         id.NewScheduleID(),
		Parameters: p,
		Payment:    payment,
		Entries:    entries,
	}, nil
}

// dueDateFor places month m's due date on the first due date's day of
// month, m-1 calendar months later, clamped to the last day of months
// too short to hold it. Stepping AddDate from the previous due date
// would normalize a January 31 start into March and drift every month
// after.
func dueDateFor(first time.Time, m int) time.Time {
	if first.IsZero() {
		return time.Time{}
	}
	y, mo, d := first.Date()
	h, min, sec := first.Clock()
	// Day zero normalizes to the last day of the preceding month,
	// which is the target month's length.
	last := time.Date(y, mo+time.Month(m), 0, h, min, sec, first.Nanosecond(), first.Location())
	if d > last.Day() {
		return last
	}
	return time.Date(y, mo+time.Month(m-1), d, h, min, sec, first.Nanosecond(), first.Location())
}

// TotalInterest sums the interest column.
func (s Schedule) TotalInterest() types.Money {
	total := types.Zero(s.Payment.Currency)
	for _, e := range s.Entries {
		total = total.Add(e.Interest)
	}
	return total
}

// TotalPaid sums the payment column.
func (s Schedule) TotalPaid() types.Money {
	total := types.Zero(s.Payment.Currency)
	for _, e := range s.Entries {
		total = total.Add(e.Payment)
	}
	return total
}
