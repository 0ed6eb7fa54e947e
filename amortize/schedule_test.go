package amortize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lienworks/tokenledger/types"
)

func TestGenerateSchedule(t *testing.T) {
	p := LoanParameters{
		Principal:  types.USD("12000.00"),
		AnnualRate: rate("0.12"),
		TermMonths: 12,
	}

	sched, err := GenerateSchedule(p)
	if err != nil {
		t.Fatalf("GenerateSchedule error: %v", err)
	}

	if len(sched.Entries) != 12 {
		t.Fatalf("Entries: got %d, want 12", len(sched.Entries))
	}
	if !sched.Payment.Equal(types.USD("1066.19")) {
		t.Errorf("Payment: got %v, want $1066.19", sched.Payment)
	}
	if sched.ID.IsNil() {
		t.Error("Schedule ID not assigned")
	}

	// First month: interest is exactly one percent of the principal.
	first := sched.Entries[0]
	if !first.Interest.Equal(types.USD("120.00")) {
		t.Errorf("First interest: got %v, want $120.00", first.Interest)
	}
	if !first.Principal.Equal(types.USD("946.19")) {
		t.Errorf("First principal: got %v, want $946.19", first.Principal)
	}
	if !first.RemainingBalance.Equal(types.USD("11053.81")) {
		t.Errorf("First remaining: got %v, want $11053.81", first.RemainingBalance)
	}

	// The final balance lands on zero with no drift.
	last := sched.Entries[len(sched.Entries)-1]
	if !last.RemainingBalance.IsZero() {
		t.Errorf("Final remaining: got %v, want zero", last.RemainingBalance)
	}

	// Principal retires exactly, and every row balances.
	totalPrincipal := types.Zero("usd")
	prev := p.Principal
	for _, e := range sched.Entries {
		totalPrincipal = totalPrincipal.Add(e.Principal)
		if !e.Payment.Equal(e.Principal.Add(e.Interest)) {
			t.Errorf("Month %d: payment %v != principal %v + interest %v", e.Number, e.Payment, e.Principal, e.Interest)
		}
		if !e.RemainingBalance.Equal(prev.Subtract(e.Principal)) {
			t.Errorf("Month %d: remaining %v inconsistent", e.Number, e.RemainingBalance)
		}
		prev = e.RemainingBalance
	}
	if !totalPrincipal.Equal(p.Principal) {
		t.Errorf("Total principal: got %v, want %v", totalPrincipal, p.Principal)
	}
}

func TestGenerateScheduleZeroRate(t *testing.T) {
	p := LoanParameters{
		Principal:  types.USD("12000.00"),
		AnnualRate: decimal.Zero,
		TermMonths: 12,
	}

	sched, err := GenerateSchedule(p)
	if err != nil {
		t.Fatalf("GenerateSchedule error: %v", err)
	}

	for _, e := range sched.Entries {
		if !e.Interest.IsZero() {
			t.Errorf("Month %d: interest %v, want zero", e.Number, e.Interest)
		}
		if !e.Payment.Equal(types.USD("1000.00")) {
			t.Errorf("Month %d: payment %v, want $1000.00", e.Number, e.Payment)
		}
	}
	if !sched.TotalInterest().IsZero() {
		t.Errorf("TotalInterest: got %v, want zero", sched.TotalInterest())
	}
	if !sched.TotalPaid().Equal(types.USD("12000.00")) {
		t.Errorf("TotalPaid: got %v, want $12000.00", sched.TotalPaid())
	}
}

func TestGenerateScheduleDueDates(t *testing.T) {
	first := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	p := LoanParameters{
		Principal:    types.USD("6000.00"),
		AnnualRate:   rate("0.06"),
		TermMonths:   6,
		FirstDueDate: first,
	}

	sched, err := GenerateSchedule(p)
	if err != nil {
		t.Fatalf("GenerateSchedule error: %v", err)
	}

	want := []time.Time{
		time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC),
	}
	for i, e := range sched.Entries {
		if !e.DueDate.Equal(want[i]) {
			t.Errorf("Month %d: due date %v, want %v", e.Number, e.DueDate, want[i])
		}
	}
}

func TestGenerateScheduleMonthEndDueDates(t *testing.T) {
	p := LoanParameters{
		Principal:    types.USD("12000.00"),
		AnnualRate:   rate("0.06"),
		TermMonths:   12,
		FirstDueDate: time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
	}

	sched, err := GenerateSchedule(p)
	if err != nil {
		t.Fatalf("GenerateSchedule error: %v", err)
	}

	// Short months clamp to their last day; every 31-day month stays on
	// the 31st instead of drifting to the 3rd after February.
	want := []time.Time{
		time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.November, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	for i, e := range sched.Entries {
		if !e.DueDate.Equal(want[i]) {
			t.Errorf("Month %d: due date %v, want %v", e.Number, e.DueDate, want[i])
		}
	}
}

func TestGenerateScheduleLeapFebruaryDueDate(t *testing.T) {
	p := LoanParameters{
		Principal:    types.USD("3000.00"),
		AnnualRate:   rate("0.06"),
		TermMonths:   3,
		FirstDueDate: time.Date(2027, time.December, 31, 0, 0, 0, 0, time.UTC),
	}

	sched, err := GenerateSchedule(p)
	if err != nil {
		t.Fatalf("GenerateSchedule error: %v", err)
	}

	want := []time.Time{
		time.Date(2027, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2028, time.January, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC),
	}
	for i, e := range sched.Entries {
		if !e.DueDate.Equal(want[i]) {
			t.Errorf("Month %d: due date %v, want %v", e.Number, e.DueDate, want[i])
		}
	}
}

func TestGenerateScheduleNoDueDate(t *testing.T) {
	p := LoanParameters{
		Principal:  types.USD("6000.00"),
		AnnualRate: rate("0.06"),
		TermMonths: 6,
	}

	sched, err := GenerateSchedule(p)
	if err != nil {
		t.Fatalf("GenerateSchedule error: %v", err)
	}
	for _, e := range sched.Entries {
		if !e.DueDate.IsZero() {
			t.Errorf("Month %d: expected zero due date, got %v", e.Number, e.DueDate)
		}
	}
}

func TestGenerateScheduleRejectsBadParams(t *testing.T) {
	tests := []struct {
		name string
		p    LoanParameters
	}{
		{"Zero principal", LoanParameters{Principal: types.Zero("usd"), AnnualRate: rate("0.06"), TermMonths: 12}},
		{"Negative principal", LoanParameters{Principal: types.USD("-100.00"), AnnualRate: rate("0.06"), TermMonths: 12}},
		{"Zero term", LoanParameters{Principal: types.USD("1000.00"), AnnualRate: rate("0.06"), TermMonths: 0}},
		{"Negative rate", LoanParameters{Principal: types.USD("1000.00"), AnnualRate: rate("-0.06"), TermMonths: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateSchedule(tt.p); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestGenerateScheduleLongTerm(t *testing.T) {
	p := LoanParameters{
		Principal:  types.USD("100000.00"),
		AnnualRate: rate("0.06"),
		TermMonths: 360,
	}

	sched, err := GenerateSchedule(p)
	if err != nil {
		t.Fatalf("GenerateSchedule error: %v", err)
	}
	if len(sched.Entries) != 360 {
		t.Fatalf("Entries: got %d, want 360", len(sched.Entries))
	}
	if !sched.Entries[359].RemainingBalance.IsZero() {
		t.Errorf("Final remaining: got %v, want zero", sched.Entries[359].RemainingBalance)
	}

	totalPrincipal := types.Zero("usd")
	for _, e := range sched.Entries {
		totalPrincipal = totalPrincipal.Add(e.Principal)
	}
	if !totalPrincipal.Equal(p.Principal) {
		t.Errorf("Total principal: got %v, want %v", totalPrincipal, p.Principal)
	}
}
