package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// RoundMoney rounds to 2 decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MonthlyRate converts an annual percentage rate into a monthly fraction.
// 12 (percent) becomes 0.01.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(twelve).Div(hundred)
}

// CalculateEMI calculates the equated monthly installment using the
// reducing-balance formula:
//
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1)
//
// The result is NOT rounded; callers round on output only.
func CalculateEMI(principal, annualRatePercent decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if tenureMonths <= 0 {
		return decimal.Zero, fmt.Errorf("tenure must be greater than 0, got %d", tenureMonths)
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, fmt.Errorf("interest rate must not be negative, got %s", annualRatePercent)
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	if annualRatePercent.IsZero() {
		return principal.Div(n), nil
	}

	r := MonthlyRate(annualRatePercent)
	growth, err := decimal.NewFromInt(1).Add(r).PowInt32(int32(tenureMonths))
	if err != nil {
		return decimal.Zero, fmt.Errorf("compound growth: %w", err)
	}

	return principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))), nil
}

// AddMonths adds calendar months to t. When the target month is shorter than
// t's day of month the result is clamped to the last day of that month, so
// Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), t.Location())
	if d > last {
		d = last
	}
	return firstOfTarget.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// CalculateDueDate calculates the due date for a specific installment.
// Installment 1 is due one calendar month after the start date; each due
// date is derived from the start date, never from the previous due date.
func CalculateDueDate(startDate time.Time, installment int) time.Time {
	return AddMonths(startDate, installment)
}

// AgeOn returns the age in whole years on the given day. The year count is
// decremented when the birthday has not yet occurred in that year.
func AgeOn(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// TruncateToDay drops the time-of-day component in t's location.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsDateOverdue checks if a due date lies strictly before the current day.
func IsDateOverdue(dueDate, now time.Time) bool {
	return TruncateToDay(dueDate.In(time.UTC)).Before(TruncateToDay(now.In(time.UTC)))
}
