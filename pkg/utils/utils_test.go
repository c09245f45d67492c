package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateEMI(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		months    int
		expected  string
	}{
		{
			name:      "standard personal loan",
			principal: decimal.NewFromInt(120000),
			rate:      decimal.NewFromInt(12),
			months:    12,
			expected:  "10661.85",
		},
		{
			name:      "zero interest rate",
			principal: decimal.NewFromInt(120000),
			rate:      decimal.Zero,
			months:    12,
			expected:  "10000.00", // 120,000 / 12
		},
		{
			name:      "single month",
			principal: decimal.NewFromInt(100000),
			rate:      decimal.NewFromInt(12),
			months:    1,
			expected:  "101000.00", // principal plus one month of interest
		},
		{
			name:      "fractional rate",
			principal: decimal.NewFromInt(500000),
			rate:      decimal.RequireFromString("10.5"),
			months:    24,
			expected:  "23188.02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CalculateEMI(tt.principal, tt.rate, tt.months)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, RoundMoney(result).StringFixed(2))
		})
	}
}

func TestCalculateEMI_InvalidInput(t *testing.T) {
	_, err := CalculateEMI(decimal.NewFromInt(1000), decimal.NewFromInt(10), 0)
	assert.Error(t, err)

	_, err = CalculateEMI(decimal.NewFromInt(1000), decimal.NewFromInt(-1), 12)
	assert.Error(t, err)
}

func TestMonthlyRate(t *testing.T) {
	assert.True(t, MonthlyRate(decimal.NewFromInt(12)).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, MonthlyRate(decimal.Zero).IsZero())
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "1.01", RoundMoney(decimal.RequireFromString("1.005")).StringFixed(2))
	assert.Equal(t, "-1.01", RoundMoney(decimal.RequireFromString("-1.005")).StringFixed(2))
	assert.Equal(t, "10661.85", RoundMoney(decimal.RequireFromString("10661.854641")).StringFixed(2))
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		expected time.Time
	}{
		{
			name:     "first of month",
			start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of month clamps in leap year",
			start:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of month clamps in common year",
			start:    time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "crosses year boundary",
			start:    time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC),
			months:   3,
			expected: time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "day restored after short month",
			start:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   2,
			expected: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonths(tt.start, tt.months))
		})
	}
}

func TestCalculateDueDate(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), CalculateDueDate(baseDate, 1))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), CalculateDueDate(baseDate, 12))
}

func TestAgeOn(t *testing.T) {
	tests := []struct {
		name     string
		dob      time.Time
		today    time.Time
		expected int
	}{
		{
			name:     "birthday today",
			dob:      time.Date(2004, 6, 15, 0, 0, 0, 0, time.UTC),
			today:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			expected: 20,
		},
		{
			name:     "day before birthday",
			dob:      time.Date(2004, 6, 15, 0, 0, 0, 0, time.UTC),
			today:    time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
			expected: 19,
		},
		{
			name:     "leap day birthday in common year",
			dob:      time.Date(2004, 2, 29, 0, 0, 0, 0, time.UTC),
			today:    time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			expected: 20,
		},
		{
			name:     "leap day birthday after feb",
			dob:      time.Date(2004, 2, 29, 0, 0, 0, 0, time.UTC),
			today:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: 21,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AgeOn(tt.dob, tt.today))
		})
	}
}

func TestIsDateOverdue(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.True(t, IsDateOverdue(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsDateOverdue(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsDateOverdue(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), now))
}
