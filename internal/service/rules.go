package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/repository"
)

// Rules are the configurable business limits.
type Rules struct {
	MinAge             int
	MaxAge             int
	MinLoanAmount      decimal.Decimal
	MaxLoanAmount      decimal.Decimal
	IncomeMultiplier   decimal.Decimal
	MaxEMIIncomeRatio  decimal.Decimal
	PenaltyAmount      decimal.Decimal
	AllowedPlanTenures []int
}

func DefaultRules() Rules {
	return Rules{
		MinAge:             20,
		MaxAge:             100,
		MinLoanAmount:      decimal.NewFromInt(10000),
		MaxLoanAmount:      decimal.NewFromInt(1000000),
		IncomeMultiplier:   decimal.NewFromInt(3),
		MaxEMIIncomeRatio:  decimal.RequireFromString("0.6"),
		PenaltyAmount:      decimal.NewFromInt(500),
		AllowedPlanTenures: []int{6, 12, 24},
	}
}

func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		MinAge:             cfg.Business.MinAge,
		MaxAge:             cfg.Business.MaxAge,
		MinLoanAmount:      cfg.GetMinLoanAmount(),
		MaxLoanAmount:      cfg.GetMaxLoanAmount(),
		IncomeMultiplier:   cfg.GetIncomeMultiplier(),
		MaxEMIIncomeRatio:  cfg.GetMaxEMIIncomeRatio(),
		PenaltyAmount:      cfg.GetPenaltyAmount(),
		AllowedPlanTenures: cfg.Business.AllowedPlanTenures,
	}
}

func (r Rules) tenureAllowed(months int) bool {
	for _, t := range r.AllowedPlanTenures {
		if t == months {
			return true
		}
	}
	return false
}

// Repositories bundles the stores the services work against.
type Repositories struct {
	Tx           repository.Transactor
	Users        repository.UserRepository
	Products     repository.ProductRepository
	Applications repository.ApplicationRepository
	Schedules    repository.ScheduleRepository
	Payments     repository.PaymentRepository
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
