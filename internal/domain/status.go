package domain

import (
	"fmt"
	"strings"
)

// LoanStatus is the lifecycle state of a loan application.
type LoanStatus string

const (
	LoanStatusPending       LoanStatus = "Pending"
	LoanStatusInitialReview LoanStatus = "Initial Review"
	LoanStatusProcessing    LoanStatus = "Processing"
	LoanStatusApproved      LoanStatus = "Approved"
	LoanStatusRejected      LoanStatus = "Rejected"
	LoanStatusCompleted     LoanStatus = "Completed"
)

// AllLoanStatuses is the writable allow-list.
var AllLoanStatuses = []LoanStatus{
	LoanStatusPending,
	LoanStatusInitialReview,
	LoanStatusProcessing,
	LoanStatusApproved,
	LoanStatusRejected,
	LoanStatusCompleted,
}

var transitions = map[LoanStatus][]LoanStatus{
	LoanStatusPending:       {LoanStatusInitialReview, LoanStatusProcessing, LoanStatusApproved, LoanStatusRejected},
	LoanStatusInitialReview: {LoanStatusPending, LoanStatusProcessing},
	LoanStatusProcessing:    {LoanStatusInitialReview, LoanStatusApproved, LoanStatusRejected},
	LoanStatusApproved:      {LoanStatusCompleted},
}

// ParseLoanStatus matches s case-insensitively against the allow-list and
// returns the canonical spelling.
func ParseLoanStatus(s string) (LoanStatus, error) {
	trimmed := strings.TrimSpace(s)
	for _, status := range AllLoanStatuses {
		if strings.EqualFold(trimmed, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid loan status %q", s)
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s LoanStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CountsAsActive reports whether an application in this status blocks the
// user from opening another one.
func (s LoanStatus) CountsAsActive() bool {
	switch s {
	case LoanStatusPending, LoanStatusInitialReview, LoanStatusProcessing, LoanStatusApproved:
		return true
	}
	return false
}

func (s LoanStatus) String() string {
	return string(s)
}
