package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a BusinessError so transports can map it to a stable
// response code without inspecting messages.
type Kind int

const (
	KindService Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "service"
	}
}

// Domain errors
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("state conflict")
	ErrService    = errors.New("service failure")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a BusinessError against the kind sentinels.
func (e *BusinessError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrService:
		return e.Kind == KindService
	}
	return false
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeRequiredField           = "REQUIRED_FIELD"
	ErrCodeFieldLength             = "FIELD_LENGTH"
	ErrCodeInvalidNationalID       = "INVALID_NATIONAL_ID"
	ErrCodeInvalidTerms            = "INVALID_LOAN_TERMS"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeAgeOutOfRange           = "AGE_OUT_OF_RANGE"
	ErrCodeActiveLoanExists        = "ACTIVE_LOAN_EXISTS"
	ErrCodeNationalIDUsed          = "NATIONAL_ID_ALREADY_USED"
	ErrCodeProductNotFound         = "LOAN_PRODUCT_NOT_FOUND"
	ErrCodeAmountOutOfRange        = "LOAN_AMOUNT_OUT_OF_RANGE"
	ErrCodeInsufficientIncome      = "INSUFFICIENT_INCOME"
	ErrCodeEMIExceedsIncome        = "EMI_EXCEEDS_INCOME_RATIO"
	ErrCodeLoanNotFound            = "LOAN_APPLICATION_NOT_FOUND"
	ErrCodeInvalidStatus           = "INVALID_STATUS"
	ErrCodeInvalidTransition       = "INVALID_STATUS_TRANSITION"
	ErrCodeLoanNotApproved         = "LOAN_NOT_APPROVED"
	ErrCodeUnsupportedTenure       = "UNSUPPORTED_TENURE"
	ErrCodeScheduleEntryNotFound   = "SCHEDULE_ENTRY_NOT_FOUND"
	ErrCodeInstallmentAlreadyPaid  = "INSTALLMENT_ALREADY_PAID"
	ErrCodeRepaymentsOutstanding   = "REPAYMENTS_OUTSTANDING"
	ErrCodeScheduleLocked          = "SCHEDULE_HAS_PAYMENTS"
	ErrCodeInvalidPayment          = "INVALID_PAYMENT"
	ErrCodeInvalidProduct          = "INVALID_LOAN_PRODUCT"
	ErrCodeCreationInProgress      = "CREATION_IN_PROGRESS"
	ErrCodeDatabaseError           = "DATABASE_ERROR"
	ErrCodeCacheError              = "CACHE_ERROR"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
)

// Validation wraps a business rule violation.
func Validation(code, message string) *BusinessError {
	return NewBusinessError(KindValidation, code, message, ErrValidation)
}

// NotFound wraps a missing referenced resource.
func NotFound(code, message string) *BusinessError {
	return NewBusinessError(KindNotFound, code, message, ErrNotFound)
}

// Conflict wraps a failed state precondition.
func Conflict(code, message string) *BusinessError {
	return NewBusinessError(KindConflict, code, message, ErrConflict)
}

func WrapLoanNotFound(id string) *BusinessError {
	return NotFound(ErrCodeLoanNotFound, fmt.Sprintf("Loan application with ID %s not found", id))
}

func WrapScheduleEntryNotFound(id string) *BusinessError {
	return NotFound(ErrCodeScheduleEntryNotFound, fmt.Sprintf("Repayment schedule entry %s not found", id))
}

func WrapInstallmentAlreadyPaid(id string) *BusinessError {
	return Conflict(ErrCodeInstallmentAlreadyPaid, fmt.Sprintf("Installment %s is already paid", id))
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindService,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		KindService,
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// KindOf reports the kind of err. Anything that is not a BusinessError is
// treated as a service failure.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindService
}

// AsBusinessError returns err as a BusinessError, wrapping unknown errors as
// service failures.
func AsBusinessError(err error) *BusinessError {
	var be *BusinessError
	if errors.As(err, &be) {
		return be
	}
	return WrapDatabaseError(err)
}
