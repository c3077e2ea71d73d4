package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Precondition and lookup failures
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeInvalidStatus          = "INVALID_STATUS"
	ErrCodeInvalidTransition      = "INVALID_TRANSITION"
	ErrCodeBookingNotFound        = "BOOKING_NOT_FOUND"
	ErrCodeSupplierNotFound       = "SUPPLIER_NOT_FOUND"
	ErrCodeDriverNotFound         = "DRIVER_NOT_FOUND"
	ErrCodeCarNotFound            = "CAR_NOT_FOUND"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeLicenseRequired        = "LICENSE_REQUIRED"
	ErrCodePayLaterNotAllowed     = "PAY_LATER_NOT_ALLOWED"
	ErrCodeOptionUnavailable      = "OPTION_UNAVAILABLE"
	ErrCodeCancellationNotAllowed = "CANCELLATION_NOT_ALLOWED"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeDuplicateEmail         = "DUPLICATE_EMAIL"
)

// Payment outcomes
const (
	ErrCodePaymentNotCompleted = "PAYMENT_NOT_COMPLETED"
	ErrCodePaymentRejected     = "PAYMENT_REJECTED"
	ErrCodeGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

func NewInvalidStatusError(status string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidStatus,
		Message: fmt.Sprintf("invalid booking status %q", status),
	}
}

func NewInvalidTransitionError(from, to BookingStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewBookingNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeBookingNotFound,
		Message: fmt.Sprintf("booking %s not found", id),
	}
}

func NewSupplierNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSupplierNotFound,
		Message: fmt.Sprintf("supplier %s not found", id),
	}
}

func NewDriverNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDriverNotFound,
		Message: fmt.Sprintf("driver %s not found", id),
	}
}

func NewCarNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCarNotFound,
		Message: fmt.Sprintf("car %s not found", id),
	}
}

func NewUserNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUserNotFound,
		Message: fmt.Sprintf("user %s not found", id),
	}
}

func NewLicenseRequiredError(supplierID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeLicenseRequired,
		Message: fmt.Sprintf("supplier %s requires a driver license", supplierID),
	}
}

func NewPayLaterNotAllowedError(supplierID string) *DomainError {
	return &DomainError{
		Code:    ErrCodePayLaterNotAllowed,
		Message: fmt.Sprintf("supplier %s does not accept pay later", supplierID),
	}
}

func NewOptionUnavailableError(option string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOptionUnavailable,
		Message: fmt.Sprintf("option %s is not available for this car", option),
	}
}

func NewCancellationNotAllowedError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCancellationNotAllowed,
		Message: fmt.Sprintf("booking %s cannot be cancelled", id),
	}
}

func NewConcurrentModificationError(id string, expected int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeConcurrentModification,
		Message: fmt.Sprintf("booking %s was modified since version %d", id, expected),
	}
}

func NewDuplicateEmailError(email string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateEmail,
		Message: fmt.Sprintf("a user with email %s already exists", email),
	}
}

func NewPaymentNotCompletedError(ref string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotCompleted,
		Message: fmt.Sprintf("payment %s not completed", ref),
	}
}

func NewGatewayUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeGatewayUnavailable,
		Message: "payment gateway unavailable",
		Err:     err,
	}
}

// IsErrorCode reports whether err carries a DomainError with the given code.
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
