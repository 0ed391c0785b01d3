package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/validation"
)

const DefaultSubmissionMessage = "Checkout failed. Please try again."

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrInvalidCart          = errors.New("cart totals out of range")
	ErrSubmissionInProgress = errors.New("checkout submission already in progress")
	IllegalTransitionError  = errors.New("illegal transition of checkout status")
)

// ValidationError carries every failing form field.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

// SubmissionError means the order store did not record the order. Message
// is safe to show to the customer.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// UserMessager is implemented by order store errors that carry a message
// meant for the customer.
type UserMessager interface {
	UserMessage() string
}

func submissionError(err error) *SubmissionError {
	msg := DefaultSubmissionMessage
	var um UserMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		msg = um.UserMessage()
	}
	return &SubmissionError{Message: msg, Err: err}
}

func illegalTransition(from, to domain.CheckoutStatus) error {
	return fmt.Errorf("%w: %s -> %s", IllegalTransitionError, from, to)
}
