package domain

// CheckoutForm is the transient input collected at checkout. It is never persisted.
type CheckoutForm struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	AcceptTerms  bool   `json:"acceptTerms"`
}

type CheckoutStatus string

const (
	CheckoutStatusIdle       CheckoutStatus = "idle"
	CheckoutStatusValidating CheckoutStatus = "validating"
	CheckoutStatusSubmitting CheckoutStatus = "submitting"
	CheckoutStatusSucceeded  CheckoutStatus = "succeeded"
	CheckoutStatusFailed     CheckoutStatus = "failed"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:       {CheckoutStatusValidating},
	CheckoutStatusValidating: {CheckoutStatusSubmitting, CheckoutStatusFailed},
	CheckoutStatusSubmitting: {CheckoutStatusSucceeded, CheckoutStatusFailed},
	CheckoutStatusFailed:     {CheckoutStatusValidating, CheckoutStatusSubmitting},
	CheckoutStatusSucceeded:  {},
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Succeeded is left only by resetting the pipeline.
func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSucceeded
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// FailureKind says which stage a failed checkout stopped at.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureValidation FailureKind = "validation"
	FailureCart       FailureKind = "cart"
	FailureSubmission FailureKind = "submission"
)
