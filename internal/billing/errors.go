package billing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPlan                 = errors.New("unknown plan code")
	ErrDowngradeNotAllowed         = errors.New("downgrades are not supported, please contact support")
	ErrPlanNotPurchasable          = errors.New("plan is not available for purchase")
	ErrAccountNotFound             = errors.New("account not found")
	ErrPlanNotFound                = errors.New("plan not found")
	ErrMultipleActiveSubscriptions = errors.New("multiple active subscriptions found for account")
)

// ProrationError wraps a payment-processor failure during an in-place
// upgrade. The processor's message is surfaced verbatim to the caller.
type ProrationError struct {
	Err error
}

func (e *ProrationError) Error() string {
	return fmt.Sprintf("proration failed: %v", e.Err)
}

func (e *ProrationError) Unwrap() error {
	return e.Err
}
