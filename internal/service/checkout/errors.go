package checkout

import (
	"errors"
	"strings"
)

var (
	ErrCartEmpty          = errors.New("cart is empty")
	ErrInvalidTransition  = errors.New("invalid checkout transition")
	ErrCouponCodeRequired = errors.New("coupon code required")
	// ErrCouponRejected wraps every failed verification, whether the code
	// was invalid or the verifier could not be reached.
	ErrCouponRejected = errors.New("coupon rejected")
	// ErrCouponSuperseded is returned to a verification whose answer
	// arrived after a newer request was issued; its answer is dropped.
	ErrCouponSuperseded = errors.New("coupon verification superseded")
	ErrSyncStale        = errors.New("cart changed during sync")
	// ErrSyncUnavailable means no server-side cart is configured.
	ErrSyncUnavailable = errors.New("cart sync unavailable")
	// ErrCartNotCleared accompanies a confirmed order whose emptied cart
	// could not be written back; the stored cart still holds its lines.
	ErrCartNotCleared = errors.New("order confirmed but stored cart not cleared")
)

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldError lists every address field that failed validation.
type FieldError struct {
	Violations []FieldViolation
}

func (e *FieldError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return "invalid address fields: " + strings.Join(fields, ", ")
}
