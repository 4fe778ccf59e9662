package payments

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

var (
	// ErrAuthenticationFailed means the signature header could not be
	// proven to originate from the gateway (bad signature or a
	// timestamp outside the tolerance window).
	ErrAuthenticationFailed = errors.New("webhook authentication failed")

	// ErrMalformedEvent means the payload does not parse into the
	// expected event shape.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// VerifyEvent recomputes the expected signature over the raw payload
// with the shared secret and returns the parsed event. The underlying
// SDK compares signatures in constant time and enforces the default
// timestamp tolerance. Pure validation, no side effects.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) ||
			errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrTooOld) ||
			errors.Is(err, webhook.ErrNoValidSignature) {
			return stripe.Event{}, fmt.Errorf("%w: %s", ErrAuthenticationFailed, err)
		}
		return stripe.Event{}, fmt.Errorf("%w: %s", ErrMalformedEvent, err)
	}
	return event, nil
}
