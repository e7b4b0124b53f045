// Package notify delivers transactional messages (one-time codes) to user
// addresses. Delivery is two-phase: Compose validates the template and
// builds the message (hand-off), Send performs the actual delivery. The OTP
// engine records a different failure status for each phase.
package notify

// Delivery is a composed message ready to be sent exactly once. Send may be
// retried safely; providers are expected to be idempotent-safe.
type Delivery interface {
	Send() error
}

// Notifier composes a message for the given template and recipient. A
// Compose error means the message was never handed off; a Send error means
// delivery failed after hand-off.
type Notifier interface {
	Compose(templateID, to string, data map[string]string) (Delivery, error)
}
