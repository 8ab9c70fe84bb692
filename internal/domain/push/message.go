package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Kind tells the receiving device which of the alert messages it got.
type Kind string

const (
	// KindAlert asks subscribers for help.
	KindAlert Kind = "alert"
	// KindAccepted tells the other subscribers that someone accepted.
	KindAccepted Kind = "accepted"
	// KindAlreadyHandled tells a late responder that someone else accepted.
	KindAlreadyHandled Kind = "already_handled"
	// KindAlreadyResolved tells a responder that no alert is open.
	KindAlreadyResolved Kind = "already_resolved"
)

// Payload is the message body delivered to a subscriber's device.
type Payload struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	AlertID string `json:"alert_id"`
	URL     string `json:"url,omitempty"`
}

// Encode renders the payload as the JSON document the service worker reads.
func (p *Payload) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	return data, nil
}

// Urgency is the Web Push urgency hint.
type Urgency string

const (
	// UrgencyNormal is used for informational messages.
	UrgencyNormal Urgency = "normal"
	// UrgencyHigh is used for the alert itself.
	UrgencyHigh Urgency = "high"
)

// Status classifies the result of one send.
type Status int

const (
	// StatusDelivered means the push service accepted the message.
	StatusDelivered Status = iota
	// StatusExpired means the address is permanently gone and should be pruned.
	StatusExpired
	// StatusTransient means the send failed and may work later.
	StatusTransient
)

// String returns the name used in logs.
func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusExpired:
		return "expired"
	case StatusTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Outcome is what a Dispatcher reports for one send.
type Outcome struct {
	Status Status
	// Detail carries the failure description for logs.
	Detail string
}

// Delivered is the outcome of a successful send.
func Delivered() Outcome {
	return Outcome{Status: StatusDelivered}
}

// Expired is the outcome of a send to a permanently rejected address.
func Expired(detail string) Outcome {
	return Outcome{Status: StatusExpired, Detail: detail}
}

// Transient is the outcome of a send that failed for a recoverable reason.
func Transient(detail string) Outcome {
	return Outcome{Status: StatusTransient, Detail: detail}
}

// Dispatcher sends one message to one subscriber. It never returns an error:
// every failure is classified into the Outcome.
type Dispatcher interface {
	Send(ctx context.Context, credentials, payload []byte, urgency Urgency, ttl time.Duration) Outcome
}
