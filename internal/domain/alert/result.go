package alert

// SkipReason explains why notify did not open a new alert.
type SkipReason string

const (
	// SkipCooldown means the previous alert was opened too recently.
	SkipCooldown SkipReason = "cooldown"
	// SkipAlreadyPending means an alert is open and waiting for a responder.
	SkipAlreadyPending SkipReason = "already_pending"
	// SkipAlreadyHandled means a responder is engaged with the open alert.
	SkipAlreadyHandled SkipReason = "already_handled"
)

// DispatchResult is the outcome of notify.
type DispatchResult struct {
	// Sent is true when this call opened the alert and fanned it out.
	Sent bool
	// Reason is set when Sent is false.
	Reason SkipReason
	// AlertID identifies the alert opened by this call.
	AlertID string
	// Delivery describes the fan-out; zero when skipped.
	Delivery Delivery
}

// Skipped builds a DispatchResult for a suppressed notify.
func Skipped(reason SkipReason) DispatchResult {
	return DispatchResult{Reason: reason}
}

// ResponseStatus is the outcome class of respond.
type ResponseStatus string

const (
	// ResponseAccepted means the caller won the alert.
	ResponseAccepted ResponseStatus = "accepted"
	// ResponseAlreadyHandled means someone else accepted first.
	ResponseAlreadyHandled ResponseStatus = "already_handled"
	// ResponseAlreadyIdle means there is no open alert to accept.
	ResponseAlreadyIdle ResponseStatus = "already_idle"
)

// ResponseResult is the outcome of respond.
type ResponseResult struct {
	// Status tells whether the caller accepted the alert.
	Status ResponseStatus
	// AlertID is the alert the status refers to; empty when idle.
	AlertID string
	// Responder is the subscriber holding the alert after the call.
	Responder *Responder
	// UnknownResponder is set when the caller's address was not in the directory
	// and a fallback display name was used.
	UnknownResponder bool
	// Delivery describes the messages sent as a consequence of the call.
	Delivery Delivery
}

// Delivery summarises one fan-out.
type Delivery struct {
	// Attempted counts subscribers a send was tried for.
	Attempted int
	// Delivered counts sends the dispatcher confirmed.
	Delivered int
	// Failed counts transient failures.
	Failed int
	// Pruned lists addresses removed from the directory as expired.
	Pruned []string
}
