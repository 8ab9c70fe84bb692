package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/help-alert/internal/config"
	domain "github.com/oshokin/help-alert/internal/domain/alert"
	"github.com/oshokin/help-alert/internal/domain/push"
	"github.com/oshokin/help-alert/internal/domain/subscriber"
	"github.com/oshokin/help-alert/internal/fanout"
	"github.com/oshokin/help-alert/internal/logger"
)

// ErrInvalidArgument marks caller mistakes such as a negative count.
var ErrInvalidArgument = errors.New("invalid argument")

// Deliverer sends one message to a list of subscribers.
type Deliverer interface {
	Deliver(ctx context.Context, msg fanout.Message, subscribers []subscriber.Record, exclude string) fanout.Report
}

// Service owns the alert state and serializes notify, respond and reset.
type Service struct {
	// directory lists and stores subscribers.
	directory subscriber.Directory
	// deliverer fans messages out to subscribers.
	deliverer Deliverer
	// messages are the notification templates.
	messages config.Messages
	// cooldown is the minimum interval between two alert openings.
	cooldown time.Duration
	// resetClearsCooldown makes Reset forget the last notify time.
	resetClearsCooldown bool
	// now is the clock.
	now func() time.Time
	// newID generates alert identifiers.
	newID func() string
	// state is the current alert state.
	state domain.State
	// mu guards state; it is never held during I/O.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator for alert identifiers.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New creates a Service in the idle phase.
func New(
	directory subscriber.Directory,
	deliverer Deliverer,
	settings config.Alert,
	messages config.Messages,
	opts ...Option,
) *Service {
	s := &Service{
		directory:           directory,
		deliverer:           deliverer,
		messages:            messages,
		cooldown:            settings.Cooldown,
		resetClearsCooldown: settings.ResetClearsCooldown,
		now:                 time.Now,
		newID:               uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Notify opens an alert and fans it out, unless the cooldown or an open alert
// suppresses it. A directory failure fails the call and leaves the state untouched.
func (s *Service) Notify(ctx context.Context, count int) (domain.DispatchResult, error) {
	if count < 0 {
		return domain.DispatchResult{}, fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidArgument, count)
	}

	if reason, skip := s.checkNotify(); skip {
		logger.InfoKV(ctx, "Notify skipped", "count", count, "reason", reason)
		return domain.Skipped(reason), nil
	}

	subscribers, err := s.directory.ListAll(ctx)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("list subscribers: %w", err)
	}

	// The list was read without the lock, so the guard is evaluated again.
	s.mu.Lock()

	if reason, skip := s.guardNotify(s.now()); skip {
		s.mu.Unlock()
		logger.InfoKV(ctx, "Notify skipped", "count", count, "reason", reason)

		return domain.Skipped(reason), nil
	}

	alertID := s.newID()
	s.state = domain.State{
		Phase:          domain.PhasePending,
		AlertID:        alertID,
		LastNotifyTime: s.now(),
	}

	s.mu.Unlock()

	logger.InfoKV(ctx, "Alert opened", "alert_id", alertID, "count", count, "subscribers", len(subscribers))

	report := s.deliverer.Deliver(detach(ctx), s.alertMessage(alertID, count), subscribers, "")

	return domain.DispatchResult{
		Sent:     true,
		AlertID:  alertID,
		Delivery: toDelivery(report),
	}, nil
}

// Respond lets the subscriber at address accept the open alert. Only the first
// responder wins; late responders and responders to an idle alert get a reply
// addressed to them alone. A repeated call from the winner is answered as
// accepted without sending anything.
func (s *Service) Respond(ctx context.Context, address string) (domain.ResponseResult, error) {
	if address == "" {
		return domain.ResponseResult{}, fmt.Errorf("%w: responder address is required", ErrInvalidArgument)
	}

	subscribers, err := s.directory.ListAll(ctx)
	if err != nil {
		return domain.ResponseResult{}, fmt.Errorf("list subscribers: %w", err)
	}

	record, known := subscriber.Find(subscribers, address)
	if !known {
		logger.WarnKV(ctx, "Responder is not registered, using fallback name", "address", address)
	}

	caller := &domain.Responder{
		Address:    address,
		DeviceName: record.DeviceName,
	}

	if caller.DeviceName == "" {
		caller.DeviceName = s.messages.FallbackName
	}

	s.mu.Lock()

	phase := s.state.Phase
	alertID := s.state.AlertID

	var holder *domain.Responder

	switch phase {
	case domain.PhasePending:
		s.state.Phase = domain.PhaseHandled
		s.state.Responder = caller.Clone()
		holder = caller.Clone()
	case domain.PhaseHandled:
		holder = s.state.Responder.Clone()
	case domain.PhaseIdle:
	}

	s.mu.Unlock()

	result := domain.ResponseResult{
		AlertID:          alertID,
		Responder:        holder,
		UnknownResponder: !known,
	}

	switch phase {
	case domain.PhasePending:
		logger.InfoKV(ctx, "Alert accepted", "alert_id", alertID, "address", address, "device", caller.DeviceName)

		result.Status = domain.ResponseAccepted
		result.Delivery = toDelivery(
			s.deliverer.Deliver(detach(ctx), s.acceptedMessage(alertID, caller), subscribers, address),
		)
	case domain.PhaseHandled:
		if holder.Address == address {
			logger.InfoKV(ctx, "Repeated response from the responder", "alert_id", alertID, "address", address)

			result.Status = domain.ResponseAccepted

			break
		}

		logger.InfoKV(ctx, "Late response", "alert_id", alertID, "address", address, "responder", holder.Address)

		result.Status = domain.ResponseAlreadyHandled
		result.Delivery = s.reply(ctx, s.alreadyHandledMessage(alertID, holder), record, known)
	default:
		logger.InfoKV(ctx, "Response without an open alert", "address", address)

		result.Status = domain.ResponseAlreadyIdle
		result.Delivery = s.reply(ctx, s.alreadyResolvedMessage(), record, known)
	}

	return result, nil
}

// Reset returns the alert to idle from any phase. The cooldown keeps running
// unless the service was configured to clear it.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	previous := s.state.Phase
	s.resetLocked()
	s.mu.Unlock()

	logger.InfoKV(ctx, "Alert reset", "previous_phase", previous)
}

// ResetIfOpenLongerThan resets an alert that has been pending or handled for
// more than maxOpen. It reports whether a reset happened.
func (s *Service) ResetIfOpenLongerThan(ctx context.Context, maxOpen time.Duration) bool {
	s.mu.Lock()

	if s.state.Phase == domain.PhaseIdle || s.now().Sub(s.state.LastNotifyTime) <= maxOpen {
		s.mu.Unlock()
		return false
	}

	previous := s.state.Phase
	alertID := s.state.AlertID
	s.resetLocked()
	s.mu.Unlock()

	logger.InfoKV(ctx, "Stale alert reset", "alert_id", alertID, "previous_phase", previous, "max_open", maxOpen)

	return true
}

// State returns a snapshot of the alert state.
func (s *Service) State(_ context.Context) domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.state.Clone()
}

// Subscribe registers a device or replaces its registration.
func (s *Service) Subscribe(
	ctx context.Context,
	deviceName, address string,
	credentials []byte,
) (subscriber.UpsertResult, error) {
	result, err := s.directory.Upsert(ctx, deviceName, address, credentials)
	if err != nil {
		return "", fmt.Errorf("upsert subscriber: %w", err)
	}

	logger.InfoKV(ctx, "Subscriber registered", "address", address, "device", deviceName, "result", result)

	return result, nil
}

// Unsubscribe removes a registration; unknown addresses are ignored.
func (s *Service) Unsubscribe(ctx context.Context, address string) error {
	if address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidArgument)
	}

	if err := s.directory.DeleteByAddress(ctx, address); err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}

	logger.InfoKV(ctx, "Subscriber removed", "address", address)

	return nil
}

// checkNotify evaluates the notify guard under the lock without changing state.
func (s *Service) checkNotify() (domain.SkipReason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.guardNotify(s.now())
}

// guardNotify must be called with mu held. The cooldown is checked before the
// phase, so bursts right after an alert opens report the cooldown.
func (s *Service) guardNotify(now time.Time) (domain.SkipReason, bool) {
	if !s.state.CooldownElapsed(now, s.cooldown) {
		return domain.SkipCooldown, true
	}

	switch s.state.Phase {
	case domain.PhasePending:
		return domain.SkipAlreadyPending, true
	case domain.PhaseHandled:
		return domain.SkipAlreadyHandled, true
	default:
		return "", false
	}
}

// resetLocked must be called with mu held.
func (s *Service) resetLocked() {
	lastNotify := s.state.LastNotifyTime
	if s.resetClearsCooldown {
		lastNotify = time.Time{}
	}

	s.state = domain.State{
		Phase:          domain.PhaseIdle,
		LastNotifyTime: lastNotify,
	}
}

// reply sends msg to the caller alone. Unregistered callers have no
// credentials and get nothing.
func (s *Service) reply(ctx context.Context, msg fanout.Message, caller subscriber.Record, known bool) domain.Delivery {
	if !known {
		logger.InfoKV(ctx, "Reply skipped for unregistered responder", "kind", msg.Payload.Kind)
		return domain.Delivery{}
	}

	return toDelivery(s.deliverer.Deliver(detach(ctx), msg, []subscriber.Record{caller}, ""))
}

// detach keeps the request values for logging but drops its deadline, so a
// fan-out started after a state change is bounded only by the send timeout.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Service) alertMessage(alertID string, count int) fanout.Message {
	return s.message(push.KindAlert, push.UrgencyHigh, alertID,
		s.messages.AlertTitle, s.messages.AlertBody, count, "")
}

func (s *Service) acceptedMessage(alertID string, responder *domain.Responder) fanout.Message {
	return s.message(push.KindAccepted, push.UrgencyNormal, alertID,
		s.messages.AcceptedTitle, s.messages.AcceptedBody, 0, responder.DeviceName)
}

func (s *Service) alreadyHandledMessage(alertID string, holder *domain.Responder) fanout.Message {
	name := s.messages.FallbackName
	if holder != nil && holder.DeviceName != "" {
		name = holder.DeviceName
	}

	return s.message(push.KindAlreadyHandled, push.UrgencyNormal, alertID,
		s.messages.AlreadyHandledTitle, s.messages.AlreadyHandledBody, 0, name)
}

func (s *Service) alreadyResolvedMessage() fanout.Message {
	return s.message(push.KindAlreadyResolved, push.UrgencyNormal, "",
		s.messages.AlreadyResolvedTitle, s.messages.AlreadyResolvedBody, 0, "")
}

func (s *Service) message(
	kind push.Kind,
	urgency push.Urgency,
	alertID, title, body string,
	count int,
	responder string,
) fanout.Message {
	replacer := strings.NewReplacer(
		"{count}", strconv.Itoa(count),
		"{responder}", responder,
	)

	return fanout.Message{
		Payload: push.Payload{
			Kind:    kind,
			Title:   replacer.Replace(title),
			Body:    replacer.Replace(body),
			AlertID: alertID,
			URL:     s.messages.URL,
		},
		Urgency: urgency,
	}
}

func toDelivery(report fanout.Report) domain.Delivery {
	return domain.Delivery{
		Attempted: report.Attempted,
		Delivered: report.Delivered,
		Failed:    report.Failed,
		Pruned:    report.Pruned,
	}
}
