package fanout

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/oshokin/help-alert/internal/domain/push"
	"github.com/oshokin/help-alert/internal/domain/subscriber"
	"github.com/oshokin/help-alert/internal/logger"
)

const (
	// defaultParallelism is used when the option is not set.
	defaultParallelism = 8
	// pruneTimeout bounds the directory cleanup after the pass.
	pruneTimeout = 10 * time.Second
)

// Message is one logical notification.
type Message struct {
	Payload push.Payload
	Urgency push.Urgency
}

// Report summarises one fan-out.
type Report struct {
	// Attempted counts subscribers a send was tried for.
	Attempted int
	// Delivered counts confirmed sends.
	Delivered int
	// Failed counts transient failures, including abandoned sends.
	Failed int
	// Pruned lists addresses deleted from the directory.
	Pruned []string
}

// Fanout sends messages through a Dispatcher and prunes expired subscribers.
type Fanout struct {
	// dispatcher delivers a single message.
	dispatcher push.Dispatcher
	// directory receives deletes for expired addresses.
	directory subscriber.Directory
	// timeout bounds each send.
	timeout time.Duration
	// ttl is handed to the dispatcher with every send.
	ttl time.Duration
	// parallelism is the number of concurrent sends.
	parallelism int
	// limiter caps the outbound send rate when set.
	limiter *rate.Limiter
}

// Option configures a Fanout.
type Option func(*Fanout)

// WithTimeout bounds every dispatcher call.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fanout) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithTTL sets how long push services keep undelivered messages.
func WithTTL(ttl time.Duration) Option {
	return func(f *Fanout) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// WithParallelism sets the number of concurrent sends.
func WithParallelism(n int) Option {
	return func(f *Fanout) {
		if n > 0 {
			f.parallelism = n
		}
	}
}

// WithRateLimit caps the number of sends per second; zero disables the cap.
func WithRateLimit(perSecond float64) Option {
	return func(f *Fanout) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}

		f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates a Fanout.
func New(dispatcher push.Dispatcher, directory subscriber.Directory, opts ...Option) *Fanout {
	f := &Fanout{
		dispatcher:  dispatcher,
		directory:   directory,
		parallelism: defaultParallelism,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Deliver sends msg to every subscriber whose address differs from exclude.
// Per-subscriber failures never abort the pass; an empty exclude excludes nobody.
func (f *Fanout) Deliver(
	ctx context.Context,
	msg Message,
	subscribers []subscriber.Record,
	exclude string,
) Report {
	var report Report

	body, err := msg.Payload.Encode()
	if err != nil {
		logger.ErrorKV(ctx, "Unable to encode payload", "kind", msg.Payload.Kind, "error", err)
		return report
	}

	targets := make([]subscriber.Record, 0, len(subscribers))

	for _, s := range subscribers {
		if exclude != "" && s.Address == exclude {
			continue
		}

		targets = append(targets, s)
	}

	// One slot per target, so no locking is needed while collecting.
	outcomes := make([]push.Outcome, len(targets))

	var group errgroup.Group

	group.SetLimit(f.parallelism)

	for i, target := range targets {
		group.Go(func() error {
			outcomes[i] = f.send(ctx, target, body, msg.Urgency)
			return nil
		})
	}

	_ = group.Wait() //nolint:errcheck // Workers never return errors.

	expired := make([]string, 0)

	for i, outcome := range outcomes {
		target := targets[i]
		report.Attempted++

		switch outcome.Status {
		case push.StatusDelivered:
			report.Delivered++
		case push.StatusExpired:
			logger.InfoKV(ctx, "Subscription expired", "address", target.Address, "device", target.DeviceName,
				"detail", outcome.Detail)

			expired = append(expired, target.Address)
		default:
			report.Failed++

			logger.WarnKV(ctx, "Delivery failed", "address", target.Address, "device", target.DeviceName,
				"detail", outcome.Detail)
		}
	}

	report.Pruned = f.prune(ctx, expired)

	logger.InfoKV(ctx, "Fan-out finished",
		"kind", msg.Payload.Kind,
		"attempted", report.Attempted,
		"delivered", report.Delivered,
		"failed", report.Failed,
		"pruned", len(report.Pruned),
	)

	return report
}

// send performs one bounded delivery.
func (f *Fanout) send(ctx context.Context, target subscriber.Record, body []byte, urgency push.Urgency) push.Outcome {
	if err := ctx.Err(); err != nil {
		return push.Transient("abandoned: " + err.Error())
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return push.Transient("rate limit: " + err.Error())
		}
	}

	sendCtx := ctx

	if f.timeout > 0 {
		var cancel context.CancelFunc

		sendCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	return f.dispatcher.Send(sendCtx, target.Credentials, body, urgency, f.ttl)
}

// prune deletes expired addresses after the pass. It keeps going after a failed
// delete and uses a context detached from caller cancellation.
func (f *Fanout) prune(ctx context.Context, addresses []string) []string {
	if len(addresses) == 0 || f.directory == nil {
		return nil
	}

	pruneCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pruneTimeout)
	defer cancel()

	pruned := make([]string, 0, len(addresses))

	for _, address := range addresses {
		if err := f.directory.DeleteByAddress(pruneCtx, address); err != nil {
			logger.ErrorKV(ctx, "Unable to prune expired subscriber", "address", address, "error", err)
			continue
		}

		pruned = append(pruned, address)
	}

	return pruned
}
