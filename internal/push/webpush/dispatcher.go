package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/domain/push"
)

// maxDetailBytes caps how much of an error response body ends up in logs.
const maxDetailBytes = 256

// errIncompleteSubscription is reported for stored subscriptions that cannot be used.
var errIncompleteSubscription = errors.New("subscription misses endpoint or keys")

// Dispatcher sends encrypted Web Push messages.
type Dispatcher struct {
	// publicKey and privateKey are the VAPID key pair.
	publicKey  string
	privateKey string
	// subscriber is the contact sent to push services in the VAPID token.
	subscriber string
	// client performs the HTTP requests.
	client webpush.HTTPClient
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client webpush.HTTPClient) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// New creates a Dispatcher from push settings.
func New(settings config.Push, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publicKey:  settings.VAPIDPublicKey,
		privateKey: settings.VAPIDPrivateKey,
		subscriber: settings.Subscriber,
		client:     &http.Client{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Send delivers payload to the subscription encoded in credentials.
// 404 and 410 answers mean the subscription is gone; a subscription that
// cannot be decoded can never be delivered, so it is reported expired too.
func (d *Dispatcher) Send(
	ctx context.Context,
	credentials, payload []byte,
	urgency push.Urgency,
	ttl time.Duration,
) push.Outcome {
	subscription, err := decodeSubscription(credentials)
	if err != nil {
		return push.Expired(err.Error())
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, subscription, &webpush.Options{
		HTTPClient:      d.client,
		Subscriber:      d.subscriber,
		TTL:             int(ttl / time.Second),
		Urgency:         webpush.Urgency(urgency),
		VAPIDPublicKey:  d.publicKey,
		VAPIDPrivateKey: d.privateKey,
	})
	if err != nil {
		return push.Transient(fmt.Sprintf("send: %v", err))
	}

	defer func() { _ = resp.Body.Close() }()

	return classify(resp)
}

// classify maps the push service answer to an outcome.
func classify(resp *http.Response) push.Outcome {
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		_, _ = io.Copy(io.Discard, resp.Body)
		return push.Delivered()
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return push.Expired(describe(resp))
	default:
		return push.Transient(describe(resp))
	}
}

func describe(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
	if len(body) == 0 {
		return resp.Status
	}

	return resp.Status + ": " + string(body)
}

func decodeSubscription(credentials []byte) (*webpush.Subscription, error) {
	var subscription webpush.Subscription
	if err := json.Unmarshal(credentials, &subscription); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}

	if subscription.Endpoint == "" || subscription.Keys.Auth == "" || subscription.Keys.P256dh == "" {
		return nil, errIncompleteSubscription
	}

	return &subscription, nil
}
