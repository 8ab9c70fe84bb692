package client

import (
	"encoding/json"
	"errors"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"
)

var errNoEndpoint = errors.New("subscription has no endpoint")

// endpointOf extracts the push endpoint from PushSubscription JSON.
func endpointOf(credentials []byte) (string, error) {
	var sub webpush.Subscription
	if err := json.Unmarshal(credentials, &sub); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}

	if sub.Endpoint == "" {
		return "", errNoEndpoint
	}

	return sub.Endpoint, nil
}
