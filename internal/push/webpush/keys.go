package webpush

import (
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// KeyPair is a VAPID application server key pair, base64url encoded.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// GenerateKeys creates a new VAPID key pair.
func GenerateKeys() (KeyPair, error) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate vapid keys: %w", err)
	}

	return KeyPair{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}, nil
}
