package vapid

import (
	wp "github.com/SherClockHolmes/webpush-go"
)

// GenerateKeys creates a new VAPID key pair, base64url encoded. The public
// key is handed to browsers as applicationServerKey.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = wp.GenerateVAPIDKeys()
	if err != nil {
		return "", "", err
	}
	return publicKey, privateKey, nil
}
