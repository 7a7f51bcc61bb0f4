package core

import (
	"fmt"
	"time"
)

// DefaultBanner is the first line of every challenge message.
const DefaultBanner = "Web3 Transaction Dashboard Authentication"

// TimestampLayout is the ISO-8601 layout used for issuedAt in messages.
const TimestampLayout = "2006-01-02T15:04:05Z"

// RenderMessage builds the challenge text a wallet is asked to sign.
func RenderMessage(banner, address string, nonce Nonce, issuedAt time.Time) string {
	return fmt.Sprintf(
		"%s\n\nWallet: %s\nNonce: %s\nTimestamp: %s\n\nSign this message to authenticate.",
		banner,
		address,
		nonce,
		issuedAt.UTC().Format(TimestampLayout),
	)
}
