package core

import (
	"encoding/hex"
	"time"
)

// NonceSize is the nonce length in bytes (256 bits).
const NonceSize = 32

// Nonce is a single-use random value embedded in a challenge message.
type Nonce [NonceSize]byte

// String renders the nonce as lower-case hex.
func (n Nonce) String() string {
	return hex.EncodeToString(n[:])
}

// Challenge is a pending signature challenge for one protocol round
type Challenge struct {
	Nonce          Nonce
	ClaimedAddress string    // Address the client claims to control
	IssuedAt       time.Time // UTC, second precision
	Message        string    // Exact text the client signs
}

// PublicParameters are sent to the client to sign.
type PublicParameters struct {
	Message        string `json:"message"`
	ClaimedAddress string `json:"claimedAddress"`
}

// PrivateParameters stay with the server and are handed back unmodified to
// the verifier.
type PrivateParameters struct {
	Message        string    `json:"message"`
	ClaimedAddress string    `json:"claimedAddress"`
	IssuedAt       time.Time `json:"issuedAt"`
	Nonce          string    `json:"nonce,omitempty"`
}

// Public returns the parameter set that may leave the server.
func (c Challenge) Public() PublicParameters {
	return PublicParameters{
		Message:        c.Message,
		ClaimedAddress: c.ClaimedAddress,
	}
}

// Private returns the parameter set held server-side until verification.
func (c Challenge) Private() PrivateParameters {
	return PrivateParameters{
		Message:        c.Message,
		ClaimedAddress: c.ClaimedAddress,
		IssuedAt:       c.IssuedAt,
		Nonce:          c.Nonce.String(),
	}
}

// Session represents an authenticated user session
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Wallet address the session was granted to
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
