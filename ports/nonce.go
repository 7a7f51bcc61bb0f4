package ports

import "github.com/layer-3/walletauth/core"

// NonceSource produces unpredictable single-use nonces
type NonceSource interface {
	Nonce() (core.Nonce, error)
}
