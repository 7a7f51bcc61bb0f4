// Package eth wraps the go-ethereum primitives used for wallet signatures.
package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an [R || S || V] signature.
const SignatureLength = crypto.SignatureLength

var (
	ErrSignatureLength   = errors.New("signature must be 65 bytes")
	ErrInvalidRecoveryID = errors.New("invalid signature recovery id")
)

// PersonalMessageHash returns the EIP-191 hash of msg, i.e. the digest a
// wallet signs for personal_sign.
func PersonalMessageHash(msg string) []byte {
	return accounts.TextHash([]byte(msg))
}

// DecodeSignature decodes a hex signature with or without the 0x prefix.
func DecodeSignature(sig string) ([]byte, error) {
	sig = strings.TrimSpace(sig)
	if !strings.HasPrefix(sig, "0x") && !strings.HasPrefix(sig, "0X") {
		sig = "0x" + sig
	}
	decoded, err := hexutil.Decode(sig)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(decoded) != SignatureLength {
		return nil, ErrSignatureLength
	}
	return decoded, nil
}

// RecoverAddress recovers the address that signed msg as a personal message.
// Both the legacy (27/28) and raw (0/1) recovery ids are accepted.
func RecoverAddress(msg string, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrSignatureLength
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if v := normalized[crypto.RecoveryIDOffset]; v >= 27 {
		normalized[crypto.RecoveryIDOffset] = v - 27
	}
	if normalized[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, ErrInvalidRecoveryID
	}

	pub, err := crypto.SigToPub(PersonalMessageHash(msg), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Signer signs personal messages the way a browser wallet does.
type Signer interface {
	Address() common.Address
	SignMessage(msg string) ([]byte, error)
}

// LocalSigner is a Signer backed by an in-process secp256k1 key.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

// NewLocalSigner wraps an existing key.
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*LocalSigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewLocalSigner(key), nil
}

// Address returns the signer's checksummed address.
func (s *LocalSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignMessage signs msg as a personal message; V is 27 or 28.
func (s *LocalSigner) SignMessage(msg string) ([]byte, error) {
	sig, err := crypto.Sign(PersonalMessageHash(msg), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
