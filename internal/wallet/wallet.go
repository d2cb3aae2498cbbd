// Package wallet holds the trading keypair and signs serialized Solana
// transactions produced by the swap aggregator.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Wallet wraps the ed25519 keypair used to sign sell transactions.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// New creates a Wallet from a base58-encoded 64-byte secret key
// (the standard Solana export format: seed || public key).
func New(secretBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(secretBase58)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)

	// The embedded public half must match the seed and lie on the curve.
	if !bytes.Equal(pub, raw[32:]) {
		return nil, fmt.Errorf("secret key public half does not match seed")
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, fmt.Errorf("public key not on curve: %w", err)
	}

	return &Wallet{priv: priv, pub: pub}, nil
}

// PublicKey returns the base58-encoded public key.
func (w *Wallet) PublicKey() string {
	return base58.Encode(w.pub)
}

// SignTransaction signs a serialized Solana transaction in place of its fee
// payer and returns the signed wire bytes.
//
// Wire layout: compact-u16 signature count, then 64-byte signatures, then the
// message. The aggregator builds the transaction with this wallet as fee
// payer, so the first signature slot belongs to us.
func (w *Wallet) SignTransaction(raw []byte) ([]byte, error) {
	numSigs, sigOffset, err := decodeCompactU16(raw)
	if err != nil {
		return nil, fmt.Errorf("decode signature count: %w", err)
	}
	if numSigs == 0 {
		return nil, fmt.Errorf("transaction has no signature slots")
	}

	msgOffset := sigOffset + numSigs*ed25519.SignatureSize
	if msgOffset >= len(raw) {
		return nil, fmt.Errorf("transaction truncated: %d bytes, message expected at %d", len(raw), msgOffset)
	}

	payer, err := feePayer(raw[msgOffset:])
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if !bytes.Equal(payer, w.pub) {
		return nil, fmt.Errorf("fee payer %s is not this wallet", base58.Encode(payer))
	}

	signed := make([]byte, len(raw))
	copy(signed, raw)
	sig := ed25519.Sign(w.priv, raw[msgOffset:])
	copy(signed[sigOffset:sigOffset+ed25519.SignatureSize], sig)

	return signed, nil
}

// feePayer extracts the first static account key from a transaction message.
// Handles both legacy messages and v0 messages (high bit of the first byte).
func feePayer(msg []byte) ([]byte, error) {
	offset := 0
	if len(msg) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	if msg[0]&0x80 != 0 {
		// Versioned message: one version byte precedes the header.
		offset = 1
	}

	// Header: numRequiredSignatures, numReadonlySigned, numReadonlyUnsigned.
	offset += 3
	if offset >= len(msg) {
		return nil, fmt.Errorf("message truncated before account keys")
	}

	numKeys, keysOffset, err := decodeCompactU16(msg[offset:])
	if err != nil {
		return nil, fmt.Errorf("decode account key count: %w", err)
	}
	if numKeys == 0 {
		return nil, fmt.Errorf("message has no account keys")
	}

	start := offset + keysOffset
	if start+32 > len(msg) {
		return nil, fmt.Errorf("message truncated inside account keys")
	}
	return msg[start : start+32], nil
}

// decodeCompactU16 decodes Solana's compact-u16 length prefix.
// Returns the value and the number of bytes consumed.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		b := int(data[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
