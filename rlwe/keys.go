package rlwe

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// SecretKey is a binary polynomial of Z_q[X]/(X^N+1). It belongs to the
// decrypting party alone and is never stored next to ciphertexts.
type SecretKey struct {
	Value *Poly
}

// PublicKey is the pair (b, a) with b = -(a*sk + e) mod q.
type PublicKey struct {
	Value [2]*Poly
}

// NewSecretKey generates a new zero SecretKey.
func NewSecretKey(params Parameters) *SecretKey {
	return &SecretKey{Value: params.RingQ().NewPoly()}
}

// NewPublicKey returns a new zero PublicKey.
func NewPublicKey(params Parameters) *PublicKey {
	ringQ := params.RingQ()
	return &PublicKey{Value: [2]*Poly{ringQ.NewPoly(), ringQ.NewPoly()}}
}

// Validate returns an error wrapping ErrShapeMismatch if the key is not a pair
// of reduced polynomials of the ring of params.
func (pk *PublicKey) Validate(params Parameters) error {
	if pk == nil {
		return fmt.Errorf("nil public key: %w", ErrShapeMismatch)
	}
	for i := range pk.Value {
		if err := params.RingQ().CheckRange(pk.Value[i]); err != nil {
			return fmt.Errorf("public key component %d: %w", i, err)
		}
	}
	return nil
}

// Validate returns an error wrapping ErrShapeMismatch if the key is not a
// binary polynomial of degree N.
func (sk *SecretKey) Validate(params Parameters) error {
	if sk == nil {
		return fmt.Errorf("nil secret key: %w", ErrShapeMismatch)
	}
	if err := params.RingQ().checkShape(sk.Value); err != nil {
		return fmt.Errorf("secret key: %w", err)
	}
	for i, c := range sk.Value.Coeffs {
		if c > 1 {
			return fmt.Errorf("secret key coefficient %d is %d, expected 0 or 1: %w", i, c, ErrShapeMismatch)
		}
	}
	return nil
}

// Equal returns true if both public keys have the same components.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.Value[0].Equal(other.Value[0]) && pk.Value[1].Equal(other.Value[1])
}

// Fingerprint returns the hex-encoded BLAKE2b-256 digest of the binary encoding
// of the public key. It identifies the key in stores and exported files.
func (pk *PublicKey) Fingerprint() string {
	data, err := pk.MarshalBinary()
	if err != nil {
		panic(fmt.Errorf("cannot Fingerprint: %w", err))
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
