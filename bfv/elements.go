package bfv

import (
	"fmt"

	"medhe/rlwe"
)

// Plaintext is a polynomial of Z_t[X]/(X^N+1). A scalar is carried in the
// constant coefficient, every other coefficient being zero.
type Plaintext struct {
	Value *rlwe.Poly
}

// NewPlaintext creates a new zero Plaintext.
func NewPlaintext(params Parameters) *Plaintext {
	return &Plaintext{Value: params.RingT().NewPoly()}
}

// Ciphertext is a BFV ciphertext: the pair (c0, c1) of rlwe and its depth.
type Ciphertext struct {
	*rlwe.Ciphertext
}

// NewCiphertext creates a new zero Ciphertext.
func NewCiphertext(params Parameters) *Ciphertext {
	return &Ciphertext{rlwe.NewCiphertext(params.Parameters)}
}

// CopyNew creates a deep copy of the receiver ciphertext and returns it.
func (ct *Ciphertext) CopyNew() *Ciphertext {
	return &Ciphertext{ct.Ciphertext.CopyNew()}
}

// Validate returns an error wrapping ErrShapeMismatch if the ciphertext is not
// a well formed ciphertext of params.
func (ct *Ciphertext) Validate(params Parameters) error {
	if ct == nil || ct.Ciphertext == nil {
		return fmt.Errorf("nil ciphertext: %w", ErrShapeMismatch)
	}
	return ct.Ciphertext.Validate(params.Parameters)
}
