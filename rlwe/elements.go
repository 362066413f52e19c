package rlwe

import "fmt"

// Plaintext is a polynomial of Z_q[X]/(X^N+1) ready to be encrypted, that is,
// already scaled into the ciphertext modulus.
type Plaintext struct {
	Value *Poly
}

// NewPlaintext creates a new zero Plaintext.
func NewPlaintext(params Parameters) *Plaintext {
	return &Plaintext{Value: params.RingQ().NewPoly()}
}

// Ciphertext is the pair (c0, c1) of polynomials of Z_q[X]/(X^N+1) such that
// c0 + c1*sk is the scaled plaintext plus noise. Both components are required
// to decrypt or evaluate; a ciphertext is never reduced to one of them.
//
// Depth counts the plaintext multiplications the ciphertext went through.
type Ciphertext struct {
	Value [2]*Poly
	Depth int
}

// NewCiphertext creates a new zero Ciphertext of depth 0.
func NewCiphertext(params Parameters) *Ciphertext {
	ringQ := params.RingQ()
	return &Ciphertext{Value: [2]*Poly{ringQ.NewPoly(), ringQ.NewPoly()}}
}

// CopyNew creates a deep copy of the receiver ciphertext and returns it.
func (ct *Ciphertext) CopyNew() *Ciphertext {
	return &Ciphertext{
		Value: [2]*Poly{ct.Value[0].CopyNew(), ct.Value[1].CopyNew()},
		Depth: ct.Depth,
	}
}

// Copy copies the value of ct1 on the receiver.
func (ct *Ciphertext) Copy(ct1 *Ciphertext) {
	ct.Value[0].Copy(ct1.Value[0])
	ct.Value[1].Copy(ct1.Value[1])
	ct.Depth = ct1.Depth
}

// Equal returns true if both ciphertexts have the same components and depth.
func (ct *Ciphertext) Equal(ct1 *Ciphertext) bool {
	return ct.Depth == ct1.Depth && ct.Value[0].Equal(ct1.Value[0]) && ct.Value[1].Equal(ct1.Value[1])
}

// Validate returns an error wrapping ErrShapeMismatch if a component is missing
// or is not a reduced polynomial of the ring of params.
func (ct *Ciphertext) Validate(params Parameters) error {
	if ct == nil {
		return fmt.Errorf("nil ciphertext: %w", ErrShapeMismatch)
	}
	ringQ := params.RingQ()
	for i := range ct.Value {
		if err := ringQ.CheckRange(ct.Value[i]); err != nil {
			return fmt.Errorf("ciphertext component c%d: %w", i, err)
		}
	}
	if ct.Depth < 0 {
		return fmt.Errorf("negative ciphertext depth %d: %w", ct.Depth, ErrShapeMismatch)
	}
	return nil
}
