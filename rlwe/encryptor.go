package rlwe

import "fmt"

// Encryptor is a struct used to encrypt Plaintexts with a public key. It keeps
// no intermediate buffers, so a single Encryptor can be shared by concurrent
// goroutines as long as its Sampler is safe for concurrent use.
type Encryptor struct {
	params  Parameters
	ringQ   *Ring
	pk      *PublicKey
	sampler Sampler
}

// NewEncryptor instantiates a new RLWE Encryptor for the public key pk, drawing
// fresh randomness from sampler on every call.
func NewEncryptor(params Parameters, pk *PublicKey, sampler Sampler) *Encryptor {
	return &Encryptor{
		params:  params,
		ringQ:   params.RingQ(),
		pk:      pk,
		sampler: sampler,
	}
}

// Encrypt encrypts the input Plaintext and writes the result in ctOut:
//
//	ct[0] = pk[0]*u + e1 + pt
//	ct[1] = pk[1]*u + e2
//
// with u binary and e1, e2 small errors drawn fresh for this call.
func (encryptor *Encryptor) Encrypt(pt *Plaintext, ctOut *Ciphertext) (err error) {

	params := encryptor.params
	ringQ := encryptor.ringQ

	if err = encryptor.pk.Validate(params); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	if pt == nil {
		return fmt.Errorf("cannot Encrypt: nil plaintext: %w", ErrShapeMismatch)
	}
	if ctOut == nil {
		return fmt.Errorf("cannot Encrypt: nil ciphertext: %w", ErrShapeMismatch)
	}
	if err = ringQ.checkShape(pt.Value, ctOut.Value[0], ctOut.Value[1]); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}

	u, err := encryptor.sampler.Binary(params.N())
	if err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	e1, err := encryptor.sampler.SmallError(params.N())
	if err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	e2, err := encryptor.sampler.SmallError(params.N())
	if err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}

	polyU := &Poly{Coeffs: u}
	polyE := ringQ.NewPoly()
	c0 := ringQ.NewPoly()
	c1 := ringQ.NewPoly()

	// ct[0] = pk[0]*u + e1 + pt
	if err = ringQ.MulPoly(encryptor.pk.Value[0], polyU, c0); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	if err = ringQ.Reduce(e1, polyE); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	if err = ringQ.Add(c0, polyE, c0); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	if err = ringQ.Add(c0, pt.Value, c0); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}

	// ct[1] = pk[1]*u + e2
	if err = ringQ.MulPoly(encryptor.pk.Value[1], polyU, c1); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	if err = ringQ.Reduce(e2, polyE); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	if err = ringQ.Add(c1, polyE, c1); err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}

	ctOut.Value[0].Copy(c0)
	ctOut.Value[1].Copy(c1)
	ctOut.Depth = 0

	return nil
}

// EncryptNew encrypts the input Plaintext and returns the result in a newly
// created Ciphertext.
func (encryptor *Encryptor) EncryptNew(pt *Plaintext) (ctOut *Ciphertext, err error) {
	ctOut = NewCiphertext(encryptor.params)
	if err = encryptor.Encrypt(pt, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}
