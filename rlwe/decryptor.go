package rlwe

import "fmt"

// Decryptor is a structure used to decrypt Ciphertexts. It stores the secret key
// and is read-only after creation.
type Decryptor struct {
	params Parameters
	ringQ  *Ring
	sk     *SecretKey
}

// NewDecryptor instantiates a new RLWE Decryptor.
func NewDecryptor(params Parameters, sk *SecretKey) *Decryptor {
	return &Decryptor{
		params: params,
		ringQ:  params.RingQ(),
		sk:     sk,
	}
}

// Decrypt writes the phase ct[0] + ct[1]*sk of the ciphertext on ptOut, that is,
// the scaled plaintext plus the noise of the ciphertext.
func (decryptor *Decryptor) Decrypt(ct *Ciphertext, ptOut *Plaintext) (err error) {

	ringQ := decryptor.ringQ

	if err = decryptor.sk.Validate(decryptor.params); err != nil {
		return fmt.Errorf("cannot Decrypt: %w", err)
	}
	if err = ct.Validate(decryptor.params); err != nil {
		return fmt.Errorf("cannot Decrypt: %w", err)
	}
	if ptOut == nil {
		return fmt.Errorf("cannot Decrypt: nil plaintext: %w", ErrShapeMismatch)
	}

	phase := ringQ.NewPoly()
	if err = ringQ.MulPoly(ct.Value[1], decryptor.sk.Value, phase); err != nil {
		return fmt.Errorf("cannot Decrypt: %w", err)
	}
	if err = ringQ.Add(phase, ct.Value[0], phase); err != nil {
		return fmt.Errorf("cannot Decrypt: %w", err)
	}
	if err = ringQ.checkShape(ptOut.Value); err != nil {
		return fmt.Errorf("cannot Decrypt: %w", err)
	}

	ptOut.Value.Copy(phase)

	return nil
}

// DecryptNew decrypts the Ciphertext and returns the phase in a newly created
// Plaintext.
func (decryptor *Decryptor) DecryptNew(ct *Ciphertext) (ptOut *Plaintext, err error) {
	ptOut = NewPlaintext(decryptor.params)
	if err = decryptor.Decrypt(ct, ptOut); err != nil {
		return nil, err
	}
	return ptOut, nil
}
