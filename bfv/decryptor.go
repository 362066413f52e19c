package bfv

import (
	"fmt"

	"medhe/rlwe"
)

// Decryptor decrypts BFV ciphertexts with a secret key.
type Decryptor struct {
	params    Parameters
	encoder   *Encoder
	decryptor *rlwe.Decryptor
}

// NewDecryptor instantiates a new Decryptor for the BFV scheme.
func NewDecryptor(params Parameters, sk *rlwe.SecretKey) *Decryptor {
	return &Decryptor{
		params:    params,
		encoder:   NewEncoder(params),
		decryptor: rlwe.NewDecryptor(params.Parameters, sk),
	}
}

// Decrypt decrypts the ciphertext and writes round(t/q * (c0 + c1*sk)) mod t on ptOut.
//
// A valid encoding has all its non-constant coefficients equal to zero. If one of
// them decodes to a non-zero value, the noise of the ciphertext has exceeded q/(2t)
// and ErrDecryptionMismatch is returned; ptOut is left in an unspecified state.
func (dec *Decryptor) Decrypt(ct *Ciphertext, ptOut *Plaintext) (err error) {
	if err = ct.Validate(dec.params); err != nil {
		return fmt.Errorf("cannot Decrypt: %w", err)
	}

	phase, err := dec.decryptor.DecryptNew(ct.Ciphertext)
	if err != nil {
		return err
	}

	if err = dec.encoder.ScaleDown(phase, ptOut); err != nil {
		return fmt.Errorf("cannot Decrypt: %w", err)
	}

	for i, c := range ptOut.Value.Coeffs[1:] {
		if c != 0 {
			return fmt.Errorf("cannot Decrypt: coefficient %d decodes to %d: %w", i+1, c, ErrDecryptionMismatch)
		}
	}

	return nil
}

// DecryptNew decrypts the ciphertext on a newly created Plaintext.
func (dec *Decryptor) DecryptNew(ct *Ciphertext) (ptOut *Plaintext, err error) {
	ptOut = NewPlaintext(dec.params)
	if err = dec.Decrypt(ct, ptOut); err != nil {
		return nil, err
	}
	return ptOut, nil
}

// DecryptValue decrypts the ciphertext and returns the scalar it carries, in [0, t).
func (dec *Decryptor) DecryptValue(ct *Ciphertext) (value uint64, err error) {
	pt, err := dec.DecryptNew(ct)
	if err != nil {
		return 0, err
	}
	return dec.encoder.Decode(pt), nil
}
