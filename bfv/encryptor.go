package bfv

import (
	"fmt"

	"medhe/rlwe"
)

// Encryptor encrypts BFV plaintexts under a public key. It scales the plaintext
// by Delta and delegates to the rlwe Encryptor, which draws fresh randomness on
// every call.
type Encryptor struct {
	params    Parameters
	encoder   *Encoder
	encryptor *rlwe.Encryptor
}

// NewEncryptor instantiates a new Encryptor for the BFV scheme.
func NewEncryptor(params Parameters, pk *rlwe.PublicKey, sampler rlwe.Sampler) *Encryptor {
	return &Encryptor{
		params:    params,
		encoder:   NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params.Parameters, pk, sampler),
	}
}

// Encrypt encrypts the input plaintext and writes the result on ctOut:
//
//	ct[0] = pk[0]*u + e1 + Delta*pt
//	ct[1] = pk[1]*u + e2
func (enc *Encryptor) Encrypt(pt *Plaintext, ctOut *Ciphertext) (err error) {
	if ctOut == nil {
		return fmt.Errorf("cannot Encrypt: nil ciphertext: %w", ErrShapeMismatch)
	}
	scaled, err := enc.encoder.ScaleUpNew(pt)
	if err != nil {
		return fmt.Errorf("cannot Encrypt: %w", err)
	}
	return enc.encryptor.Encrypt(scaled, ctOut.Ciphertext)
}

// EncryptNew encrypts the input plaintext and returns the result on a newly
// created ciphertext.
func (enc *Encryptor) EncryptNew(pt *Plaintext) (ctOut *Ciphertext, err error) {
	ctOut = NewCiphertext(enc.params)
	if err = enc.Encrypt(pt, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}

// EncryptValueNew encodes value mod t and encrypts it on a newly created ciphertext.
func (enc *Encryptor) EncryptValueNew(value int64) (ctOut *Ciphertext, err error) {
	pt, err := enc.encoder.EncodeNew(value)
	if err != nil {
		return nil, err
	}
	return enc.EncryptNew(pt)
}

// EncryptFloatNew encodes the truncation of value and encrypts it on a newly
// created ciphertext.
func (enc *Encryptor) EncryptFloatNew(value float64) (ctOut *Ciphertext, err error) {
	pt, err := enc.encoder.EncodeFloatNew(value)
	if err != nil {
		return nil, err
	}
	return enc.EncryptNew(pt)
}
