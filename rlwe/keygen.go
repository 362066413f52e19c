package rlwe

import "fmt"

// KeyGenerator is a structure that stores the elements required to create new
// key pairs. It holds no state besides its parameters and sampler, so repeated
// calls return independent keys.
type KeyGenerator struct {
	params  Parameters
	sampler Sampler
}

// NewKeyGenerator creates a new KeyGenerator drawing its randomness from sampler.
func NewKeyGenerator(params Parameters, sampler Sampler) *KeyGenerator {
	return &KeyGenerator{params: params, sampler: sampler}
}

// GenSecretKey generates a new binary SecretKey.
func (keygen *KeyGenerator) GenSecretKey() (sk *SecretKey, err error) {
	coeffs, err := keygen.sampler.Binary(keygen.params.N())
	if err != nil {
		return nil, fmt.Errorf("cannot GenSecretKey: %w", err)
	}
	return &SecretKey{Value: &Poly{Coeffs: coeffs}}, nil
}

// GenPublicKey generates a new public key from the provided SecretKey:
//
//	pk[0] = -(a*sk + e) = (-a)*sk + (-e)
//	pk[1] = a
func (keygen *KeyGenerator) GenPublicKey(sk *SecretKey) (pk *PublicKey, err error) {

	params := keygen.params
	ringQ := params.RingQ()

	if err = sk.Validate(params); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}

	a, err := keygen.sampler.Uniform(params.N(), params.Q())
	if err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}

	e, err := keygen.sampler.SmallError(params.N())
	if err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}

	pk = NewPublicKey(params)
	copy(pk.Value[1].Coeffs, a)

	negA := ringQ.NewPoly()
	negE := ringQ.NewPoly()

	if err = ringQ.Neg(pk.Value[1], negA); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}
	if err = ringQ.Reduce(e, negE); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}
	if err = ringQ.Neg(negE, negE); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}
	if err = ringQ.MulPoly(negA, sk.Value, pk.Value[0]); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}
	if err = ringQ.Add(pk.Value[0], negE, pk.Value[0]); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKey: %w", err)
	}

	return pk, nil
}

// GenKeyPair generates a new binary SecretKey and the corresponding public key.
func (keygen *KeyGenerator) GenKeyPair() (sk *SecretKey, pk *PublicKey, err error) {
	if sk, err = keygen.GenSecretKey(); err != nil {
		return nil, nil, err
	}
	if pk, err = keygen.GenPublicKey(sk); err != nil {
		return nil, nil, err
	}
	return sk, pk, nil
}
