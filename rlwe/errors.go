package rlwe

import "errors"

// Error kinds returned by the scheme. They are never recovered inside the
// engine: callers test for them with errors.Is and decide whether to retry
// with fresh keys or ciphertexts, or to abort.
var (
	// ErrInvalidParameters is returned when the ring degree is not a power of two,
	// when t >= q, or when any other parameter is out of its supported range.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrShapeMismatch is returned when a polynomial, ciphertext or matrix does not
	// have the dimensions implied by the parameters.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEncodingOverflow is returned by strict encoders when a value cannot be
	// represented modulo t without wraparound, and by every encoder for NaN or Inf.
	ErrEncodingOverflow = errors.New("encoding overflow")

	// ErrRandomnessFailure is returned when the entropy source is unavailable.
	ErrRandomnessFailure = errors.New("randomness failure")

	// ErrDecryptionMismatch is returned when a decrypted polynomial is not a valid
	// encoding, which means the noise budget of the ciphertext is exhausted.
	ErrDecryptionMismatch = errors.New("decryption mismatch")

	// ErrDepthExhausted is returned when a plaintext multiplication is requested on
	// a ciphertext that already consumed the supported multiplicative depth.
	ErrDepthExhausted = errors.New("multiplicative depth exhausted")
)
