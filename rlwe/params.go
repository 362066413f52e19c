package rlwe

import (
	"fmt"
	"math"
	"math/bits"
)

// DefaultSigma is the default standard deviation of the discrete Gaussian error
// distribution. It keeps fresh ciphertexts of the feature-encryption parameters
// (N=32, q=2^16, t=2^10) several standard deviations below the q/(2t) bound.
const DefaultSigma = 1.0

const (
	// MaxLogN is the largest supported log2 of the ring degree.
	MaxLogN = 15
	// MaxLogQ is the largest supported bit-length of the ciphertext modulus.
	MaxLogQ = 62
	// MaxSigma is the largest supported error standard deviation.
	MaxSigma = 256.0
)

// ParametersLiteral is a literal representation of RLWE parameters. It has public
// fields and is used to express unchecked user-defined parameters literally into
// Go programs. The NewParametersFromLiteral function is used to generate the actual
// checked parameters from the literal representation.
type ParametersLiteral struct {
	N     int     `json:"n"`               // Ring degree (power of 2)
	Q     uint64  `json:"q"`               // Ciphertext modulus
	Sigma float64 `json:"sigma,omitempty"` // Gaussian sampling standard deviation
}

// Parameters represents a parameter set for the RLWE cryptosystem. Its fields are
// private and immutable. See ParametersLiteral for user-specified parameters.
type Parameters struct {
	n     int
	q     uint64
	sigma float64
	ringQ *Ring
}

// NewParametersFromLiteral instantiates a set of RLWE parameters from a
// ParametersLiteral. It returns the empty parameters Parameters{} and an error
// wrapping ErrInvalidParameters if the specified parameters are invalid.
// A zero Sigma selects DefaultSigma.
func NewParametersFromLiteral(pl ParametersLiteral) (params Parameters, err error) {

	if pl.N < 2 || pl.N > 1<<MaxLogN || pl.N&(pl.N-1) != 0 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: N=%d must be a power of two in [2, 2^%d]: %w", pl.N, MaxLogN, ErrInvalidParameters)
	}

	if pl.Q < 2 || bits.Len64(pl.Q) > MaxLogQ {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: q=%d must be in [2, 2^%d): %w", pl.Q, MaxLogQ, ErrInvalidParameters)
	}

	sigma := pl.Sigma
	if sigma == 0 {
		sigma = DefaultSigma
	}

	if math.IsNaN(sigma) || sigma < 0 || sigma > MaxSigma {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: sigma=%v must be in (0, %v]: %w", pl.Sigma, MaxSigma, ErrInvalidParameters)
	}

	params.n = pl.N
	params.q = pl.Q
	params.sigma = sigma
	params.ringQ = NewRing(pl.N, pl.Q)

	return params, nil
}

// ParametersLiteral returns the literal representation of the parameters.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{N: p.n, Q: p.q, Sigma: p.sigma}
}

// N returns the ring degree.
func (p Parameters) N() int {
	return p.n
}

// LogN returns the log2 of the ring degree.
func (p Parameters) LogN() int {
	return bits.Len64(uint64(p.n)) - 1
}

// Q returns the ciphertext modulus.
func (p Parameters) Q() uint64 {
	return p.q
}

// LogQ returns the log2 of the ciphertext modulus.
func (p Parameters) LogQ() float64 {
	return math.Log2(float64(p.q))
}

// Sigma returns the standard deviation of the error distribution.
func (p Parameters) Sigma() float64 {
	return p.sigma
}

// RingQ returns a pointer to the ciphertext ring Z_q[X]/(X^N+1).
func (p Parameters) RingQ() *Ring {
	return p.ringQ
}

// ReductionPolynomial returns the coefficients of X^N+1, lowest degree first.
func (p Parameters) ReductionPolynomial() []uint64 {
	coeffs := make([]uint64, p.n+1)
	coeffs[0] = 1
	coeffs[p.n] = 1
	return coeffs
}

// Equal returns true if the two parameter sets are identical.
func (p Parameters) Equal(other Parameters) bool {
	return p.n == other.n && p.q == other.q && p.sigma == other.sigma
}
