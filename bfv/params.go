package bfv

import (
	"encoding/json"
	"fmt"
	"math"

	"medhe/rlwe"
)

// Errors returned by the scheme. They are the ones of the rlwe package, so that
// callers can test against either.
var (
	ErrInvalidParameters  = rlwe.ErrInvalidParameters
	ErrShapeMismatch      = rlwe.ErrShapeMismatch
	ErrEncodingOverflow   = rlwe.ErrEncodingOverflow
	ErrRandomnessFailure  = rlwe.ErrRandomnessFailure
	ErrDecryptionMismatch = rlwe.ErrDecryptionMismatch
	ErrDepthExhausted     = rlwe.ErrDepthExhausted
)

// MaxMulDepth is the number of plaintext multiplications a ciphertext can go
// through. There is no relinearization nor modulus switching.
const MaxMulDepth = 1

// PN5QP16 is the parameter set used to encrypt the medical feature vectors:
// ring degree 32, ciphertext modulus 2^16, plaintext modulus 2^10.
var PN5QP16 = ParametersLiteral{
	N:     32,
	Q:     1 << 16,
	T:     1 << 10,
	Sigma: rlwe.DefaultSigma,
}

// PN5QP16T4 is PN5QP16 with a plaintext modulus of 16. Its larger scaling factor
// leaves room for one plaintext multiplication by any scalar.
var PN5QP16T4 = ParametersLiteral{
	N:     32,
	Q:     1 << 16,
	T:     16,
	Sigma: rlwe.DefaultSigma,
}

// ParametersLiteral is a literal representation of BFV parameters.  It has public
// fields and is used to express unchecked user-defined parameters literally into
// Go programs. The NewParametersFromLiteral function is used to generate the actual
// checked parameters from the literal representation.
type ParametersLiteral struct {
	N     int     `json:"n"`               // Ring degree (power of 2)
	Q     uint64  `json:"q"`               // Ciphertext modulus
	T     uint64  `json:"t"`               // Plaintext modulus
	Sigma float64 `json:"sigma,omitempty"` // Gaussian sampling standard deviation
}

// RLWEParameters returns the literal of the underlying RLWE parameters.
func (pl ParametersLiteral) RLWEParameters() rlwe.ParametersLiteral {
	return rlwe.ParametersLiteral{N: pl.N, Q: pl.Q, Sigma: pl.Sigma}
}

// Parameters represents a parameter set for the BFV cryptosystem. Its fields are private and
// immutable. See ParametersLiteral for user-specified parameters.
type Parameters struct {
	rlwe.Parameters
	t     uint64
	ringT *rlwe.Ring
}

// NewParametersFromLiteral instantiates a set of BFV parameters from a ParametersLiteral.
// It returns the empty parameters Parameters{} and an error wrapping ErrInvalidParameters
// if the specified parameters are invalid. The plaintext modulus must satisfy 2 <= t < q
// and divide q.
func NewParametersFromLiteral(pl ParametersLiteral) (params Parameters, err error) {

	rlweParams, err := rlwe.NewParametersFromLiteral(pl.RLWEParameters())
	if err != nil {
		return Parameters{}, err
	}

	if pl.T < 2 || pl.T >= pl.Q {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: t=%d must be in [2, q=%d): %w", pl.T, pl.Q, ErrInvalidParameters)
	}

	// Delta*t must equal q, otherwise (q mod t)*m lands in the constant
	// coefficient and decrypts to a wrong value without any noise.
	if pl.Q%pl.T != 0 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: t=%d does not divide q=%d: %w", pl.T, pl.Q, ErrInvalidParameters)
	}

	return Parameters{
		Parameters: rlweParams,
		t:          pl.T,
		ringT:      rlwe.NewRing(pl.N, pl.T),
	}, nil
}

// NewParametersFromJSON instantiates a set of BFV parameters from the JSON
// encoding of a ParametersLiteral.
func NewParametersFromJSON(data []byte) (params Parameters, err error) {
	var pl ParametersLiteral
	if err = json.Unmarshal(data, &pl); err != nil {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromJSON: %v: %w", err, ErrInvalidParameters)
	}
	return NewParametersFromLiteral(pl)
}

// ParametersLiteral returns the ParametersLiteral of the target Parameters.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		N:     p.N(),
		Q:     p.Q(),
		T:     p.t,
		Sigma: p.Sigma(),
	}
}

// T returns the plaintext modulus.
func (p Parameters) T() uint64 {
	return p.t
}

// LogT returns the log2 of the plaintext modulus.
func (p Parameters) LogT() float64 {
	return math.Log2(float64(p.t))
}

// RingT returns a pointer to the plaintext ring Z_t[X]/(X^N+1).
func (p Parameters) RingT() *rlwe.Ring {
	return p.ringT
}

// Delta returns the scaling factor q/t.
func (p Parameters) Delta() uint64 {
	return p.Q() / p.t
}

// NoiseBound returns q/(2t): decryption is correct as long as every coefficient
// of the noise is strictly smaller in absolute value.
func (p Parameters) NoiseBound() float64 {
	return float64(p.Q()) / float64(2*p.t)
}

// FreshNoiseEstimate returns a high-probability bound on the largest noise
// coefficient of a fresh ciphertext. Each coefficient of e*u + e2*sk + e1 has a
// standard deviation of about sigma*sqrt(N+1), and the largest of N such values
// stays below sqrt(2*ln(2N)) standard deviations.
func (p Parameters) FreshNoiseEstimate() float64 {
	n := float64(p.N())
	return p.Sigma() * math.Sqrt(n+1) * math.Sqrt(2*math.Log(2*n))
}

// Equal compares two sets of parameters for equality.
func (p Parameters) Equal(other Parameters) bool {
	return p.Parameters.Equal(other.Parameters) && p.t == other.t
}

// MarshalJSON returns the JSON encoding of the ParametersLiteral of the target Parameters.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON reads a JSON encoded ParametersLiteral into the target Parameters.
func (p *Parameters) UnmarshalJSON(data []byte) (err error) {
	*p, err = NewParametersFromJSON(data)
	return err
}
