package rlwe

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sync"

	"github.com/ldsec/lattigo/v2/ring"
	"github.com/ldsec/lattigo/v2/utils"
)

// Sampler is the randomness source of the scheme and the only place where
// randomness enters it. Each call must return fresh, independent draws.
// Implementations must be safe for concurrent use.
type Sampler interface {
	// Uniform returns size coefficients drawn uniformly in [0, modulus).
	Uniform(size int, modulus uint64) ([]uint64, error)
	// Binary returns size coefficients drawn uniformly in {0, 1}.
	Binary(size int) ([]uint64, error)
	// SmallError returns size signed coefficients drawn from a narrow
	// distribution centered on zero.
	SmallError(size int) ([]int64, error)
}

// samplingModulus is the NTT-friendly prime of the ring hosting the Gaussian
// sampler. Samples are lifted back to signed integers, so only its size matters:
// it must exceed twice the tail cut and be 1 mod 2N for every supported N.
const samplingModulus = 65537

// minSamplingDegree is the smallest degree used for the sampling ring; draws
// are consumed coefficient by coefficient so it may exceed N.
const minSamplingDegree = 16

// PRNGSampler is a Sampler backed by the keyed blake2b XOF of lattigo. Uniform
// and binary coefficients are read from the PRNG stream; small errors come from
// a discrete Gaussian of standard deviation Sigma tail-cut at 6*Sigma.
//
// All draws go through a single stream guarded by a mutex, so concurrent callers
// never observe the same output.
type PRNGSampler struct {
	mu sync.Mutex

	prng     utils.PRNG
	ringS    *ring.Ring
	gaussian *ring.GaussianSampler
	pool     *ring.Poly
}

// NewSampler instantiates a PRNGSampler keyed from the system's cryptographic
// randomness. This is the sampler every production caller should use.
func NewSampler(params Parameters) (*PRNGSampler, error) {
	prng, err := utils.NewPRNG()
	if err != nil {
		return nil, fmt.Errorf("cannot NewSampler: %v: %w", err, ErrRandomnessFailure)
	}
	return newPRNGSampler(params, prng)
}

// NewKeyedSampler instantiates a deterministic PRNGSampler from a user-provided
// key: two samplers created with the same key return the same draws. It exists
// for reproducible tests and must not be used to produce real ciphertexts.
func NewKeyedSampler(params Parameters, key []byte) (*PRNGSampler, error) {
	prng, err := utils.NewKeyedPRNG(key)
	if err != nil {
		return nil, fmt.Errorf("cannot NewKeyedSampler: %v: %w", err, ErrRandomnessFailure)
	}
	return newPRNGSampler(params, prng)
}

func newPRNGSampler(params Parameters, prng utils.PRNG) (*PRNGSampler, error) {

	N := params.N()
	if N < minSamplingDegree {
		N = minSamplingDegree
	}

	ringS, err := ring.NewRing(N, []uint64{samplingModulus})
	if err != nil {
		return nil, fmt.Errorf("cannot NewSampler: sampling ring: %v: %w", err, ErrInvalidParameters)
	}

	bound := int(6 * params.Sigma())
	if bound < 1 {
		bound = 1
	}

	return &PRNGSampler{
		prng:     prng,
		ringS:    ringS,
		gaussian: ring.NewGaussianSampler(prng, ringS, params.Sigma(), bound),
		pool:     ringS.NewPoly(),
	}, nil
}

// guard runs f and turns a panic of the underlying XOF into ErrRandomnessFailure.
func (s *PRNGSampler) guard(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v: %w", r, ErrRandomnessFailure)
		}
	}()
	f()
	return nil
}

// Uniform returns size coefficients drawn uniformly in [0, modulus) by rejection
// sampling on the smallest bit mask covering modulus-1.
func (s *PRNGSampler) Uniform(size int, modulus uint64) ([]uint64, error) {
	if size < 0 {
		return nil, fmt.Errorf("cannot Uniform: negative size %d: %w", size, ErrShapeMismatch)
	}
	if modulus == 0 {
		return nil, fmt.Errorf("cannot Uniform: zero modulus: %w", ErrInvalidParameters)
	}

	mask := uint64(1)<<bits.Len64(modulus-1) - 1

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uint64, size)
	buf := make([]byte, 8*size+8)

	for i := 0; i < size; {
		if err := s.guard(func() { s.prng.Clock(buf) }); err != nil {
			return nil, fmt.Errorf("cannot Uniform: %w", err)
		}
		for j := 0; j+8 <= len(buf) && i < size; j += 8 {
			if v := binary.LittleEndian.Uint64(buf[j:]) & mask; v < modulus {
				out[i] = v
				i++
			}
		}
	}

	return out, nil
}

// Binary returns size coefficients drawn uniformly in {0, 1}.
func (s *PRNGSampler) Binary(size int) ([]uint64, error) {
	if size < 0 {
		return nil, fmt.Errorf("cannot Binary: negative size %d: %w", size, ErrShapeMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, (size+7)>>3)
	if err := s.guard(func() { s.prng.Clock(buf) }); err != nil {
		return nil, fmt.Errorf("cannot Binary: %w", err)
	}

	out := make([]uint64, size)
	for i := range out {
		out[i] = uint64(buf[i>>3]>>(i&7)) & 1
	}

	return out, nil
}

// SmallError returns size coefficients drawn from the discrete Gaussian of the
// sampler, centered on zero.
func (s *PRNGSampler) SmallError(size int) ([]int64, error) {
	if size < 0 {
		return nil, fmt.Errorf("cannot SmallError: negative size %d: %w", size, ErrShapeMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, 0, size)
	for len(out) < size {
		if err := s.guard(func() { s.gaussian.Read(s.pool) }); err != nil {
			return nil, fmt.Errorf("cannot SmallError: %w", err)
		}
		for _, c := range s.pool.Coeffs[0] {
			if len(out) == size {
				break
			}
			if c > samplingModulus>>1 {
				out = append(out, int64(c)-samplingModulus)
			} else {
				out = append(out, int64(c))
			}
		}
	}

	return out, nil
}
