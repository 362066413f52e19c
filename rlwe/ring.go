package rlwe

import (
	"fmt"
	"math/bits"
)

// Poly is a polynomial of the ring Z_m[X]/(X^N+1) in coefficient form,
// lowest degree first.
type Poly struct {
	Coeffs []uint64
}

// NewPoly creates a new zero polynomial with N coefficients.
func NewPoly(N int) *Poly {
	return &Poly{Coeffs: make([]uint64, N)}
}

// Degree returns the number of coefficients of the polynomial.
func (pol *Poly) Degree() int {
	return len(pol.Coeffs)
}

// CopyNew creates an exact copy of the target polynomial.
func (pol *Poly) CopyNew() *Poly {
	p1 := NewPoly(len(pol.Coeffs))
	copy(p1.Coeffs, pol.Coeffs)
	return p1
}

// Copy copies the coefficients of p1 on the target polynomial.
func (pol *Poly) Copy(p1 *Poly) {
	if pol != p1 {
		copy(pol.Coeffs, p1.Coeffs)
	}
}

// Zero sets all coefficients of the target polynomial to 0.
func (pol *Poly) Zero() {
	for i := range pol.Coeffs {
		pol.Coeffs[i] = 0
	}
}

// Equal returns true if the receiver and p1 have the same coefficients.
func (pol *Poly) Equal(p1 *Poly) bool {
	if pol == nil || p1 == nil {
		return pol == p1
	}
	if len(pol.Coeffs) != len(p1.Coeffs) {
		return false
	}
	for i := range pol.Coeffs {
		if pol.Coeffs[i] != p1.Coeffs[i] {
			return false
		}
	}
	return true
}

// Ring is the polynomial ring Z_m[X]/(X^N+1) for a single integer modulus m.
// Every operation leaves its output reduced modulo X^N+1 and with all
// coefficients in [0, m). Operations accept aliased inputs and outputs.
type Ring struct {
	N       int
	Modulus uint64
}

// NewRing creates a new ring of degree N and modulus m.
func NewRing(N int, modulus uint64) *Ring {
	return &Ring{N: N, Modulus: modulus}
}

// NewPoly creates a new zero polynomial of the ring.
func (r *Ring) NewPoly() *Poly {
	return NewPoly(r.N)
}

func (r *Ring) checkShape(polys ...*Poly) error {
	for _, pol := range polys {
		if pol == nil {
			return fmt.Errorf("nil polynomial: %w", ErrShapeMismatch)
		}
		if len(pol.Coeffs) != r.N {
			return fmt.Errorf("polynomial has %d coefficients, ring degree is %d: %w", len(pol.Coeffs), r.N, ErrShapeMismatch)
		}
	}
	return nil
}

// CheckRange returns an error if pol does not have N coefficients in [0, m).
func (r *Ring) CheckRange(pol *Poly) error {
	if err := r.checkShape(pol); err != nil {
		return err
	}
	for i, c := range pol.Coeffs {
		if c >= r.Modulus {
			return fmt.Errorf("coefficient %d is %d, modulus is %d: %w", i, c, r.Modulus, ErrShapeMismatch)
		}
	}
	return nil
}

// Add evaluates p3 = p1 + p2 mod (X^N+1, m).
func (r *Ring) Add(p1, p2, p3 *Poly) error {
	if err := r.checkShape(p1, p2, p3); err != nil {
		return fmt.Errorf("cannot Add: %w", err)
	}
	m := r.Modulus
	for i := range p3.Coeffs {
		p3.Coeffs[i] = addMod(p1.Coeffs[i]%m, p2.Coeffs[i]%m, m)
	}
	return nil
}

// Sub evaluates p3 = p1 - p2 mod (X^N+1, m).
func (r *Ring) Sub(p1, p2, p3 *Poly) error {
	if err := r.checkShape(p1, p2, p3); err != nil {
		return fmt.Errorf("cannot Sub: %w", err)
	}
	m := r.Modulus
	for i := range p3.Coeffs {
		p3.Coeffs[i] = subMod(p1.Coeffs[i]%m, p2.Coeffs[i]%m, m)
	}
	return nil
}

// Neg evaluates p2 = -p1 mod (X^N+1, m).
func (r *Ring) Neg(p1, p2 *Poly) error {
	if err := r.checkShape(p1, p2); err != nil {
		return fmt.Errorf("cannot Neg: %w", err)
	}
	m := r.Modulus
	for i := range p2.Coeffs {
		p2.Coeffs[i] = subMod(0, p1.Coeffs[i]%m, m)
	}
	return nil
}

// MulScalar evaluates p2 = p1 * scalar mod (X^N+1, m).
func (r *Ring) MulScalar(p1 *Poly, scalar uint64, p2 *Poly) error {
	if err := r.checkShape(p1, p2); err != nil {
		return fmt.Errorf("cannot MulScalar: %w", err)
	}
	m := r.Modulus
	s := scalar % m
	for i := range p2.Coeffs {
		p2.Coeffs[i] = mulMod(p1.Coeffs[i]%m, s, m)
	}
	return nil
}

// AddScalar evaluates p2 = p1 + scalar mod (X^N+1, m), the scalar being added
// to the constant coefficient.
func (r *Ring) AddScalar(p1 *Poly, scalar uint64, p2 *Poly) error {
	if err := r.checkShape(p1, p2); err != nil {
		return fmt.Errorf("cannot AddScalar: %w", err)
	}
	m := r.Modulus
	for i := range p2.Coeffs {
		p2.Coeffs[i] = p1.Coeffs[i] % m
	}
	p2.Coeffs[0] = addMod(p2.Coeffs[0], scalar%m, m)
	return nil
}

// MulPoly evaluates p3 = p1 * p2 mod (X^N+1, m).
//
// The product is computed as a dense convolution of degree 2N-2, then reduced by
// X^N+1: the remainder of the division is obtained by folding every coefficient
// of degree N+k onto degree k with a sign flip, since X^N = -1 in the ring.
func (r *Ring) MulPoly(p1, p2, p3 *Poly) error {
	if err := r.checkShape(p1, p2, p3); err != nil {
		return fmt.Errorf("cannot MulPoly: %w", err)
	}

	N, m := r.N, r.Modulus

	conv := make([]uint64, 2*N-1)
	for i, a := range p1.Coeffs {
		if a %= m; a == 0 {
			continue
		}
		for j, b := range p2.Coeffs {
			conv[i+j] = addMod(conv[i+j], mulMod(a, b%m, m), m)
		}
	}

	for k := 0; k < N-1; k++ {
		p3.Coeffs[k] = subMod(conv[k], conv[k+N], m)
	}
	p3.Coeffs[N-1] = conv[N-1]

	return nil
}

// Reduce writes on pol the signed coefficients reduced into [0, m) with a true
// modulo, so that -1 maps to m-1.
func (r *Ring) Reduce(coeffs []int64, pol *Poly) error {
	if len(coeffs) != r.N {
		return fmt.Errorf("cannot Reduce: %d coefficients, ring degree is %d: %w", len(coeffs), r.N, ErrShapeMismatch)
	}
	if err := r.checkShape(pol); err != nil {
		return fmt.Errorf("cannot Reduce: %w", err)
	}
	for i, c := range coeffs {
		pol.Coeffs[i] = ModInt64(c, r.Modulus)
	}
	return nil
}

// Center returns the coefficients of pol lifted into (-m/2, m/2].
func (r *Ring) Center(pol *Poly) []int64 {
	m := r.Modulus
	half := m >> 1
	out := make([]int64, len(pol.Coeffs))
	for i, c := range pol.Coeffs {
		c %= m
		if c > half {
			out[i] = -int64(m - c)
		} else {
			out[i] = int64(c)
		}
	}
	return out
}

// ModInt64 returns x mod m in [0, m). The modulus must be smaller than 2^63.
func ModInt64(x int64, m uint64) uint64 {
	r := x % int64(m)
	if r < 0 {
		r += int64(m)
	}
	return uint64(r)
}

func addMod(a, b, m uint64) uint64 {
	c := a + b
	if c >= m {
		c -= m
	}
	return c
}

func subMod(a, b, m uint64) uint64 {
	if a >= b {
		return a - b
	}
	return m - b + a
}

func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}
