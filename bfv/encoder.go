package bfv

import (
	"fmt"
	"math"
	"math/bits"

	"medhe/rlwe"
)

// Encoder maps scalars to plaintext polynomials of Z_t[X]/(X^N+1) and moves
// plaintexts between Z_t and Z_q.
//
// A non-strict Encoder reduces every integer modulo t, so that values outside
// [0, t) silently wrap around. A strict Encoder rejects them with ErrEncodingOverflow.
type Encoder struct {
	params Parameters
	strict bool
}

// NewEncoder creates a new Encoder reducing values modulo t.
func NewEncoder(params Parameters) *Encoder {
	return &Encoder{params: params}
}

// NewStrictEncoder creates a new Encoder rejecting values outside [0, t).
func NewStrictEncoder(params Parameters) *Encoder {
	return &Encoder{params: params, strict: true}
}

// Strict returns true if the encoder rejects values outside [0, t).
func (ecd *Encoder) Strict() bool {
	return ecd.strict
}

// Encode writes value mod t in the constant coefficient of pt and zeroes the others.
func (ecd *Encoder) Encode(value int64, pt *Plaintext) (err error) {
	t := ecd.params.T()
	if ecd.strict && (value < 0 || uint64(value) >= t) {
		return fmt.Errorf("cannot Encode: %d is outside [0, %d): %w", value, t, ErrEncodingOverflow)
	}
	return ecd.encode(rlwe.ModInt64(value, t), pt)
}

// EncodeUint writes value mod t in the constant coefficient of pt and zeroes the others.
func (ecd *Encoder) EncodeUint(value uint64, pt *Plaintext) (err error) {
	t := ecd.params.T()
	if ecd.strict && value >= t {
		return fmt.Errorf("cannot Encode: %d is outside [0, %d): %w", value, t, ErrEncodingOverflow)
	}
	return ecd.encode(value%t, pt)
}

// EncodeFloat truncates value toward zero and encodes the resulting integer.
// NaN, infinities and values beyond the int64 range always fail with
// ErrEncodingOverflow.
func (ecd *Encoder) EncodeFloat(value float64, pt *Plaintext) (err error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value >= math.MaxInt64 || value < math.MinInt64 {
		return fmt.Errorf("cannot EncodeFloat: %v is not representable: %w", value, ErrEncodingOverflow)
	}
	return ecd.Encode(int64(math.Trunc(value)), pt)
}

func (ecd *Encoder) encode(value uint64, pt *Plaintext) error {
	if pt == nil {
		return fmt.Errorf("cannot Encode: nil plaintext: %w", ErrShapeMismatch)
	}
	if pt.Value == nil || pt.Value.Degree() != ecd.params.N() {
		return fmt.Errorf("cannot Encode: plaintext degree does not match N=%d: %w", ecd.params.N(), ErrShapeMismatch)
	}
	pt.Value.Zero()
	pt.Value.Coeffs[0] = value
	return nil
}

// EncodeNew encodes value mod t on a newly created Plaintext.
func (ecd *Encoder) EncodeNew(value int64) (pt *Plaintext, err error) {
	pt = NewPlaintext(ecd.params)
	if err = ecd.Encode(value, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// EncodeFloatNew encodes the truncation of value on a newly created Plaintext.
func (ecd *Encoder) EncodeFloatNew(value float64) (pt *Plaintext, err error) {
	pt = NewPlaintext(ecd.params)
	if err = ecd.EncodeFloat(value, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// Decode returns the scalar carried by the constant coefficient of pt.
func (ecd *Encoder) Decode(pt *Plaintext) uint64 {
	return pt.Value.Coeffs[0] % ecd.params.T()
}

// ScaleUp writes Delta * pt mod q on ptOut, with Delta = q/t.
func (ecd *Encoder) ScaleUp(pt *Plaintext, ptOut *rlwe.Plaintext) (err error) {
	ringQ := ecd.params.RingQ()
	if pt == nil || ptOut == nil {
		return fmt.Errorf("cannot ScaleUp: nil plaintext: %w", ErrShapeMismatch)
	}
	if err = ecd.params.RingT().CheckRange(pt.Value); err != nil {
		return fmt.Errorf("cannot ScaleUp: %w", err)
	}
	if err = ringQ.MulScalar(pt.Value, ecd.params.Delta(), ptOut.Value); err != nil {
		return fmt.Errorf("cannot ScaleUp: %w", err)
	}
	return nil
}

// ScaleUpNew returns Delta * pt mod q on a newly created rlwe.Plaintext.
func (ecd *Encoder) ScaleUpNew(pt *Plaintext) (ptOut *rlwe.Plaintext, err error) {
	ptOut = rlwe.NewPlaintext(ecd.params.Parameters)
	if err = ecd.ScaleUp(pt, ptOut); err != nil {
		return nil, err
	}
	return ptOut, nil
}

// ScaleDown writes round(t/q * pt) mod t on ptOut, coefficient-wise.
func (ecd *Encoder) ScaleDown(pt *rlwe.Plaintext, ptOut *Plaintext) (err error) {
	if pt == nil || ptOut == nil {
		return fmt.Errorf("cannot ScaleDown: nil plaintext: %w", ErrShapeMismatch)
	}
	if err = ecd.params.RingQ().CheckRange(pt.Value); err != nil {
		return fmt.Errorf("cannot ScaleDown: %w", err)
	}
	if ptOut.Value == nil || ptOut.Value.Degree() != ecd.params.N() {
		return fmt.Errorf("cannot ScaleDown: plaintext degree does not match N=%d: %w", ecd.params.N(), ErrShapeMismatch)
	}
	q, t := ecd.params.Q(), ecd.params.T()
	for i, c := range pt.Value.Coeffs {
		ptOut.Value.Coeffs[i] = scaleDown(c, t, q)
	}
	return nil
}

// scaleDown returns round(t*c/q) mod t for c in [0, q) with 128-bit
// intermediate precision. Ties are rounded up.
func scaleDown(c, t, q uint64) uint64 {
	hi, lo := bits.Mul64(t, c)
	var carry uint64
	lo, carry = bits.Add64(lo, q>>1, 0)
	hi += carry
	quo, _ := bits.Div64(hi, lo, q)
	return quo % t
}
