package bfv

import (
	"fmt"

	"medhe/rlwe"
)

// Evaluator evaluates homomorphic operations between ciphertexts and between a
// ciphertext and a plaintext scalar. It holds no mutable state and can be shared
// between goroutines.
//
// All operations accept aliased inputs and outputs. The depth of the output is
// the largest depth of the operands, plus one for a plaintext multiplication.
type Evaluator struct {
	params  Parameters
	encoder *Encoder
}

// NewEvaluator creates a new Evaluator, that can be used to do homomorphic
// operations on the Ciphertexts and/or Plaintexts.
func NewEvaluator(params Parameters) *Evaluator {
	return &Evaluator{params: params, encoder: NewEncoder(params)}
}

// Parameters returns the parameters of the evaluator.
func (eval *Evaluator) Parameters() Parameters {
	return eval.params
}

func (eval *Evaluator) checkOperands(opname string, ctOut *Ciphertext, cts ...*Ciphertext) error {
	for _, ct := range cts {
		if err := ct.Validate(eval.params); err != nil {
			return fmt.Errorf("cannot %s: %w", opname, err)
		}
	}
	if ctOut == nil || ctOut.Ciphertext == nil {
		return fmt.Errorf("cannot %s: nil output ciphertext: %w", opname, ErrShapeMismatch)
	}
	if err := eval.params.RingQ().CheckRange(ctOut.Value[0]); err != nil {
		return fmt.Errorf("cannot %s: output: %w", opname, err)
	}
	if err := eval.params.RingQ().CheckRange(ctOut.Value[1]); err != nil {
		return fmt.Errorf("cannot %s: output: %w", opname, err)
	}
	return nil
}

func (eval *Evaluator) newCiphertextLike(ct *Ciphertext) *Ciphertext {
	if ct == nil || ct.Ciphertext == nil {
		return nil
	}
	return NewCiphertext(eval.params)
}

// AddPlain adds the scalar to the ciphertext and writes the result on ctOut.
// Only c0 changes, by Delta*(scalar mod t) on its constant coefficient: the
// noise is unchanged.
func (eval *Evaluator) AddPlain(ct *Ciphertext, scalar int64, ctOut *Ciphertext) (err error) {
	if err = eval.checkOperands("AddPlain", ctOut, ct); err != nil {
		return err
	}
	ringQ := eval.params.RingQ()
	m := rlwe.ModInt64(scalar, eval.params.T())
	if err = ringQ.AddScalar(ct.Value[0], m*eval.params.Delta(), ctOut.Value[0]); err != nil {
		return fmt.Errorf("cannot AddPlain: %w", err)
	}
	ctOut.Value[1].Copy(ct.Value[1])
	ctOut.Depth = ct.Depth
	return nil
}

// AddPlainNew adds the scalar to the ciphertext and returns the result on a new ciphertext.
func (eval *Evaluator) AddPlainNew(ct *Ciphertext, scalar int64) (ctOut *Ciphertext, err error) {
	ctOut = eval.newCiphertextLike(ct)
	if err = eval.AddPlain(ct, scalar, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}

// MulPlain multiplies the ciphertext by the scalar and writes the result on ctOut.
// It fails with ErrDepthExhausted if the ciphertext already went through
// MaxMulDepth multiplications.
func (eval *Evaluator) MulPlain(ct *Ciphertext, scalar int64, ctOut *Ciphertext) (err error) {
	pt := NewPlaintext(eval.params)
	if err = eval.encoder.Encode(scalar, pt); err != nil {
		return fmt.Errorf("cannot MulPlain: %w", err)
	}
	return eval.MulPlaintext(ct, pt, ctOut)
}

// MulPlainNew multiplies the ciphertext by the scalar and returns the result on
// a new ciphertext.
func (eval *Evaluator) MulPlainNew(ct *Ciphertext, scalar int64) (ctOut *Ciphertext, err error) {
	ctOut = eval.newCiphertextLike(ct)
	if err = eval.MulPlain(ct, scalar, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}

// MulPlaintext multiplies both components of the ciphertext by the unscaled
// plaintext polynomial and writes the result on ctOut. The plaintext coefficients
// are lifted into (-t/2, t/2] so that the noise grows by at most t/2 times
// the norm of the plaintext.
func (eval *Evaluator) MulPlaintext(ct *Ciphertext, pt *Plaintext, ctOut *Ciphertext) (err error) {

	if err = eval.checkOperands("MulPlaintext", ctOut, ct); err != nil {
		return err
	}
	if ct.Depth >= MaxMulDepth {
		return fmt.Errorf("cannot MulPlaintext: ciphertext depth %d, maximum is %d: %w", ct.Depth, MaxMulDepth, ErrDepthExhausted)
	}
	if pt == nil {
		return fmt.Errorf("cannot MulPlaintext: nil plaintext: %w", ErrShapeMismatch)
	}

	ringT := eval.params.RingT()
	ringQ := eval.params.RingQ()

	if err = ringT.CheckRange(pt.Value); err != nil {
		return fmt.Errorf("cannot MulPlaintext: %w", err)
	}

	lifted := ringQ.NewPoly()
	if err = ringQ.Reduce(ringT.Center(pt.Value), lifted); err != nil {
		return fmt.Errorf("cannot MulPlaintext: %w", err)
	}

	for i := range ct.Value {
		if err = ringQ.MulPoly(ct.Value[i], lifted, ctOut.Value[i]); err != nil {
			return fmt.Errorf("cannot MulPlaintext: %w", err)
		}
	}
	ctOut.Depth = ct.Depth + 1

	return nil
}

// Add adds ct0 to ct1 and writes the result on ctOut.
func (eval *Evaluator) Add(ct0, ct1, ctOut *Ciphertext) (err error) {
	return eval.evaluateBinary("Add", ct0, ct1, ctOut, eval.params.RingQ().Add)
}

// AddNew adds ct0 to ct1 and returns the result on a new ciphertext.
func (eval *Evaluator) AddNew(ct0, ct1 *Ciphertext) (ctOut *Ciphertext, err error) {
	ctOut = eval.newCiphertextLike(ct0)
	if err = eval.Add(ct0, ct1, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}

// Sub subtracts ct1 from ct0 and writes the result on ctOut.
func (eval *Evaluator) Sub(ct0, ct1, ctOut *Ciphertext) (err error) {
	return eval.evaluateBinary("Sub", ct0, ct1, ctOut, eval.params.RingQ().Sub)
}

// SubNew subtracts ct1 from ct0 and returns the result on a new ciphertext.
func (eval *Evaluator) SubNew(ct0, ct1 *Ciphertext) (ctOut *Ciphertext, err error) {
	ctOut = eval.newCiphertextLike(ct0)
	if err = eval.Sub(ct0, ct1, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}

// Neg negates ct and writes the result on ctOut.
func (eval *Evaluator) Neg(ct, ctOut *Ciphertext) (err error) {
	if err = eval.checkOperands("Neg", ctOut, ct); err != nil {
		return err
	}
	ringQ := eval.params.RingQ()
	for i := range ct.Value {
		if err = ringQ.Neg(ct.Value[i], ctOut.Value[i]); err != nil {
			return fmt.Errorf("cannot Neg: %w", err)
		}
	}
	ctOut.Depth = ct.Depth
	return nil
}

// NegNew negates ct and returns the result on a new ciphertext.
func (eval *Evaluator) NegNew(ct *Ciphertext) (ctOut *Ciphertext, err error) {
	ctOut = eval.newCiphertextLike(ct)
	if err = eval.Neg(ct, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}

// evaluateBinary applies evaluate component-wise on ct0 and ct1 and writes the result on ctOut.
func (eval *Evaluator) evaluateBinary(opname string, ct0, ct1, ctOut *Ciphertext, evaluate func(p1, p2, p3 *rlwe.Poly) error) (err error) {
	if err = eval.checkOperands(opname, ctOut, ct0, ct1); err != nil {
		return err
	}
	depth := ct0.Depth
	if ct1.Depth > depth {
		depth = ct1.Depth
	}
	for i := range ctOut.Value {
		if err = evaluate(ct0.Value[i], ct1.Value[i], ctOut.Value[i]); err != nil {
			return fmt.Errorf("cannot %s: %w", opname, err)
		}
	}
	ctOut.Depth = depth
	return nil
}
