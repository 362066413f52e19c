// Package linear evaluates linear models over encrypted feature rows.
//
// A score is sum_i w_i * x_i + b computed with plaintext weights: each feature
// ciphertext goes through exactly one plaintext multiplication, so the circuit
// fits the single multiplicative level of the scheme. Scores are exact modulo t.
package linear

import (
	"context"
	"errors"
	"fmt"

	"medhe/bfv"
	"medhe/codec"
	"medhe/rlwe"
)

// ErrNoiseBudget is returned when the noise of a score is expected to exceed
// what the parameters can decrypt.
var ErrNoiseBudget = errors.New("noise budget exceeded")

// Model is a linear model with integer weights.
type Model struct {
	Weights []int64 `json:"weights"`
	Bias    int64   `json:"bias"`
}

// Features returns the number of features the model expects.
func (m Model) Features() int {
	return len(m.Weights)
}

// Eval computes the score of a plaintext row modulo t. It is the reference the
// encrypted evaluation is checked against.
func (m Model) Eval(row []int64, t uint64) (uint64, error) {
	if len(row) != len(m.Weights) {
		return 0, fmt.Errorf("cannot Eval: row has %d features, model expects %d: %w", len(row), len(m.Weights), bfv.ErrShapeMismatch)
	}
	acc := rlwe.ModInt64(m.Bias, t)
	for i, w := range m.Weights {
		prod := rlwe.ModInt64(w, t) * rlwe.ModInt64(row[i], t) % t
		acc = (acc + prod) % t
	}
	return acc, nil
}

// WeightNorm returns the sum of the absolute values of the weights lifted into
// (-t/2, t/2], which is the factor by which scoring multiplies fresh noise.
func (m Model) WeightNorm(t uint64) (norm float64) {
	for _, w := range m.Weights {
		c := rlwe.ModInt64(w, t)
		if c > t>>1 {
			norm += float64(t - c)
		} else {
			norm += float64(c)
		}
	}
	return norm
}

// MaxWeightNorm returns the largest WeightNorm a model can have for its scores
// of fresh ciphertexts to decrypt under params.
func MaxWeightNorm(params bfv.Parameters) float64 {
	return params.NoiseBound() / params.FreshNoiseEstimate()
}

// CheckNoise returns ErrNoiseBudget if scoring fresh ciphertexts of params with
// the model is expected to exceed the noise bound.
func (m Model) CheckNoise(params bfv.Parameters) error {
	if norm, limit := m.WeightNorm(params.T()), MaxWeightNorm(params); norm >= limit {
		return fmt.Errorf("weight norm %.0f, parameters with t=%d support less than %.1f: %w", norm, params.T(), limit, ErrNoiseBudget)
	}
	return nil
}

// FCLayer computes sum_i weights[i] * row[i] + bias over the ciphertexts of row.
func FCLayer(eval *bfv.Evaluator, row []*bfv.Ciphertext, weights []int64, bias int64) (out *bfv.Ciphertext, err error) {

	if len(row) == 0 || len(row) != len(weights) {
		return nil, fmt.Errorf("cannot FCLayer: %d ciphertexts for %d weights: %w", len(row), len(weights), bfv.ErrShapeMismatch)
	}

	tmp := bfv.NewCiphertext(eval.Parameters())
	for i := range row {
		if i == 0 {
			if out, err = eval.MulPlainNew(row[0], weights[0]); err != nil {
				return nil, fmt.Errorf("cannot FCLayer: feature 0: %w", err)
			}
			continue
		}
		if err = eval.MulPlain(row[i], weights[i], tmp); err != nil {
			return nil, fmt.Errorf("cannot FCLayer: feature %d: %w", i, err)
		}
		if err = eval.Add(out, tmp, out); err != nil {
			return nil, fmt.Errorf("cannot FCLayer: feature %d: %w", i, err)
		}
	}

	if err = eval.AddPlain(out, bias, out); err != nil {
		return nil, fmt.Errorf("cannot FCLayer: bias: %w", err)
	}

	return out, nil
}

// Score computes the encrypted score of one encrypted row.
func Score(eval *bfv.Evaluator, model Model, row []*bfv.Ciphertext) (*bfv.Ciphertext, error) {
	if err := model.CheckNoise(eval.Parameters()); err != nil {
		return nil, fmt.Errorf("cannot Score: %w", err)
	}
	return FCLayer(eval, row, model.Weights, model.Bias)
}

// ScoreMatrix scores every row of cm and returns a cm.Rows x 1 matrix of
// encrypted scores. The matrix must have one column per model weight.
func ScoreMatrix(ctx context.Context, eval *bfv.Evaluator, model Model, cm *codec.CiphertextMatrix) (*codec.CiphertextMatrix, error) {

	if err := cm.Validate(eval.Parameters()); err != nil {
		return nil, fmt.Errorf("cannot ScoreMatrix: %w", err)
	}
	if cm.Cols != model.Features() {
		return nil, fmt.Errorf("cannot ScoreMatrix: matrix has %d columns, model expects %d: %w", cm.Cols, model.Features(), bfv.ErrShapeMismatch)
	}
	if err := model.CheckNoise(eval.Parameters()); err != nil {
		return nil, fmt.Errorf("cannot ScoreMatrix: %w", err)
	}

	out := codec.NewCiphertextMatrix(cm.Rows, 1)
	for i := 0; i < cm.Rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score, err := Score(eval, model, cm.Row(i))
		if err != nil {
			return nil, fmt.Errorf("cannot ScoreMatrix: row %d: %w", i, err)
		}
		out.Values[i][0] = score
	}

	return out, nil
}
