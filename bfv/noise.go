package bfv

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Noise returns the centered coefficients of c0 + c1*sk - Delta*m, where m is the
// closest valid encoding of the phase. Unlike Decrypt it does not fail when the
// noise has grown past q/(2t); the returned noise is then relative to a wrong m.
func (dec *Decryptor) Noise(ct *Ciphertext) (noise []int64, err error) {
	if err = ct.Validate(dec.params); err != nil {
		return nil, fmt.Errorf("cannot Noise: %w", err)
	}

	phase, err := dec.decryptor.DecryptNew(ct.Ciphertext)
	if err != nil {
		return nil, err
	}

	pt := NewPlaintext(dec.params)
	if err = dec.encoder.ScaleDown(phase, pt); err != nil {
		return nil, fmt.Errorf("cannot Noise: %w", err)
	}
	// only the constant coefficient is part of the message
	for i := 1; i < len(pt.Value.Coeffs); i++ {
		pt.Value.Coeffs[i] = 0
	}

	scaled, err := dec.encoder.ScaleUpNew(pt)
	if err != nil {
		return nil, fmt.Errorf("cannot Noise: %w", err)
	}

	ringQ := dec.params.RingQ()
	if err = ringQ.Sub(phase.Value, scaled.Value, phase.Value); err != nil {
		return nil, fmt.Errorf("cannot Noise: %w", err)
	}

	return ringQ.Center(phase.Value), nil
}

// NoiseBudget returns log2(q/(2t)) - log2(max|noise|), the number of bits of
// noise growth the ciphertext can still absorb before decryption fails. A
// negative budget means the ciphertext no longer decrypts correctly.
func (dec *Decryptor) NoiseBudget(ct *Ciphertext) (budget float64, err error) {
	noise, err := dec.Noise(ct)
	if err != nil {
		return 0, err
	}
	return budgetOf(dec.params, maxAbs(noise)), nil
}

// NoiseReport summarizes the noise of a set of ciphertexts.
type NoiseReport struct {
	Ciphertexts int
	Mean        float64 // mean of |noise| over all coefficients
	StdDev      float64 // population standard deviation of the noise
	Max         float64 // largest |noise|
	Budget      float64 // budget of the noisiest ciphertext, in bits
}

func (r NoiseReport) String() string {
	return fmt.Sprintf("ciphertexts=%d mean|e|=%.2f std(e)=%.2f max|e|=%.0f budget=%.2f bits",
		r.Ciphertexts, r.Mean, r.StdDev, r.Max, r.Budget)
}

// NoiseReport computes the noise statistics of the given ciphertexts.
func (dec *Decryptor) NoiseReport(cts []*Ciphertext) (report NoiseReport, err error) {

	if len(cts) == 0 {
		return report, fmt.Errorf("cannot NoiseReport: no ciphertext: %w", ErrShapeMismatch)
	}

	signed := make(stats.Float64Data, 0, len(cts)*dec.params.N())
	abs := make(stats.Float64Data, 0, len(cts)*dec.params.N())

	for i, ct := range cts {
		noise, err := dec.Noise(ct)
		if err != nil {
			return report, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		for _, e := range noise {
			signed = append(signed, float64(e))
			abs = append(abs, math.Abs(float64(e)))
		}
	}

	report.Ciphertexts = len(cts)
	if report.Mean, err = stats.Mean(abs); err != nil {
		return report, fmt.Errorf("cannot NoiseReport: %w", err)
	}
	if report.StdDev, err = stats.StandardDeviationPopulation(signed); err != nil {
		return report, fmt.Errorf("cannot NoiseReport: %w", err)
	}
	if report.Max, err = stats.Max(abs); err != nil {
		return report, fmt.Errorf("cannot NoiseReport: %w", err)
	}
	report.Budget = budgetOf(dec.params, int64(report.Max))

	return report, nil
}

func maxAbs(coeffs []int64) (max int64) {
	for _, c := range coeffs {
		if c < 0 {
			c = -c
		}
		if c > max {
			max = c
		}
	}
	return
}

func budgetOf(params Parameters, maxNoise int64) float64 {
	budget := math.Log2(params.NoiseBound())
	if maxNoise > 0 {
		budget -= math.Log2(float64(maxNoise))
	}
	return budget
}
