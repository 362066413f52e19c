// Package codec encrypts and decrypts matrices of numeric features, cell by
// cell, on a bounded pool of goroutines.
package codec

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"

	"medhe/bfv"
)

// ErrMissingKey is returned when an operation needs a key the Codec was not
// configured with.
var ErrMissingKey = errors.New("missing key")

// Number is the set of element types EncryptMatrix accepts.
type Number interface {
	constraints.Integer | constraints.Float
}

// Config configures a Codec. Encryptor is needed to encrypt and Decryptor to
// decrypt; a Codec can hold either or both. A nil Encoder selects the
// non-strict encoder of the parameters. Workers <= 0 selects GOMAXPROCS.
type Config struct {
	Encoder   *bfv.Encoder
	Encryptor *bfv.Encryptor
	Decryptor *bfv.Decryptor
	Workers   int
}

// Codec turns plaintext matrices into ciphertext matrices of the same shape and back.
// It holds no mutable state and can be shared between goroutines.
type Codec struct {
	params    bfv.Parameters
	encoder   *bfv.Encoder
	encryptor *bfv.Encryptor
	decryptor *bfv.Decryptor
	workers   int
}

// NewCodec creates a new Codec for params.
func NewCodec(params bfv.Parameters, cfg Config) *Codec {
	c := &Codec{
		params:    params,
		encoder:   cfg.Encoder,
		encryptor: cfg.Encryptor,
		decryptor: cfg.Decryptor,
		workers:   cfg.Workers,
	}
	if c.encoder == nil {
		c.encoder = bfv.NewEncoder(params)
	}
	if c.workers <= 0 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// Parameters returns the parameters of the codec.
func (c *Codec) Parameters() bfv.Parameters {
	return c.params
}

// Encoder returns the encoder of the codec.
func (c *Codec) Encoder() *bfv.Encoder {
	return c.encoder
}

// EncryptMatrix encodes and encrypts every cell of m and returns a ciphertext
// matrix of the same shape. Float cells are truncated toward zero.
//
// Ragged input fails with ErrShapeMismatch before anything is encrypted. The
// first failing cell cancels the remaining work and its error is returned with a
// nil matrix.
func EncryptMatrix[T Number](ctx context.Context, c *Codec, m [][]T) (*CiphertextMatrix, error) {

	if c.encryptor == nil {
		return nil, fmt.Errorf("cannot EncryptMatrix: no public key: %w", ErrMissingKey)
	}

	rows, cols := len(m), 0
	if rows > 0 {
		cols = len(m[0])
	}
	for i, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("cannot EncryptMatrix: row %d has %d values, expected %d: %w", i, len(row), cols, bfv.ErrShapeMismatch)
		}
	}

	out := NewCiphertextMatrix(rows, cols)

	err := c.forEachCell(ctx, rows, cols, func(i, j int) error {
		pt := bfv.NewPlaintext(c.params)
		if err := encodeNumber(c.encoder, m[i][j], pt); err != nil {
			return fmt.Errorf("cannot EncryptMatrix: cell (%d, %d): %w", i, j, err)
		}
		ct, err := c.encryptor.EncryptNew(pt)
		if err != nil {
			return fmt.Errorf("cannot EncryptMatrix: cell (%d, %d): %w", i, j, err)
		}
		out.Values[i][j] = ct
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// DecryptMatrix decrypts every cell of cm and returns the plaintext matrix,
// with values in [0, t). The first failing cell cancels the remaining work and
// its error is returned with a nil matrix.
func (c *Codec) DecryptMatrix(ctx context.Context, cm *CiphertextMatrix) ([][]uint64, error) {

	if c.decryptor == nil {
		return nil, fmt.Errorf("cannot DecryptMatrix: no secret key: %w", ErrMissingKey)
	}
	if err := cm.Validate(c.params); err != nil {
		return nil, fmt.Errorf("cannot DecryptMatrix: %w", err)
	}

	out := make([][]uint64, cm.Rows)
	for i := range out {
		out[i] = make([]uint64, cm.Cols)
	}

	err := c.forEachCell(ctx, cm.Rows, cm.Cols, func(i, j int) (err error) {
		if out[i][j], err = c.decryptor.DecryptValue(cm.Values[i][j]); err != nil {
			return fmt.Errorf("cannot DecryptMatrix: cell (%d, %d): %w", i, j, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// forEachCell runs f on every cell of a rows x cols matrix, on at most c.workers
// goroutines, and returns the first error.
func (c *Codec) forEachCell(ctx context.Context, rows, cols int, f func(i, j int) error) error {

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

cells:
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if gctx.Err() != nil {
				break cells
			}
			i, j := i, j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return f(i, j)
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// encodeNumber dispatches v to the float, signed or unsigned encoding routine
// depending on the underlying kind of T.
func encodeNumber[T Number](ecd *bfv.Encoder, v T, pt *bfv.Plaintext) error {
	half := T(1)
	half /= 2
	if half != 0 {
		return ecd.EncodeFloat(float64(v), pt)
	}
	var minusOne T
	minusOne--
	if minusOne < 0 {
		return ecd.Encode(int64(v), pt)
	}
	return ecd.EncodeUint(uint64(v), pt)
}
