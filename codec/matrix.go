package codec

import (
	"encoding/binary"
	"fmt"

	"medhe/bfv"
	"medhe/rlwe"
)

// CiphertextMatrix is a row-major matrix of ciphertexts with the shape of the
// plaintext matrix it encrypts. Every cell holds both components of its ciphertext.
type CiphertextMatrix struct {
	Rows   int
	Cols   int
	Values [][]*bfv.Ciphertext
}

// NewCiphertextMatrix allocates an empty rows x cols matrix.
func NewCiphertextMatrix(rows, cols int) *CiphertextMatrix {
	values := make([][]*bfv.Ciphertext, rows)
	for i := range values {
		values[i] = make([]*bfv.Ciphertext, cols)
	}
	return &CiphertextMatrix{Rows: rows, Cols: cols, Values: values}
}

// At returns the ciphertext at row i and column j.
func (cm *CiphertextMatrix) At(i, j int) *bfv.Ciphertext {
	return cm.Values[i][j]
}

// Row returns the ciphertexts of row i.
func (cm *CiphertextMatrix) Row(i int) []*bfv.Ciphertext {
	return cm.Values[i]
}

// Validate checks that the matrix has the announced shape and that every cell
// is a well formed ciphertext of params.
func (cm *CiphertextMatrix) Validate(params bfv.Parameters) error {
	if cm == nil {
		return fmt.Errorf("nil ciphertext matrix: %w", bfv.ErrShapeMismatch)
	}
	if len(cm.Values) != cm.Rows {
		return fmt.Errorf("matrix has %d rows, %d announced: %w", len(cm.Values), cm.Rows, bfv.ErrShapeMismatch)
	}
	for i, row := range cm.Values {
		if len(row) != cm.Cols {
			return fmt.Errorf("row %d has %d columns, %d announced: %w", i, len(row), cm.Cols, bfv.ErrShapeMismatch)
		}
		for j, ct := range row {
			if err := ct.Validate(params); err != nil {
				return fmt.Errorf("cell (%d, %d): %w", i, j, err)
			}
		}
	}
	return nil
}

// LeadingCoefficients returns the constant coefficient of c0 of every cell.
//
// This view is lossy: the values cannot be decrypted. It only exists to export a
// flat numeric feature table; the matrix itself must be kept to recover the data.
func (cm *CiphertextMatrix) LeadingCoefficients() [][]uint64 {
	out := make([][]uint64, cm.Rows)
	for i, row := range cm.Values {
		out[i] = make([]uint64, len(row))
		for j, ct := range row {
			out[i][j] = ct.Value[0].Coeffs[0]
		}
	}
	return out
}

// MarshalBinary encodes the matrix as its shape followed by every ciphertext,
// row by row, each prefixed by its length. Rows without columns cannot be
// encoded.
func (cm *CiphertextMatrix) MarshalBinary() (data []byte, err error) {

	if cm.Rows > 0 && cm.Cols == 0 {
		return nil, fmt.Errorf("cannot MarshalBinary: %d rows without columns: %w", cm.Rows, bfv.ErrShapeMismatch)
	}

	data = make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], uint32(cm.Rows))
	binary.LittleEndian.PutUint32(data[4:], uint32(cm.Cols))

	var length [4]byte
	for i, row := range cm.Values {
		if len(row) != cm.Cols {
			return nil, fmt.Errorf("cannot MarshalBinary: row %d has %d columns, %d announced: %w", i, len(row), cm.Cols, bfv.ErrShapeMismatch)
		}
		for j, ct := range row {
			if ct == nil || ct.Ciphertext == nil {
				return nil, fmt.Errorf("cannot MarshalBinary: cell (%d, %d) is empty: %w", i, j, bfv.ErrShapeMismatch)
			}
			ctData, err := ct.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("cannot MarshalBinary: cell (%d, %d): %w", i, j, err)
			}
			binary.LittleEndian.PutUint32(length[:], uint32(len(ctData)))
			data = append(data, length[:]...)
			data = append(data, ctData...)
		}
	}

	return data, nil
}

// UnmarshalBinary decodes a previously marshaled matrix in the target matrix.
func (cm *CiphertextMatrix) UnmarshalBinary(data []byte) (err error) {

	if len(data) < 8 {
		return fmt.Errorf("cannot UnmarshalBinary: truncated header: %w", bfv.ErrShapeMismatch)
	}

	rows := int(binary.LittleEndian.Uint32(data[0:]))
	cols := int(binary.LittleEndian.Uint32(data[4:]))
	ptr := 8

	if rows > 0 && cols == 0 {
		return fmt.Errorf("cannot UnmarshalBinary: %d rows without columns: %w", rows, bfv.ErrShapeMismatch)
	}

	// every cell takes at least its 4-byte length prefix
	if uint64(rows)*uint64(cols) > uint64(len(data)-ptr)/4 {
		return fmt.Errorf("cannot UnmarshalBinary: %dx%d cells announced for %d bytes: %w", rows, cols, len(data), bfv.ErrShapeMismatch)
	}

	out := NewCiphertextMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if len(data)-ptr < 4 {
				return fmt.Errorf("cannot UnmarshalBinary: cell (%d, %d): truncated: %w", i, j, bfv.ErrShapeMismatch)
			}
			n := int(binary.LittleEndian.Uint32(data[ptr:]))
			ptr += 4
			if len(data)-ptr < n {
				return fmt.Errorf("cannot UnmarshalBinary: cell (%d, %d): truncated: %w", i, j, bfv.ErrShapeMismatch)
			}
			ct := &bfv.Ciphertext{Ciphertext: new(rlwe.Ciphertext)}
			if err = ct.UnmarshalBinary(data[ptr : ptr+n]); err != nil {
				return fmt.Errorf("cannot UnmarshalBinary: cell (%d, %d): %w", i, j, err)
			}
			out.Values[i][j] = ct
			ptr += n
		}
	}

	if ptr != len(data) {
		return fmt.Errorf("cannot UnmarshalBinary: %d trailing bytes: %w", len(data)-ptr, bfv.ErrShapeMismatch)
	}

	*cm = *out
	return nil
}
