package rlwe

import (
	"encoding/binary"
	"fmt"
)

// GetDataLen returns the length in bytes of the target Poly.
func (pol *Poly) GetDataLen() int {
	return 4 + 8*len(pol.Coeffs)
}

// WriteTo encodes the Poly on data and returns the number of bytes written.
// data must be at least GetDataLen bytes long.
func (pol *Poly) WriteTo(data []byte) (int, error) {
	if len(data) < pol.GetDataLen() {
		return 0, fmt.Errorf("cannot WriteTo: buffer too small")
	}
	binary.LittleEndian.PutUint32(data, uint32(len(pol.Coeffs)))
	ptr := 4
	for _, c := range pol.Coeffs {
		binary.LittleEndian.PutUint64(data[ptr:], c)
		ptr += 8
	}
	return ptr, nil
}

// DecodePoly decodes a Poly from data and returns the number of bytes read.
func (pol *Poly) DecodePoly(data []byte) (int, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("cannot DecodePoly: truncated header: %w", ErrShapeMismatch)
	}
	N := int(binary.LittleEndian.Uint32(data))
	if N > 1<<MaxLogN || len(data) < 4+8*N {
		return 0, fmt.Errorf("cannot DecodePoly: %d coefficients announced, %d bytes available: %w", N, len(data)-4, ErrShapeMismatch)
	}
	pol.Coeffs = make([]uint64, N)
	ptr := 4
	for i := range pol.Coeffs {
		pol.Coeffs[i] = binary.LittleEndian.Uint64(data[ptr:])
		ptr += 8
	}
	return ptr, nil
}

// MarshalBinary encodes a Poly in a byte slice.
func (pol *Poly) MarshalBinary() (data []byte, err error) {
	data = make([]byte, pol.GetDataLen())
	_, err = pol.WriteTo(data)
	return
}

// UnmarshalBinary decodes a previously marshaled Poly in the target Poly.
func (pol *Poly) UnmarshalBinary(data []byte) (err error) {
	n, err := pol.DecodePoly(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("cannot UnmarshalBinary: %d trailing bytes: %w", len(data)-n, ErrShapeMismatch)
	}
	return nil
}

func marshalPolys(header []byte, polys ...*Poly) ([]byte, error) {
	dataLen := len(header)
	for _, pol := range polys {
		if pol == nil {
			return nil, fmt.Errorf("cannot MarshalBinary: nil polynomial: %w", ErrShapeMismatch)
		}
		dataLen += pol.GetDataLen()
	}
	data := make([]byte, dataLen)
	ptr := copy(data, header)
	for _, pol := range polys {
		n, err := pol.WriteTo(data[ptr:])
		if err != nil {
			return nil, err
		}
		ptr += n
	}
	return data, nil
}

func unmarshalPolys(data []byte, polys ...*Poly) error {
	ptr := 0
	for _, pol := range polys {
		n, err := pol.DecodePoly(data[ptr:])
		if err != nil {
			return fmt.Errorf("cannot UnmarshalBinary: %w", err)
		}
		ptr += n
	}
	if ptr != len(data) {
		return fmt.Errorf("cannot UnmarshalBinary: %d trailing bytes: %w", len(data)-ptr, ErrShapeMismatch)
	}
	return nil
}

// MarshalBinary encodes a SecretKey in a byte slice.
func (sk *SecretKey) MarshalBinary() (data []byte, err error) {
	return marshalPolys(nil, sk.Value)
}

// UnmarshalBinary decodes a previously marshaled SecretKey in the target SecretKey.
func (sk *SecretKey) UnmarshalBinary(data []byte) (err error) {
	sk.Value = new(Poly)
	return unmarshalPolys(data, sk.Value)
}

// MarshalBinary encodes a PublicKey in a byte slice.
func (pk *PublicKey) MarshalBinary() (data []byte, err error) {
	return marshalPolys(nil, pk.Value[0], pk.Value[1])
}

// UnmarshalBinary decodes a previously marshaled PublicKey in the target PublicKey.
func (pk *PublicKey) UnmarshalBinary(data []byte) (err error) {
	pk.Value = [2]*Poly{new(Poly), new(Poly)}
	return unmarshalPolys(data, pk.Value[0], pk.Value[1])
}

// GetDataLen returns the length in bytes of the target Ciphertext.
func (ct *Ciphertext) GetDataLen() int {
	return 1 + ct.Value[0].GetDataLen() + ct.Value[1].GetDataLen()
}

// MarshalBinary encodes a Ciphertext in a byte slice. Both components are
// always written.
func (ct *Ciphertext) MarshalBinary() (data []byte, err error) {
	if ct.Depth < 0 || ct.Depth > 0xFF {
		return nil, fmt.Errorf("cannot MarshalBinary: depth %d out of range: %w", ct.Depth, ErrShapeMismatch)
	}
	return marshalPolys([]byte{uint8(ct.Depth)}, ct.Value[0], ct.Value[1])
}

// UnmarshalBinary decodes a previously marshaled Ciphertext in the target Ciphertext.
func (ct *Ciphertext) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 1 {
		return fmt.Errorf("cannot UnmarshalBinary: empty ciphertext: %w", ErrShapeMismatch)
	}
	ct.Depth = int(data[0])
	ct.Value = [2]*Poly{new(Poly), new(Poly)}
	return unmarshalPolys(data[1:], ct.Value[0], ct.Value[1])
}
