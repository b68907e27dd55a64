package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding encodes a multi-vector embedding into a BLOB suitable for
// SQLite storage: a little-endian sequence of IEEE 754 float32 values, row
// after row, without a length prefix. The vector count is derived on decode
// from the BLOB size and the index dimension.
func EncodeEmbedding(vectors [][]float32) ([]byte, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("store: empty embedding")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("store: zero-dimension embedding")
	}

	b := make([]byte, 0, len(vectors)*dim*4)
	buf := make([]byte, 4)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("store: inconsistent vector dims %d vs %d at row %d", len(vec), dim, i)
		}
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			b = append(b, buf...)
		}
	}
	return b, nil
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding back into a
// multi-vector embedding of the given dimension.
func DecodeEmbedding(b []byte, dim int) ([][]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("store: invalid embedding dimension %d", dim)
	}
	if len(b) == 0 || len(b)%(dim*4) != 0 {
		return nil, fmt.Errorf("store: invalid embedding blob length %d for dimension %d", len(b), dim)
	}

	rows := len(b) / (dim * 4)
	vectors := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		vec := make([]float32, dim)
		off := i * dim * 4
		for j := 0; j < dim; j++ {
			bits := binary.LittleEndian.Uint32(b[off+j*4:])
			vec[j] = math.Float32frombits(bits)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
