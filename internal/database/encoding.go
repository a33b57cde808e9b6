package database

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embeddings are stored as a fixed-width little-endian float64 array,
// the wire format the vision service produces. The codec is bit-exact:
// a vector written and read back compares equal to the original.

// EmbeddingByteWidth is the width of a single embedding component in bytes.
const EmbeddingByteWidth = 8

// EncodeEmbedding serializes an embedding to its storage byte form.
func EncodeEmbedding(embedding []float64) []byte {
	buf := make([]byte, len(embedding)*EmbeddingByteWidth)
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*EmbeddingByteWidth:], math.Float64bits(v))
	}
	return buf
}

// DecodeEmbedding parses an embedding from its storage byte form.
// Blobs whose length is not a multiple of the float width are rejected.
func DecodeEmbedding(data []byte) ([]float64, error) {
	if len(data)%EmbeddingByteWidth != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of %d", len(data), EmbeddingByteWidth)
	}

	embedding := make([]float64, len(data)/EmbeddingByteWidth)
	for i := range embedding {
		embedding[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*EmbeddingByteWidth:]))
	}
	return embedding, nil
}
