// Package stub provides a fast, deterministic embedder for local development
// and seeding. Vectors are derived from a hash of the input text, L2
// normalized so raw dot products behave like the live provider's output.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Dimension is the stub vector size; small on purpose.
const Dimension = 64

// Client implements domain.Embedder without any network calls.
type Client struct{}

// New constructs a stub embedder.
func New() *Client { return &Client{} }

// Embed returns one deterministic unit vector per text.
func (c *Client) Embed(_ context.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	for i, t := range texts {
		res[i] = vectorFor(t)
	}
	return res, nil
}

func vectorFor(text string) []float32 {
	h := sha256.Sum256([]byte(text))
	v := make([]float32, Dimension)
	var norm float64
	for i := 0; i < Dimension; i++ {
		// Stretch the 32-byte digest over the vector by re-hashing the
		// lane index into it.
		lane := sha256.Sum256(append(h[:], byte(i)))
		u := binary.BigEndian.Uint32(lane[:4])
		// Map to [-1, 1)
		f := float64(u)/float64(math.MaxUint32)*2 - 1
		v[i] = float32(f)
		norm += f * f
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
