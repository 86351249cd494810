// Package match implements the pure matching/scoring core: vector similarity,
// skill normalization, resume section and experience extraction, and the
// semantic/composite scoring strategies. Everything in this package is
// side-effect free and safe for concurrent use.
package match

import (
	"fmt"
	"math"

	"github.com/hiregrid/matchengine/internal/domain"
)

// Cosine compares two equal-length vectors and returns a similarity clamped
// to [0,1]. With normalize=true the dot product is divided by the product of
// the Euclidean norms (true cosine); with normalize=false the raw dot product
// is returned, which is only a valid similarity when the provider already
// L2-normalizes its vectors.
//
// Negative similarity is clamped to 0 on purpose: the text encoders in use
// rarely produce strongly negative similarity for related text, and a
// negative percentage would be meaningless downstream. Callers relying on
// signed cosine must not use this function.
//
// Nil, empty, or length-mismatched inputs return an error wrapping
// domain.ErrInvalidArgument. Zero-magnitude vectors yield 0 with no error.
func Cosine(a, b []float32, normalize bool) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("op=match.cosine: empty vector: %w", domain.ErrInvalidArgument)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("op=match.cosine: dimension mismatch %d != %d: %w", len(a), len(b), domain.ErrInvalidArgument)
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	sim := dot
	if normalize {
		if na == 0 || nb == 0 {
			return 0, nil
		}
		sim = dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
	return clamp01(sim), nil
}

// cosineOrZero is the scoring-path helper: any comparison error degrades to 0
// so one bad facet never poisons the rest of a breakdown.
func cosineOrZero(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sim, err := Cosine(a, b, true)
	if err != nil {
		return 0
	}
	return sim
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
