package analysis

import (
	"context"
	"math"
	"strings"
)

// Embedder turns text into a fixed-length semantic vector. Classify's
// preferred path compares the error text's embedding against each
// canonical pattern's centroid via cosine similarity (§4.N.1).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HeuristicEmbedder is a dependency-free bag-of-words embedder: each
// dimension is a hashed token bucket, weighted by term frequency. This is
// the default embedder when no external embedding stack is configured
// (spec §1 treats the real embedding model as an external collaborator).
type HeuristicEmbedder struct {
	Dimensions int
}

// NewHeuristicEmbedder builds a HeuristicEmbedder with dims buckets.
// dims <= 0 defaults to 256.
func NewHeuristicEmbedder(dims int) *HeuristicEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HeuristicEmbedder{Dimensions: dims}
}

// Embed hashes each lowercased token into a bucket and accumulates term
// frequency, then L2-normalizes the result.
func (e *HeuristicEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.Dimensions)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		bucket := hashToken(tok) % uint32(e.Dimensions)
		vec[bucket]++
	}
	normalize(vec)
	return vec, nil
}

func hashToken(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func normalize(vec []float64) {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] /= norm
	}
}

// ONNXEmbedder is a contract-only stand-in for a real ONNX-session NER
// embedder (§4.N / SPEC_FULL §5.2). Session is left as an opaque any so
// core never imports an ONNX runtime binding directly; wiring a real
// session is a caller concern.
type ONNXEmbedder struct {
	Session any
	Run     func(ctx context.Context, session any, text string) ([]float64, error)
}

// Embed delegates to Run. Returns an error if no Run function was wired,
// which callers should treat as "semantic path unavailable, use keyword
// fallback" per spec §4.N.2.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.Run == nil {
		return nil, errEmbedderUnavailable
	}
	return e.Run(ctx, e.Session, text)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
