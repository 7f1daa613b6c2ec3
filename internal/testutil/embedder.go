package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// FixedEmbedder is a deterministic Genkit embedder for tests. Identical text
// always embeds to the same unit vector, so similarity comparisons are
// stable across runs. Explicit vectors can be pinned per text to control
// cosine similarity precisely.
//
// Safe for concurrent use.
type FixedEmbedder struct {
	mu     sync.Mutex
	pinned map[string][]float32
	dim    int
}

// NewFixedEmbedder creates an embedder producing vectors of the given dimension.
func NewFixedEmbedder(dim int) *FixedEmbedder {
	return &FixedEmbedder{pinned: make(map[string][]float32), dim: dim}
}

// Pin sets the exact vector returned for the given text.
func (e *FixedEmbedder) Pin(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned[text] = vec
}

// Register defines the embedder in Genkit as "test/fixed".
func (e *FixedEmbedder) Register(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "test/fixed", &ai.EmbedderOptions{
		Label:      "Fixed Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *FixedEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: e.vectorFor(docText(doc))}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (e *FixedEmbedder) vectorFor(text string) []float32 {
	e.mu.Lock()
	v, ok := e.pinned[text]
	e.mu.Unlock()
	if ok {
		return v
	}
	return hashVector(text, e.dim)
}

func docText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// hashVector derives a unit vector from the SHA-256 of the text.
func hashVector(text string, dim int) []float32 {
	hash := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32], hash[(idx+1)%32], hash[(idx+2)%32], hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
