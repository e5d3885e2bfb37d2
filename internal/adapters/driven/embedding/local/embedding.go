// Package local provides a deterministic, dependency-free embedding
// service. It hashes token features into a fixed-width vector, which is
// enough for cosine retrieval over a small personal knowledge base and
// needs no external model server. It is the default provider and the one
// the tests run against.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the feature-hash vector width.
const DefaultDimensions = 256

// EmbeddingService embeds text by feature-hashing its tokens.
//
// The same text always produces the same vector, so index-time and
// query-time embeddings live in the same space without coordination.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a local embedder. dimensions <= 0 selects
// the default width.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dimensions)
	for _, token := range tokenise(text) {
		// Unigram plus character trigrams, so near-matches in wording
		// still land near each other.
		bump(vec, token, 1.0)
		for _, gram := range trigrams(token) {
			bump(vec, gram, 0.5)
		}
	}
	normalise(vec)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return "local-feature-hash"
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// bump adds weight at the token's hashed position, signed by a second
// hash bit to keep the expected dot product of unrelated texts near zero.
func bump(vec []float32, token string, weight float32) {
	h := fnv.New32a()
	h.Write([]byte(token))
	sum := h.Sum32()
	idx := int(sum % uint32(len(vec)))
	if sum&0x80000000 != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenise lowercases and splits on anything that is not a letter or digit.
func tokenise(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// trigrams returns the character trigrams of a token.
func trigrams(token string) []string {
	runes := []rune(token)
	if len(runes) < 3 {
		return nil
	}
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}

// normalise scales the vector to unit length.
func normalise(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
