package feed

import (
	"math/rand/v2"

	"github.com/mmcdole/reel/internal/domain"
)

// Tag subset bounds, inclusive
const (
	minTags = 3
	maxTags = 5
)

// Enricher attaches mock tags to fetched records. Each record gets a random
// subset of the vocabulary, drawn again on every fetch, so tags carry no
// meaning about the video.
type Enricher struct {
	rng *rand.Rand
}

// NewEnricher creates an Enricher. A nil rng is seeded randomly.
func NewEnricher(rng *rand.Rand) *Enricher {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Enricher{rng: rng}
}

// Tags draws between 3 and 5 distinct entries of vocab. A vocabulary smaller
// than the drawn size is returned whole, shuffled.
func (e *Enricher) Tags(vocab []string) []string {
	vocab = distinct(vocab)
	if len(vocab) == 0 {
		return []string{}
	}

	n := minTags + e.rng.IntN(maxTags-minTags+1)
	if n > len(vocab) {
		n = len(vocab)
	}

	// Partial Fisher-Yates over the copy
	for i := 0; i < n; i++ {
		j := i + e.rng.IntN(len(vocab)-i)
		vocab[i], vocab[j] = vocab[j], vocab[i]
	}
	return vocab[:n:n]
}

// Enrich returns copies of records carrying fresh tags.
func (e *Enricher) Enrich(records []domain.VideoRecord, vocab []string) []domain.VideoRecord {
	out := make([]domain.VideoRecord, len(records))
	for i, r := range records {
		out[i] = r.WithTags(e.Tags(vocab))
	}
	return out
}

// distinct returns a new slice with duplicates and empty entries dropped
func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
