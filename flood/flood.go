// Package flood grows a single matched sentence into a passage by
// expanding bidirectionally through its neighbors. Each step continues
// with a probability shaped by how large the passage already is and how
// semantically continuous the next sentence looks, so passages end up
// paragraph-sized and topically coherent rather than fixed-width.
package flood

import (
	"math"
	"math/rand"
	"strings"
)

// Config holds the stopping-probability model's knobs. TargetSize is the
// soft sentence-count target, MaxSize the hard cap; the powers shape the
// two probability factors.
type Config struct {
	TargetSize      int
	MaxSize         int
	SizePower       float64
	SimilarityPower float64
}

// Sentence is one pre-fetched sentence unit. Embedding is nil for
// paragraph-boundary markers.
type Sentence struct {
	Index     int
	Text      string
	Embedding []float32
}

// Passage is the expansion result: a contiguous index range and its
// assembled text.
type Passage struct {
	Lo   int
	Hi   int
	Size int
	Text string
}

// Expander runs flood expansions. The rand source is injected so
// expansions are reproducible under test.
type Expander struct {
	cfg Config
	rng *rand.Rand
}

func NewExpander(cfg Config, rng *rand.Rand) *Expander {
	return &Expander{cfg: cfg, rng: rng}
}

// wavefront is one direction of growth. next is the index it will
// attempt; ref is the embedding the candidate is compared against.
type wavefront struct {
	next    int
	step    int
	ref     []float32
	stopped bool
}

// Expand grows the passage from the seed sentence. window maps sentence
// index to its pre-fetched record; an index absent from the window (edge
// of the pre-fetch or of the document) is a normal stop, not an error.
func (e *Expander) Expand(window map[int]Sentence, seedIndex int, seedEmbedding []float32) Passage {
	lo, hi := seedIndex, seedIndex
	included := 1

	up := &wavefront{next: seedIndex - 1, step: -1, ref: seedEmbedding}
	down := &wavefront{next: seedIndex + 1, step: 1, ref: seedEmbedding}

	for (!up.stopped || !down.stopped) && included < e.cfg.MaxSize {
		for _, wf := range []*wavefront{up, down} {
			if wf.stopped {
				continue
			}
			cand, ok := window[wf.next]
			if !ok {
				wf.stopped = true
				continue
			}

			sim := cosineSimilarity(wf.ref, cand.Embedding)
			p := e.continueProbability(included, sim)
			if e.rng.Float64() <= p {
				included++
				if wf.step < 0 {
					lo = cand.Index
				} else {
					hi = cand.Index
				}
				// The reference follows the accepted candidate; a blank
				// marker's nil embedding makes the next comparison neutral.
				wf.ref = cand.Embedding
				wf.next += wf.step
				if included >= e.cfg.MaxSize {
					break
				}
			} else {
				wf.stopped = true
			}
		}
	}

	return Passage{Lo: lo, Hi: hi, Size: included, Text: assemble(window, lo, hi)}
}

func (e *Expander) continueProbability(included int, similarity float64) float64 {
	if included >= e.cfg.MaxSize {
		return 0
	}
	sizeRatio := 1 - float64(included)/float64(e.cfg.TargetSize)
	sizeFactor := math.Pow(clamp01(sizeRatio), e.cfg.SizePower)
	continuityFactor := math.Pow((1+similarity)/2, e.cfg.SimilarityPower)
	return sizeFactor * continuityFactor
}

func assemble(window map[int]Sentence, lo, hi int) string {
	lines := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		lines = append(lines, window[i].Text)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// cosineSimilarity treats a missing vector on either side as exactly 0:
// neutral, neither similar nor dissimilar.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
