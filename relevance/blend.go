// Package relevance ranks assembled passages against a query by blending
// a lexical BM25 signal with a pairwise cross-encoder signal. A passage
// weak on either signal is penalized harder than an average would.
package relevance

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// EPS keeps the product blend away from hard zeros and the min-max
// denominator away from division by zero.
const EPS = 1e-6

// PairScorer scores each (query, document) pair independently with a
// semantic relevance model.
type PairScorer interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

type Blender struct {
	scorer PairScorer
	logger *zap.Logger
}

func NewBlender(scorer PairScorer, logger *zap.Logger) *Blender {
	return &Blender{scorer: scorer, logger: logger}
}

// Score returns one combined relevance score per passage, in input
// order. Nothing is persisted; the BM25 index lives only for this call.
func (b *Blender) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	tokenized := make([][]string, len(passages))
	for i, p := range passages {
		tokenized[i] = strings.Fields(p)
	}
	lexical := newBM25(tokenized).Scores(strings.Fields(query))

	semantic, err := b.scorer.Rerank(ctx, query, passages)
	if err != nil {
		return nil, err
	}

	normLex := normalize(lexical)
	normSem := normalize(semantic)

	combined := make([]float64, len(passages))
	for i := range passages {
		combined[i] = (normSem[i] + EPS) * (normLex[i] + EPS)
	}
	return combined, nil
}

// normalize min-max scales scores into [0,1]. A vector whose entries are
// all equal carries no ordering signal and normalizes to all ones.
func normalize(scores []float64) []float64 {
	minVal, maxVal := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minVal {
			minVal = s
		}
		if s > maxVal {
			maxVal = s
		}
	}

	out := make([]float64, len(scores))
	if maxVal == minVal {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - minVal) / (maxVal - minVal + EPS)
	}
	return out
}
