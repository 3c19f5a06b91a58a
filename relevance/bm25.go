package relevance

import "math"

// Okapi BM25 over an ephemeral corpus: the index is built per query over
// exactly the passage set being ranked, then discarded.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

type bm25 struct {
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

func newBM25(corpus [][]string) *bm25 {
	m := &bm25{
		termFreqs: make([]map[string]int, len(corpus)),
		docLens:   make([]int, len(corpus)),
		idf:       make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range corpus {
		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		for term := range freqs {
			docFreq[term]++
		}
		m.termFreqs[i] = freqs
		m.docLens[i] = len(doc)
		totalLen += len(doc)
	}
	if len(corpus) > 0 {
		m.avgDocLen = float64(totalLen) / float64(len(corpus))
	}

	// Probabilistic idf can go negative for terms in most documents;
	// those are floored to a fraction of the average idf instead.
	n := float64(len(corpus))
	var idfSum float64
	var negative []string
	for term, df := range docFreq {
		idf := math.Log((n - float64(df) + 0.5) / (float64(df) + 0.5))
		m.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(docFreq) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(docFreq))
		for _, term := range negative {
			m.idf[term] = floor
		}
	}

	return m
}

// Scores returns one BM25 score per corpus document for the tokenized
// query, in corpus order.
func (m *bm25) Scores(query []string) []float64 {
	scores := make([]float64, len(m.termFreqs))
	for i, freqs := range m.termFreqs {
		var score float64
		lenNorm := bm25K1 * (1 - bm25B + bm25B*float64(m.docLens[i])/m.avgDocLen)
		for _, term := range query {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			score += m.idf[term] * tf * (bm25K1 + 1) / (tf + lenNorm)
		}
		scores[i] = score
	}
	return scores
}
