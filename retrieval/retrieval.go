// Package retrieval implements the ask entry point: locate the sentences
// most similar to the question, flood-expand each into a passage, and
// return the passages ranked by blended relevance.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"docqa/database"
	apperrors "docqa/errors"
	"docqa/flood"
	"docqa/progress"
	"docqa/vectorstore"
)

// SentenceStore is the relational read path used at query time.
type SentenceStore interface {
	GetDocument(ctx context.Context, documentID string) (*database.Document, error)
	GetSentenceWindow(ctx context.Context, objectID string, lo, hi int) ([]database.Sentence, error)
}

// VectorSearch is the vector-index read path used at query time.
type VectorSearch interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, name string, embedding []float32, topK int) ([]vectorstore.ScoredPoint, error)
	RetrieveVectors(ctx context.Context, name string, ids []string) (map[string][]float32, error)
}

// Embedder embeds the query with the same model used at ingestion.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PassageScorer returns one combined relevance score per passage.
type PassageScorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Passage is a ranked context passage ready for a downstream generator.
type Passage struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type Retriever struct {
	store      SentenceStore
	index      VectorSearch
	embedder   Embedder
	scorer     PassageScorer
	expander   *flood.Expander
	topK       int
	windowSize int
	queryCache *lru.Cache
	logger     *zap.Logger
}

// New builds a Retriever. windowSize bounds the per-side sentence
// prefetch and should equal the flood engine's hard cap. cacheSize
// bounds the query-embedding LRU.
func New(store SentenceStore, index VectorSearch, embedder Embedder, scorer PassageScorer,
	expander *flood.Expander, topK, windowSize, cacheSize int, logger *zap.Logger) (*Retriever, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	if topK <= 0 {
		topK = 30
	}
	return &Retriever{
		store:      store,
		index:      index,
		embedder:   embedder,
		scorer:     scorer,
		expander:   expander,
		topK:       topK,
		windowSize: windowSize,
		queryCache: cache,
		logger:     logger,
	}, nil
}

// Ask runs the full retrieval pipeline for one question against one
// document. Anything unexpected is caught here, logged with full
// context, and reported as a generic error.
func (r *Retriever) Ask(ctx context.Context, documentID, question string, rep progress.Reporter) (passages []Passage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Retrieval panicked",
				zap.Any("panic", rec),
				zap.String("document_id", documentID))
			passages = nil
			err = errors.New("unknown error during retrieval")
		}
	}()

	documentID = strings.TrimSpace(documentID)
	question = strings.TrimSpace(question)
	if documentID == "" {
		return nil, apperrors.Invalidf("document_id cannot be empty")
	}
	if question == "" {
		return nil, apperrors.Invalidf("question cannot be empty")
	}
	if rep == nil {
		rep = progress.Nop{}
	}

	doc, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ProcessedObjectID == nil {
		return nil, fmt.Errorf("%w: document %s", apperrors.ErrNotProcessed, documentID)
	}
	objectID := *doc.ProcessedObjectID

	exists, err := r.index.CollectionExists(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: document %s has no vector partition", apperrors.ErrNotProcessed, documentID)
	}

	queryVec, err := r.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := r.index.Search(ctx, objectID, queryVec, r.topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []Passage{}, nil
	}

	texts := make([]string, 0, len(hits))
	for i, hit := range hits {
		passage, err := r.expandHit(ctx, objectID, hit)
		if err != nil {
			return nil, err
		}
		texts = append(texts, passage.Text)
		rep.Progress(i+1, len(hits), "Assembling passages")
	}

	scores, err := r.scorer.Score(ctx, question, texts)
	if err != nil {
		return nil, err
	}

	passages = make([]Passage, len(texts))
	for i, text := range texts {
		passages[i] = Passage{Text: text, Score: scores[i]}
	}
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages, nil
}

func (r *Retriever) embedQuery(ctx context.Context, question string) ([]float32, error) {
	if cached, ok := r.queryCache.Get(question); ok {
		return cached.([]float32), nil
	}
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	r.queryCache.Add(question, vec)
	return vec, nil
}

// expandHit prefetches the bounded sentence window around the seed in
// one relational query, pulls the window's embeddings from the vector
// index in one call, and runs the flood expansion.
func (r *Retriever) expandHit(ctx context.Context, objectID string, hit vectorstore.ScoredPoint) (flood.Passage, error) {
	seed := hit.Payload.SentenceIndex
	rows, err := r.store.GetSentenceWindow(ctx, objectID, seed-r.windowSize, seed+r.windowSize)
	if err != nil {
		return flood.Passage{}, err
	}

	refs := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.VectorRef != nil {
			refs = append(refs, *row.VectorRef)
		}
	}
	vectors, err := r.index.RetrieveVectors(ctx, objectID, refs)
	if err != nil {
		return flood.Passage{}, err
	}

	window := make(map[int]flood.Sentence, len(rows))
	for _, row := range rows {
		var embedding []float32
		if row.VectorRef != nil {
			embedding = vectors[*row.VectorRef]
		}
		window[row.Index] = flood.Sentence{
			Index:     row.Index,
			Text:      row.Text,
			Embedding: embedding,
		}
	}

	return r.expander.Expand(window, seed, hit.Embedding), nil
}
