// Package ingest implements the ingestion entry point: segment a
// document's processed text into sentence units, embed the non-blank
// ones, and persist the sequence consistently across the relational
// store and the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/database"
	apperrors "docqa/errors"
	"docqa/preprocess"
	"docqa/progress"
	"docqa/segment"
	"docqa/vectorstore"
)

// DocumentStore is the relational side of the dual store.
type DocumentStore interface {
	GetDocument(ctx context.Context, documentID string) (*database.Document, error)
	ReplaceSentences(ctx context.Context, objectID string, rows []database.Sentence) error
}

// VectorIndex is the similarity-index side of the dual store.
type VectorIndex interface {
	RecreateCollection(ctx context.Context, name string, dims int) error
	Upsert(ctx context.Context, name string, points []vectorstore.Point) error
}

// Embedder maps a batch of sentence texts to fixed-dimension vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// TextSource resolves a processed-object id to its text.
type TextSource interface {
	ReadObject(objectID string) (string, error)
}

// Splitter produces the flat sentence sequence for a document.
type Splitter interface {
	Split(text string) []string
}

// Result is the ingestion summary returned to the caller.
type Result struct {
	NumEmbeddedSentences int `json:"num_embedded_sentences"`
	NumBlankLines        int `json:"num_blank_lines"`
	TotalLineCount       int `json:"total_line_count"`
}

type Ingestor struct {
	store     DocumentStore
	source    TextSource
	index     VectorIndex
	embedder  Embedder
	splitter  Splitter
	batchSize int
	logger    *zap.Logger
}

func New(store DocumentStore, source TextSource, index VectorIndex, embedder Embedder, splitter Splitter, batchSize int, logger *zap.Logger) *Ingestor {
	if batchSize <= 0 {
		batchSize = 128
	}
	return &Ingestor{
		store:     store,
		source:    source,
		index:     index,
		embedder:  embedder,
		splitter:  splitter,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run ingests the document: read processed text, segment, embed, then
// replace the relational rows in one transaction before recreating the
// vector partition and upserting entries in fixed-size batches. Running
// it again for the same document fully overwrites the prior state.
//
// The caller must ensure no concurrent ingestion of the same document.
func (ing *Ingestor) Run(ctx context.Context, documentID string, rep progress.Reporter) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ing.logger.Error("Ingestion panicked",
				zap.Any("panic", rec),
				zap.String("document_id", documentID))
			result = nil
			err = errors.New("unknown error during ingestion")
		}
	}()

	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, apperrors.Invalidf("document_id cannot be empty")
	}
	if rep == nil {
		rep = progress.Nop{}
	}

	doc, err := ing.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ProcessedObjectID == nil {
		return nil, fmt.Errorf("%w: document %s has not been preprocessed", apperrors.ErrNotProcessed, documentID)
	}
	objectID := *doc.ProcessedObjectID

	text, err := ing.source.ReadObject(objectID)
	if err != nil {
		return nil, err
	}

	// Re-cleaning normalized text is a no-op, so raw uploads and
	// preprocessed objects take the same path.
	sentences := ing.splitter.Split(preprocess.Clean(text))
	if len(sentences) == 0 {
		return nil, apperrors.Invalidf("document %s has no sentences", documentID)
	}

	embedTexts := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if s != "" {
			embedTexts = append(embedTexts, s)
		}
	}
	totalLineCount := len(sentences)
	numBlankLines := segment.CountBlank(sentences)

	rep.Update("Embedding sentences")
	embeddings, err := ing.embedder.EmbedBatch(ctx, embedTexts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(embedTexts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d sentences",
			apperrors.ErrModel, len(embeddings), len(embedTexts))
	}
	dims := len(embeddings[0])

	rep.Progress(0, totalLineCount, "")

	rows := make([]database.Sentence, 0, len(sentences))
	points := make([]vectorstore.Point, 0, len(embedTexts))
	embedIdx := 0
	for i, sent := range sentences {
		var vectorRef *string
		if sent != "" {
			ref := uuid.New().String()
			vectorRef = &ref
			points = append(points, vectorstore.Point{
				ID:        ref,
				Embedding: embeddings[embedIdx],
				Payload: vectorstore.Payload{
					ObjectID:      objectID,
					SentenceIndex: i,
					SentenceText:  sent,
					Title:         doc.Title,
					Author:        doc.Author,
				},
			})
			embedIdx++
		}
		rows = append(rows, database.Sentence{
			ObjectID:  objectID,
			Index:     i,
			Text:      sent,
			VectorRef: vectorRef,
		})
		rep.Progress(i+1, totalLineCount, "")
	}

	// Relational writes commit first; a failure here leaves the vector
	// partition untouched. The partition is then rebuilt from empty, so a
	// half-finished previous run cannot leak stale entries.
	if err := ing.store.ReplaceSentences(ctx, objectID, rows); err != nil {
		return nil, err
	}
	if err := ing.index.RecreateCollection(ctx, objectID, dims); err != nil {
		return nil, err
	}
	for start := 0; start < len(points); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := ing.index.Upsert(ctx, objectID, points[start:end]); err != nil {
			return nil, err
		}
	}

	ing.logger.Info("Document ingested",
		zap.String("document_id", documentID),
		zap.String("object_id", objectID),
		zap.Int("embedded_sentences", len(embedTexts)),
		zap.Int("blank_lines", numBlankLines),
		zap.Int("total_lines", totalLineCount))

	return &Result{
		NumEmbeddedSentences: len(embedTexts),
		NumBlankLines:        numBlankLines,
		TotalLineCount:       totalLineCount,
	}, nil
}
