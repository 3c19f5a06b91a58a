package retrieval

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"docqa/database"
	apperrors "docqa/errors"
	"docqa/flood"
	"docqa/vectorstore"
)

type fakeSentenceStore struct {
	docs map[string]*database.Document
	rows map[string][]database.Sentence
}

func (f *fakeSentenceStore) GetDocument(_ context.Context, id string) (*database.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", apperrors.ErrNotFound, id)
	}
	return doc, nil
}

func (f *fakeSentenceStore) GetSentenceWindow(_ context.Context, objectID string, lo, hi int) ([]database.Sentence, error) {
	if lo < 0 {
		lo = 0
	}
	var out []database.Sentence
	for _, row := range f.rows[objectID] {
		if row.Index >= lo && row.Index <= hi {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeVectorSearch struct {
	collections map[string]bool
	hits        []vectorstore.ScoredPoint
	vectors     map[string][]float32
}

func (f *fakeVectorSearch) CollectionExists(_ context.Context, name string) (bool, error) {
	return f.collections[name], nil
}

func (f *fakeVectorSearch) Search(_ context.Context, _ string, _ []float32, topK int) ([]vectorstore.ScoredPoint, error) {
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeVectorSearch) RetrieveVectors(_ context.Context, _ string, ids []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(ids))
	for _, id := range ids {
		if v, ok := f.vectors[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type countingEmbedder struct{ calls int }

func (c *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	c.calls++
	return []float32{1, 0, 0}, nil
}

type fakeScorer struct {
	scores []float64
	err    error
}

func (f *fakeScorer) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(passages))
	copy(out, f.scores)
	return out, nil
}

type phaseReporter struct {
	ticks int
	name  string
}

func (p *phaseReporter) Progress(_, _ int, name string) { p.ticks++; p.name = name }
func (p *phaseReporter) Update(string)                  {}
func (p *phaseReporter) Warning(string)                 {}

func objPtr(s string) *string { return &s }

// deterministicExpander always accepts until the hard cap, so passage
// bounds depend only on the window contents.
func deterministicExpander(target, max int) *flood.Expander {
	return flood.NewExpander(flood.Config{
		TargetSize:      target,
		MaxSize:         max,
		SizePower:       0,
		SimilarityPower: 0,
	}, rand.New(rand.NewSource(1)))
}

func testRows(objectID string, texts []string) ([]database.Sentence, map[string][]float32) {
	rows := make([]database.Sentence, len(texts))
	vectors := make(map[string][]float32)
	for i, text := range texts {
		var ref *string
		if text != "" {
			r := fmt.Sprintf("ref-%d", i)
			ref = &r
			vectors[r] = []float32{1, 0, 0}
		}
		rows[i] = database.Sentence{ObjectID: objectID, Index: i, Text: text, VectorRef: ref}
	}
	return rows, vectors
}

func newTestRetriever(t *testing.T, store *fakeSentenceStore, index *fakeVectorSearch, scorer PassageScorer) *Retriever {
	t.Helper()
	r, err := New(store, index, &countingEmbedder{}, scorer,
		deterministicExpander(2, 3), 10, 3, 8, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestAskValidation(t *testing.T) {
	r := newTestRetriever(t, &fakeSentenceStore{}, &fakeVectorSearch{}, &fakeScorer{})

	if _, err := r.Ask(context.Background(), "", "why", nil); !apperrors.IsInvalidInput(err) {
		t.Errorf("empty document_id: err = %v, want invalid input", err)
	}
	if _, err := r.Ask(context.Background(), "doc-1", "   ", nil); !apperrors.IsInvalidInput(err) {
		t.Errorf("blank question: err = %v, want invalid input", err)
	}
}

func TestAskDocumentNotFound(t *testing.T) {
	r := newTestRetriever(t, &fakeSentenceStore{docs: map[string]*database.Document{}}, &fakeVectorSearch{}, &fakeScorer{})

	if _, err := r.Ask(context.Background(), "missing", "why", nil); !apperrors.IsNotFound(err) {
		t.Errorf("unknown document: err = %v, want not found", err)
	}
}

func TestAskDocumentNotProcessed(t *testing.T) {
	store := &fakeSentenceStore{docs: map[string]*database.Document{
		"no-object":    {ID: "no-object"},
		"no-partition": {ID: "no-partition", ProcessedObjectID: objPtr("obj-x")},
	}}
	r := newTestRetriever(t, store, &fakeVectorSearch{collections: map[string]bool{}}, &fakeScorer{})

	if _, err := r.Ask(context.Background(), "no-object", "why", nil); !apperrors.IsNotProcessed(err) {
		t.Errorf("document without object: err = %v, want not processed", err)
	}
	if _, err := r.Ask(context.Background(), "no-partition", "why", nil); !apperrors.IsNotProcessed(err) {
		t.Errorf("document without partition: err = %v, want not processed", err)
	}
}

func TestAskRanksPassagesByScore(t *testing.T) {
	texts := []string{
		"Alpha begins the tale.",
		"Beta continues it.",
		"Gamma carries on.",
		"Delta nears the close.",
		"Epsilon ends the tale.",
	}
	rows, vectors := testRows("obj-1", texts)
	store := &fakeSentenceStore{
		docs: map[string]*database.Document{
			"doc-1": {ID: "doc-1", ProcessedObjectID: objPtr("obj-1")},
		},
		rows: map[string][]database.Sentence{"obj-1": rows},
	}
	index := &fakeVectorSearch{
		collections: map[string]bool{"obj-1": true},
		vectors:     vectors,
		hits: []vectorstore.ScoredPoint{
			{ID: "ref-0", Embedding: vectors["ref-0"], Payload: vectorstore.Payload{ObjectID: "obj-1", SentenceIndex: 0, SentenceText: texts[0]}},
			{ID: "ref-4", Embedding: vectors["ref-4"], Payload: vectorstore.Payload{ObjectID: "obj-1", SentenceIndex: 4, SentenceText: texts[4]}},
		},
	}
	r := newTestRetriever(t, store, index, &fakeScorer{scores: []float64{0.2, 0.9}})

	rep := &phaseReporter{}
	passages, err := r.Ask(context.Background(), "doc-1", "how does the tale end?", rep)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}

	if len(passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(passages))
	}
	if passages[0].Score != 0.9 || passages[1].Score != 0.2 {
		t.Errorf("scores = [%v %v], want descending [0.9 0.2]", passages[0].Score, passages[1].Score)
	}
	for i, p := range passages {
		if p.Text == "" {
			t.Errorf("passage %d has empty text", i)
		}
	}

	if rep.ticks != 2 || rep.name != "Assembling passages" {
		t.Errorf("progress = %d ticks named %q, want 2 ticks in assembly phase", rep.ticks, rep.name)
	}
}

func TestAskNoHitsReturnsEmpty(t *testing.T) {
	store := &fakeSentenceStore{docs: map[string]*database.Document{
		"doc-1": {ID: "doc-1", ProcessedObjectID: objPtr("obj-1")},
	}}
	index := &fakeVectorSearch{collections: map[string]bool{"obj-1": true}}
	r := newTestRetriever(t, store, index, &fakeScorer{})

	passages, err := r.Ask(context.Background(), "doc-1", "why", nil)
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	if passages == nil || len(passages) != 0 {
		t.Errorf("passages = %v, want empty non-nil slice", passages)
	}
}

func TestAskCachesQueryEmbeddings(t *testing.T) {
	store := &fakeSentenceStore{docs: map[string]*database.Document{
		"doc-1": {ID: "doc-1", ProcessedObjectID: objPtr("obj-1")},
	}}
	index := &fakeVectorSearch{collections: map[string]bool{"obj-1": true}}
	embedder := &countingEmbedder{}
	r, err := New(store, index, embedder, &fakeScorer{},
		deterministicExpander(2, 3), 10, 3, 8, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := r.Ask(context.Background(), "doc-1", "same question", nil); err != nil {
			t.Fatalf("Ask() #%d error: %v", i+1, err)
		}
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times for a repeated question, want 1", embedder.calls)
	}
}

func TestAskScorerErrorPropagates(t *testing.T) {
	texts := []string{"Only sentence here."}
	rows, vectors := testRows("obj-1", texts)
	store := &fakeSentenceStore{
		docs: map[string]*database.Document{
			"doc-1": {ID: "doc-1", ProcessedObjectID: objPtr("obj-1")},
		},
		rows: map[string][]database.Sentence{"obj-1": rows},
	}
	index := &fakeVectorSearch{
		collections: map[string]bool{"obj-1": true},
		vectors:     vectors,
		hits: []vectorstore.ScoredPoint{
			{ID: "ref-0", Embedding: vectors["ref-0"], Payload: vectorstore.Payload{SentenceIndex: 0, SentenceText: texts[0]}},
		},
	}
	scoreErr := fmt.Errorf("%w: rerank service unreachable", apperrors.ErrModel)
	r := newTestRetriever(t, store, index, &fakeScorer{err: scoreErr})

	if _, err := r.Ask(context.Background(), "doc-1", "why", nil); !apperrors.IsModel(err) {
		t.Errorf("scorer failure: err = %v, want model error", err)
	}
}

func TestAskRecoversFromPanic(t *testing.T) {
	store := &fakeSentenceStore{docs: map[string]*database.Document{
		"doc-1": {ID: "doc-1", ProcessedObjectID: objPtr("obj-1")},
	}}
	index := &fakeVectorSearch{
		collections: map[string]bool{"obj-1": true},
		hits: []vectorstore.ScoredPoint{
			{ID: "ref-0", Payload: vectorstore.Payload{SentenceIndex: 0}},
		},
	}
	// nil expander makes expandHit dereference nil, exercising the
	// recover path.
	r, err := New(store, index, &countingEmbedder{}, &fakeScorer{},
		nil, 10, 3, 8, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	passages, err := r.Ask(context.Background(), "doc-1", "why", nil)
	if err == nil {
		t.Fatal("expected a generic error from the recovered panic")
	}
	if passages != nil {
		t.Errorf("passages = %v, want nil after panic", passages)
	}
	if apperrors.IsInvalidInput(err) || apperrors.IsNotFound(err) || apperrors.IsNotProcessed(err) {
		t.Errorf("recovered panic must not map to a client error, got %v", err)
	}
}
