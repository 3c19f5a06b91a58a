package vectorstore

// Payload mirrors the relational sentence row into the vector index so
// search hits are self-describing.
type Payload struct {
	ObjectID      string
	SentenceIndex int
	SentenceText  string
	Title         string
	Author        string
}

// Point is a single vector entry keyed by its vector reference.
type Point struct {
	ID        string
	Embedding []float32
	Payload   Payload
}

// ScoredPoint is a similarity search hit, carrying its own embedding.
type ScoredPoint struct {
	ID        string
	Score     float32
	Embedding []float32
	Payload   Payload
}
