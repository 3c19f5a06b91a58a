// Package segment splits normalized document text into an ordered
// sequence of sentences, with paragraph boundaries encoded as explicit
// blank markers.
package segment

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

type Segmenter struct {
	logger *zap.Logger
}

func NewSegmenter(logger *zap.Logger) *Segmenter {
	return &Segmenter{logger: logger}
}

// Split returns the flat sentence sequence for the document. Paragraphs
// are chunks separated by a double newline; after each paragraph's
// sentences one empty string is appended, except after the last
// paragraph. The slice positions become the sentence indices.
func (s *Segmenter) Split(text string) []string {
	var sentences []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		sentences = append(sentences, s.segmentChunk(chunk)...)
		sentences = append(sentences, "")
	}
	if len(sentences) > 0 {
		sentences = sentences[:len(sentences)-1] // no marker after the last paragraph
	}
	return sentences
}

func (s *Segmenter) segmentChunk(chunk string) []string {
	doc, err := prose.NewDocument(chunk,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Sentence detection failed, keeping paragraph whole", zap.Error(err))
		}
		return []string{chunk}
	}

	var out []string
	for _, sent := range doc.Sentences() {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{chunk}
	}
	return out
}

// CountBlank returns the number of paragraph-boundary markers in a
// sentence sequence.
func CountBlank(sentences []string) int {
	n := 0
	for _, s := range sentences {
		if s == "" {
			n++
		}
	}
	return n
}
