// Package llmclient talks to the embedding and reranking model servers
// over their llama.cpp-style HTTP APIs.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa/config"
	apperrors "docqa/errors"
)

// Embedding request/response mirror llama.cpp's expected schema
type embeddingRequest struct {
	Content string `json:"content"`
}

type embeddingResponse []struct {
	Embedding [][]float32 `json:"embedding"`
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.ModelReqTimeout},
		logger:     logger,
	}
}

// Embed generates an embedding vector for the provided text using the
// configured embedding server.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{Content: text}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", strings.TrimRight(c.cfg.EmbeddingHost, "/"))
	bodyBytes, err := c.postWithRetry(ctx, url, jsonBody, "embedding")
	if err != nil {
		return nil, err
	}

	var er embeddingResponse
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("%w: decode embedding response: %v", apperrors.ErrModel, err)
	}
	if len(er) == 0 || len(er[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: embedding response was empty", apperrors.ErrModel)
	}
	return er[0].Embedding[0], nil
}

// EmbedBatch embeds each text in order. Calls are sequential; an
// ingestion run is a single unit of work without internal fan-out.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Rerank request/response follow the llama.cpp /v1/rerank schema.
type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores each (query, document) pair independently with the
// configured cross-encoder server, returning one score per document in
// input order.
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := rerankRequest{Query: query, Documents: documents}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/rerank", strings.TrimRight(c.cfg.RerankHost, "/"))
	bodyBytes, err := c.postWithRetry(ctx, url, jsonBody, "rerank")
	if err != nil {
		return nil, err
	}

	var rr rerankResponse
	if err := json.Unmarshal(bodyBytes, &rr); err != nil {
		return nil, fmt.Errorf("%w: decode rerank response: %v", apperrors.ErrModel, err)
	}
	if len(rr.Results) != len(documents) {
		return nil, fmt.Errorf("%w: rerank returned %d scores for %d documents",
			apperrors.ErrModel, len(rr.Results), len(documents))
	}

	scores := make([]float64, len(documents))
	for _, res := range rr.Results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, fmt.Errorf("%w: rerank result index %d out of range", apperrors.ErrModel, res.Index)
		}
		scores[res.Index] = res.RelevanceScore
	}
	return scores, nil
}

// postWithRetry issues the POST, retrying on transport errors and on 503
// (model still loading) with exponential backoff.
func (c *Client) postWithRetry(ctx context.Context, url string, jsonBody []byte, kind string) ([]byte, error) {
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create %s request: %w", kind, err)
		}
		req.Header.Set("Content-Type", "application/json")

		r, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			c.backoffSleep(attempt)
			continue
		}

		if r.StatusCode == http.StatusServiceUnavailable {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			c.logger.Warn("Model loading, retrying", zap.String("kind", kind))
			c.backoffSleep(attempt)
			continue
		}

		resp = r
		break
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: no response from %s server: %v", apperrors.ErrModel, kind, lastErr)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", apperrors.ErrModel, kind, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s server status %s: %s", apperrors.ErrModel, kind, resp.Status, string(bodyBytes))
	}
	return bodyBytes, nil
}

func (c *Client) backoffSleep(attempt int) {
	delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	time.Sleep(delay)
}
