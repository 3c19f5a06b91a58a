package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/ingest"
	"docqa/progress"
	"docqa/retrieval"
)

// IngestRunner runs the ingestion unit of work.
type IngestRunner interface {
	Run(ctx context.Context, documentID string, rep progress.Reporter) (*ingest.Result, error)
}

// AskRunner runs the retrieval unit of work.
type AskRunner interface {
	Ask(ctx context.Context, documentID, question string, rep progress.Reporter) ([]retrieval.Passage, error)
}

// ReporterFactory builds the progress reporter for a task id.
type ReporterFactory func(taskID string) progress.Reporter

type DocumentHandler struct {
	ingestor  IngestRunner
	retriever AskRunner
	reporters ReporterFactory
	logger    *zap.Logger
}

func NewDocumentHandler(ingestor IngestRunner, retriever AskRunner, reporters ReporterFactory, logger *zap.Logger) *DocumentHandler {
	if reporters == nil {
		reporters = func(string) progress.Reporter { return progress.Nop{} }
	}
	return &DocumentHandler{
		ingestor:  ingestor,
		retriever: retriever,
		reporters: reporters,
		logger:    logger,
	}
}

// Ingest handles POST /documents/:id/ingest. The unit of work runs on
// this request's goroutine; progress streams out on the task's subjects.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	documentID := c.Param("id")
	taskID := uuid.New().String()

	result, err := h.ingestor.Run(c.Request.Context(), documentID, h.reporters(taskID))
	if err != nil {
		respondWithError(c, err, h.logger,
			zap.String("document_id", documentID),
			zap.String("task_id", taskID))
		return
	}

	c.JSON(200, gin.H{"task_id": taskID, "result": result})
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /documents/:id/ask.
func (h *DocumentHandler) Ask(c *gin.Context) {
	documentID := c.Param("id")

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "request body must be JSON with a question field"})
		return
	}

	taskID := uuid.New().String()
	passages, err := h.retriever.Ask(c.Request.Context(), documentID, req.Question, h.reporters(taskID))
	if err != nil {
		respondWithError(c, err, h.logger,
			zap.String("document_id", documentID),
			zap.String("task_id", taskID))
		return
	}

	c.JSON(200, gin.H{"task_id": taskID, "passages": passages})
}
