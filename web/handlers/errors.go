package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "docqa/errors"
)

// respondWithError maps the pipeline's error taxonomy onto HTTP statuses.
// Validation and precondition failures carry their own message; storage,
// model and unknown failures are logged in full and reported generically.
func respondWithError(c *gin.Context, err error, logger *zap.Logger, fields ...zap.Field) {
	switch {
	case apperrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case apperrors.IsNotProcessed(err):
		c.JSON(http.StatusConflict, gin.H{"error": "Document has not been processed yet"})
	default:
		if logger != nil {
			logger.Error("Request failed", append(fields, zap.Error(err))...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
	}
}
