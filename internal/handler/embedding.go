package handler

import (
	"fmt"
	"net/http"

	"fitsearch/internal/model"
	"fitsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	searchService *service.SearchService
	dimensions    int
}

// NewEmbeddingHandler creates a new embedding handler. dimensions <= 0 skips the length check.
func NewEmbeddingHandler(searchService *service.SearchService, dimensions int) *EmbeddingHandler {
	return &EmbeddingHandler{
		searchService: searchService,
		dimensions:    dimensions,
	}
}

// BatchUpdate handles POST /api/v1/embeddings/batch. Items may carry a vector,
// or only text to be embedded server side.
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	for i, item := range req.Embeddings {
		if item.InstallationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Missing installation_id at index %d", i)})
			return
		}
		if len(item.Embedding) == 0 && item.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Embedding or text required at index %d", i)})
			return
		}
	}

	if err := h.searchService.EmbedTexts(c.Request.Context(), req.Embeddings); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to embed texts: " + err.Error()})
		return
	}

	if h.dimensions > 0 {
		for i, item := range req.Embeddings {
			if len(item.Embedding) != h.dimensions {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("Invalid embedding dimension at index %d, expected %d", i, h.dimensions),
				})
				return
			}
		}
	}

	success, errors := h.searchService.UpdateEmbeddings(c.Request.Context(), req.Embeddings)

	response := model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  errors,
	}

	if len(errors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
