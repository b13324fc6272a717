package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Query     *QueryHandler
	Search    *SearchHandler
	Embedding *EmbeddingHandler
	Feedback  *FeedbackHandler
}

// RegisterRoutes mounts the v1 API on router
func RegisterRoutes(router *gin.Engine, h Handlers) {
	apiV1 := router.Group("/api/v1")
	{
		// Resolution and conversation state
		apiV1.POST("/query", h.Query.Resolve)
		apiV1.GET("/sessions/:id", h.Query.GetSession)
		apiV1.DELETE("/sessions/:id", h.Query.ClearSession)

		// Search endpoints
		apiV1.POST("/search", h.Search.Search)
		apiV1.POST("/search/stream", h.Search.SearchStream)
		apiV1.GET("/installations/:id", h.Search.GetInstallation)

		// Embedding endpoints
		apiV1.POST("/embeddings/batch", h.Embedding.BatchUpdate)

		// Feedback endpoint
		apiV1.POST("/feedback", h.Feedback.Submit)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(404, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(404, gin.H{"error": "Not found"})
	})
}
