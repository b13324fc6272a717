package handler

import (
	"net/http"

	"fitsearch/internal/model"
	"fitsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler exposes resolution and session state without touching the catalogue
type QueryHandler struct {
	engine *service.QueryEngine
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(engine *service.QueryEngine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// Resolve handles POST /api/v1/query
func (h *QueryHandler) Resolve(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	res, err := h.engine.Resolve(req.SessionID, req.Query)
	if err != nil {
		respondError(c, res, err, "Resolve")
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetSession handles GET /api/v1/sessions/:id
func (h *QueryHandler) GetSession(c *gin.Context) {
	sess, err := h.engine.Sessions().Get(c.Param("id"))
	if err != nil {
		respondError(c, nil, err, "Get session")
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ClearSession handles DELETE /api/v1/sessions/:id
func (h *QueryHandler) ClearSession(c *gin.Context) {
	if err := h.engine.Clear(c.Param("id")); err != nil {
		respondError(c, nil, err, "Clear session")
		return
	}
	c.Status(http.StatusNoContent)
}
