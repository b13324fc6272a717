package handler

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"fitsearch/internal/model"
	"fitsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler records what users do with search results
type FeedbackHandler struct {
	searchService *service.SearchService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(searchService *service.SearchService) *FeedbackHandler {
	return &FeedbackHandler{searchService: searchService}
}

func actionList() string {
	names := make([]string, len(model.FeedbackActions))
	for i, a := range model.FeedbackActions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// Submit handles POST /api/v1/feedback. A session id ties the feedback to the
// search that session last ran; feedback on any other search is rejected.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if !slices.Contains(model.FeedbackActions, req.Action) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: " + actionList()})
		return
	}

	err := h.searchService.LogFeedback(c.Request.Context(), req)
	if errors.Is(err, service.ErrUnknownSearch) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Search " + req.SearchID + " is not the session's latest", "code": service.CodeUnknownSearch})
		return
	}
	if err != nil {
		respondError(c, nil, err, "Log feedback")
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged for " + req.InstallationID,
	})
}
