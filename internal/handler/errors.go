package handler

import (
	"errors"
	"log"
	"net/http"

	"fitsearch/internal/model"
	"fitsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// ClarificationResponse is returned with 422 when a turn needs the user to clarify
type ClarificationResponse struct {
	Clarification *model.Clarification `json:"clarification"`
	Resolution    *model.Resolution    `json:"resolution,omitempty"`
}

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, res *model.Resolution, err error, action string) {
	if clarification, ok := service.Clarify(err); ok {
		c.JSON(http.StatusUnprocessableEntity, ClarificationResponse{
			Clarification: clarification,
			Resolution:    res,
		})
		return
	}
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found", "code": service.CodeSessionNotFound})
		return
	}
	log.Printf("❌ %s failed: %v", action, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed: " + err.Error()})
}
