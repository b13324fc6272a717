package handler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"fitsearch/internal/model"
	"fitsearch/internal/service"

	"github.com/gin-gonic/gin"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
	defaultLimit  int
	maxLimit      int
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService, defaultLimit, maxLimit int) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
	}
}

func (h *SearchHandler) normalizeOptions(req *model.SearchRequest) {
	if req.Options == nil {
		req.Options = &model.SearchOptions{
			TopK:     h.defaultLimit,
			Offset:   0,
			Semantic: true,
		}
		return
	}
	if req.Options.TopK <= 0 {
		req.Options.TopK = h.defaultLimit
	}
	if req.Options.TopK > h.maxLimit {
		req.Options.TopK = h.maxLimit
	}
	if req.Options.Offset < 0 {
		req.Options.Offset = 0
	}
}

// Search handles POST /api/v1/search. Export results are rendered as CSV when
// the client asks for it with ?format=csv or Accept: text/csv.
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.normalizeOptions(&req)

	response, err := h.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		var res *model.Resolution
		if response != nil {
			res = response.Resolution
		}
		respondError(c, res, err, "Search")
		return
	}

	if wantsCSV(c) && response.Resolution.ExecutionMode.Kind == model.ModeFullScanExport {
		writeCSV(c, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SearchStream handles POST /api/v1/search/stream - SSE streaming search
func (h *SearchHandler) SearchStream(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.normalizeOptions(&req)

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"query": req.Query, "session_id": req.SessionID})
	flusher.Flush()

	response, err := h.searchService.SearchStream(c.Request.Context(), &req, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})

	if err != nil {
		if clarification, ok := service.Clarify(err); ok {
			sendSSE(c, "clarification", clarification)
		} else {
			sendSSE(c, "error", map[string]any{"error": err.Error()})
		}
		flusher.Flush()
		return
	}

	sendSSE(c, "results", response)
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}

// GetInstallation handles GET /api/v1/installations/:id
func (h *SearchHandler) GetInstallation(c *gin.Context) {
	installationID := strings.TrimSpace(c.Param("id"))
	if installationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installation ID"})
		return
	}

	installation, err := h.searchService.GetInstallation(c.Request.Context(), installationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get installation: " + err.Error()})
		return
	}

	if installation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Installation not found"})
		return
	}

	c.JSON(http.StatusOK, installation)
}

func wantsCSV(c *gin.Context) bool {
	if strings.EqualFold(c.Query("format"), "csv") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/csv")
}

var csvHeader = []string{
	"installation_id", "name", "technology", "capacity_kw", "postcode",
	"latitude", "longitude", "years_remaining", "window",
}

// writeCSV renders export rows in the catalogue's order
func writeCSV(c *gin.Context, response *model.SearchResponse) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=installations-%s.csv", response.SearchID))
	c.Status(http.StatusOK)

	if err := writeInstallationsCSV(c.Writer, response.Results); err != nil {
		log.Printf("❌ CSV export %s failed: %v", response.SearchID, err)
	}
}

func writeInstallationsCSV(out io.Writer, results []model.InstallationSearchResult) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		name := ""
		if r.Name != nil {
			name = *r.Name
		}
		err := w.Write([]string{
			r.InstallationID,
			name,
			string(r.Technology),
			strconv.FormatFloat(r.CapacityKW, 'f', -1, 64),
			r.Postcode,
			formatOptionalFloat(r.Latitude),
			formatOptionalFloat(r.Longitude),
			strconv.FormatFloat(r.YearsRemaining, 'f', 2, 64),
			string(r.Window),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
