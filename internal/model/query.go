package model

// QueryRequest is one conversational turn addressed to the engine
type QueryRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

// Resolution is what the engine returns for a turn. Intent is always populated,
// even when Filter is nil because the turn failed.
type Resolution struct {
	SessionID     string        `json:"session_id"`
	Turn          int           `json:"turn"`
	Intent        Intent        `json:"intent"`
	Filter        *FilterSpec   `json:"filter,omitempty"`
	ExecutionMode ExecutionMode `json:"execution_mode"`
	// ResultHandle is the previous result set, passed through for follow-ups
	ResultHandle *ResultHandle `json:"result_handle,omitempty"`
}

// Clarification is the body returned when the engine refuses to guess
type Clarification struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Token       string   `json:"token,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}

// SearchRequest represents a search query request
type SearchRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	Query     string         `json:"query"`
	Options   *SearchOptions `json:"options,omitempty"`
}

// SearchOptions represents search options
type SearchOptions struct {
	TopK     int  `json:"top_k"`
	Offset   int  `json:"offset"`
	Semantic bool `json:"semantic"`
}

// SearchResponse represents a search result response
type SearchResponse struct {
	SearchID   string                     `json:"search_id"`
	Resolution *Resolution                `json:"resolution"`
	Results    []InstallationSearchResult `json:"results,omitempty"`
	Aggregate  *AggregateResult           `json:"aggregate,omitempty"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	TotalPages int                        `json:"total_pages"`
	HasMore    bool                       `json:"has_more"`
	// Relaxed is true when a target capacity matched nothing and the range was dropped
	Relaxed bool  `json:"relaxed,omitempty"`
	Took    int64 `json:"took_ms"` // Response time in milliseconds
}

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem represents a single embedding with installation info
type EmbeddingItem struct {
	InstallationID string    `json:"installation_id" binding:"required"`
	Embedding      []float32 `json:"embedding,omitempty"`
	Text           string    `json:"text,omitempty"` // The text used to generate embedding
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// FeedbackRequest represents user feedback/action
type FeedbackRequest struct {
	SessionID      string         `json:"session_id,omitempty"`
	SearchID       string         `json:"search_id" binding:"required"`
	InstallationID string         `json:"installation_id" binding:"required"`
	Action         FeedbackAction `json:"action" binding:"required"`
}

// FeedbackAction is what the user did with a result
type FeedbackAction string

const (
	FeedbackClick       FeedbackAction = "click"
	FeedbackContact     FeedbackAction = "contact"
	FeedbackViewDetails FeedbackAction = "view_details"
	FeedbackExport      FeedbackAction = "export"
)

// FeedbackActions lists the accepted actions in display order
var FeedbackActions = []FeedbackAction{FeedbackClick, FeedbackContact, FeedbackViewDetails, FeedbackExport}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
