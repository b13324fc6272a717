package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"fitsearch/internal/model"
	"fitsearch/internal/repository"
	"fitsearch/internal/utils"

	"github.com/google/uuid"
)

// SearchConfig bounds what a single search may return
type SearchConfig struct {
	DefaultTopK   int
	MaxTopK       int
	MaxExportRows int
}

// SearchService executes resolved filters against the catalogue and records
// the result set on the session so follow-ups can refer back to it.
type SearchService struct {
	engine    *QueryEngine
	catalogue repository.Catalogue
	ranker    *Ranker
	embedder  Embedder
	cfg       SearchConfig
}

// NewSearchService creates a new search service. embedder may be nil.
func NewSearchService(
	engine *QueryEngine,
	catalogue repository.Catalogue,
	ranker *Ranker,
	embedder Embedder,
	cfg SearchConfig,
) *SearchService {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 20
	}
	if cfg.MaxTopK < cfg.DefaultTopK {
		cfg.MaxTopK = max(100, cfg.DefaultTopK)
	}
	if cfg.MaxExportRows <= 0 {
		cfg.MaxExportRows = 10000
	}
	return &SearchService{
		engine:    engine,
		catalogue: catalogue,
		ranker:    ranker,
		embedder:  embedder,
		cfg:       cfg,
	}
}

// Engine exposes the query engine for resolve-only callers
func (s *SearchService) Engine() *QueryEngine {
	return s.engine
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// Resolve resolves a turn without executing it
func (s *SearchService) Resolve(sessionID, query string) (*model.Resolution, error) {
	return s.engine.Resolve(sessionID, query)
}

// Search resolves the turn, executes the filter and records the result handle.
// On a resolution error the returned response still carries the resolution.
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	return s.SearchStream(ctx, req, nil)
}

// SearchStream is Search with progress events: intent, filter and searching
func (s *SearchService) SearchStream(ctx context.Context, req *model.SearchRequest, callback SearchEventCallback) (*model.SearchResponse, error) {
	startTime := time.Now()
	emit := func(event string, data any) error {
		if callback == nil {
			return nil
		}
		return callback(event, data)
	}

	res, err := s.engine.Resolve(req.SessionID, req.Query)
	if err != nil {
		return &model.SearchResponse{Resolution: res}, err
	}
	if err := emit("intent", res.Intent); err != nil {
		return nil, err
	}
	if err := emit("filter", res.Filter); err != nil {
		return nil, err
	}
	if err := emit("searching", map[string]any{
		"status": "Searching installations...",
		"mode":   res.ExecutionMode,
	}); err != nil {
		return nil, err
	}

	resp, err := s.Execute(ctx, req.Query, req.Options, res)
	if err != nil {
		return nil, err
	}
	resp.Took = time.Since(startTime).Milliseconds()

	s.logSearch(req.Query, res, resp)
	return resp, nil
}

// Execute runs a resolved filter in the resolution's execution mode
func (s *SearchService) Execute(ctx context.Context, query string, opts *model.SearchOptions, res *model.Resolution) (*model.SearchResponse, error) {
	if opts == nil {
		opts = &model.SearchOptions{Semantic: true}
	}
	resp := &model.SearchResponse{
		SearchID:   uuid.NewString(),
		Resolution: res,
	}

	var (
		offset int
		err    error
	)
	switch res.ExecutionMode.Kind {
	case model.ModeFullScanAggregate:
		err = s.executeAggregate(ctx, res, resp)
	case model.ModeFullScanExport:
		err = s.executeExport(ctx, res, resp)
	default:
		offset, err = s.executeTopK(ctx, query, opts, res, resp)
	}
	if err != nil {
		return nil, err
	}

	handle := model.ResultHandle{
		SearchID: resp.SearchID,
		Total:    resp.Total,
		Offset:   offset,
	}
	for _, r := range resp.Results {
		handle.InstallationIDs = append(handle.InstallationIDs, r.InstallationID)
	}
	if err := s.engine.Sessions().RecordResult(res.SessionID, handle); err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		log.Printf("Warning: session %s ended before results were recorded", res.SessionID)
	}
	return resp, nil
}

func (s *SearchService) executeAggregate(ctx context.Context, res *model.Resolution, resp *model.SearchResponse) error {
	agg, err := s.catalogue.Aggregate(ctx, res.Filter)
	if err != nil {
		return err
	}
	agg.Metric = res.ExecutionMode.Metric
	resp.Aggregate = agg
	resp.Total = agg.Count
	resp.Page = 1
	return nil
}

func (s *SearchService) executeExport(ctx context.Context, res *model.Resolution, resp *model.SearchResponse) error {
	items, total, err := s.catalogue.Search(ctx, repository.Query{
		Filter: res.Filter,
		Limit:  s.cfg.MaxExportRows,
	})
	if err != nil {
		return err
	}
	if total > len(items) {
		log.Printf("⚠️  Export truncated to %d of %d installations", len(items), total)
	}
	resp.Results = s.ranker.RankResults(items, res.Filter)
	resp.Total = total
	resp.Page = 1
	resp.PageSize = len(items)
	resp.TotalPages = 1
	resp.HasMore = total > len(items)
	return nil
}

// executeTopK returns the offset the page was read from
func (s *SearchService) executeTopK(ctx context.Context, query string, opts *model.SearchOptions, res *model.Resolution, resp *model.SearchResponse) (int, error) {
	limit := res.ExecutionMode.K
	if res.Filter.Limit == nil && opts.TopK > 0 {
		limit = opts.TopK
	}
	if limit <= 0 {
		limit = s.cfg.DefaultTopK
	}
	limit = min(limit, s.cfg.MaxTopK)

	offset := max(opts.Offset, 0)
	if res.Intent.Kind == model.IntentFollowupReuse && res.ResultHandle != nil {
		switch res.Intent.Action {
		case model.ActionMore:
			offset = res.ResultHandle.Offset + len(res.ResultHandle.InstallationIDs)
		case model.ActionDetails, model.ActionFinancials:
			offset = res.ResultHandle.Offset
		}
	}

	q := repository.Query{
		Filter: res.Filter,
		Limit:  limit,
		Offset: offset,
	}
	// a follow-up pages through the previous ordering, so its own words don't rank
	if res.Intent.Kind != model.IntentFollowupReuse {
		q.Keywords = searchKeywords(query)
	}
	if opts.Semantic && res.Filter.Sort == nil && s.embedder != nil && s.embedder.IsEnabled() {
		embedding, err := s.embedder.CreateEmbedding(ctx, query)
		if err != nil {
			log.Printf("Warning: query embedding failed, using text rank only: %v", err)
		} else {
			q.Embedding = embedding
		}
	}

	items, total, err := s.catalogue.Search(ctx, q)
	if err != nil {
		return 0, err
	}

	ranked := res.Filter
	if total == 0 && res.Filter.Capacity != nil && res.Filter.Capacity.IsTarget() {
		// nothing within tolerance of the target: drop the range, keep the closeness ordering
		relaxed := res.Filter.Clone()
		relaxed.Capacity = nil
		if relaxed.Sort == nil {
			relaxed.Sort = model.SortByDistanceFrom(*res.Filter.Capacity.TargetKW)
		}
		q.Filter = relaxed
		items, total, err = s.catalogue.Search(ctx, q)
		if err != nil {
			return 0, err
		}
		log.Printf("🔁 No installations within %.0f kW of %.0f kW, returned %d closest", res.Filter.Capacity.ToleranceKW, *res.Filter.Capacity.TargetKW, len(items))
		resp.Relaxed = true
		ranked = relaxed
	}

	resp.Results = s.ranker.RankResults(items, ranked)
	resp.Total = total
	resp.PageSize = limit
	resp.Page = offset/limit + 1
	resp.TotalPages = (total + limit - 1) / limit
	resp.HasMore = offset+len(items) < total
	return offset, nil
}

// GetInstallation retrieves a single installation by identifier
func (s *SearchService) GetInstallation(ctx context.Context, installationID string) (*model.Installation, error) {
	return s.catalogue.GetInstallation(ctx, installationID)
}

// UpdateEmbeddings updates embeddings for multiple installations
func (s *SearchService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	return s.catalogue.BatchUpdateEmbeddings(ctx, items)
}

// EmbedTexts computes embeddings for items that arrive with text but no vector
func (s *SearchService) EmbedTexts(ctx context.Context, items []model.EmbeddingItem) error {
	var texts []string
	var idx []int
	for i, item := range items {
		if len(item.Embedding) == 0 && item.Text != "" {
			texts = append(texts, item.Text)
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	if s.embedder == nil || !s.embedder.IsEnabled() {
		return errors.New("embedding API is not enabled")
	}
	vectors, err := s.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return err
	}
	for j, i := range idx {
		if j < len(vectors) {
			items[i].Embedding = vectors[j]
		}
	}
	return nil
}

// LogFeedback records a user action on a result. With a session id the search
// must be the one whose results the session is currently looking at.
func (s *SearchService) LogFeedback(ctx context.Context, fb model.FeedbackRequest) error {
	if fb.SessionID != "" {
		sess, err := s.engine.Sessions().Get(fb.SessionID)
		if err != nil {
			return err
		}
		if sess.LastResultHandle == nil || sess.LastResultHandle.SearchID != fb.SearchID {
			return ErrUnknownSearch
		}
	}
	return s.catalogue.LogFeedback(ctx, fb.SearchID, fb.InstallationID, string(fb.Action))
}

// logSearch writes the audit row without blocking the response
func (s *SearchService) logSearch(query string, res *model.Resolution, resp *model.SearchResponse) {
	entry := repository.SearchLog{
		SearchID:       resp.SearchID,
		SessionID:      res.SessionID,
		Query:          query,
		Intent:         res.Intent,
		Filter:         res.Filter.Clone(),
		ResultCount:    resp.Total,
		ResponseTimeMs: int(resp.Took),
	}
	for _, r := range resp.Results {
		entry.InstallationIDs = append(entry.InstallationIDs, r.InstallationID)
	}
	go func() {
		if err := s.catalogue.LogSearch(context.Background(), entry); err != nil {
			log.Printf("Warning: failed to log search %s: %v", entry.SearchID, err)
		}
	}()
}

// searchKeywords keeps the words of a query that can help text ranking
func searchKeywords(query string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(utils.NormalizeText(query)) {
		if len(w) < 3 || seen[w] || placeStopwords[w] || isTechnologyWord(w) || strings.IndexFunc(w, isDigitRune) >= 0 {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func isDigitRune(r rune) bool {
	return r >= '0' && r <= '9'
}
