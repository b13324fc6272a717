package service

import (
	"log"
	"strings"
	"time"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
)

// EngineConfig configures the query engine
type EngineConfig struct {
	DefaultTopK     int
	ToleranceKW     float64
	DefaultRadiusKM float64
	Debug           bool
	Clock           func() time.Time
}

// QueryEngine resolves one conversational turn into a FilterSpec. A turn is
// synchronous and does no I/O; the session store is the only shared mutable state.
type QueryEngine struct {
	extractor  *Extractor
	classifier *IntentClassifier
	merger     *Merger
	sessions   *SessionStore
	defaultK   int
	debug      bool
}

// NewQueryEngine wires the pipeline around a gazetteer and a session store
func NewQueryEngine(gazetteer *geo.Gazetteer, sessions *SessionStore, cfg EngineConfig) *QueryEngine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 20
	}
	extractor := NewExtractor(gazetteer, cfg.Clock)
	compiler := NewCompiler(gazetteer, CompilerConfig{
		ToleranceKW:     cfg.ToleranceKW,
		DefaultRadiusKM: cfg.DefaultRadiusKM,
	})
	return &QueryEngine{
		extractor:  extractor,
		classifier: NewIntentClassifier(extractor),
		merger:     NewMerger(compiler),
		sessions:   sessions,
		defaultK:   cfg.DefaultTopK,
		debug:      cfg.Debug,
	}
}

// Sessions exposes the store so callers can record results and clear sessions
func (e *QueryEngine) Sessions() *SessionStore {
	return e.sessions
}

// Extractor exposes the entity extractor for tooling
func (e *QueryEngine) Extractor() *Extractor {
	return e.extractor
}

// Resolve runs extraction, classification, merge and compilation for one turn.
// The returned Resolution always carries the intent, also when err is non-nil.
// On error the session is left exactly as it was.
func (e *QueryEngine) Resolve(sessionID, text string) (*model.Resolution, error) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	res := &model.Resolution{
		SessionID: sessionID,
		Intent:    model.Intent{Kind: model.IntentNewSearch},
	}
	if strings.TrimSpace(text) == "" {
		return res, ErrEmptyQuery
	}

	cand := e.extractor.Extract(text)

	err := e.sessions.WithSession(sessionID, func(sess *model.Session) error {
		// A follow-up against a session without results already classifies as a
		// new search, so an evicted session never surfaces as an error here.
		intent := e.classifier.ClassifyCandidates(text, sess, cand)
		res.Intent = intent
		res.Turn = sess.TurnCount + 1

		var prior *model.FilterSpec
		if intent.ReusesPrior() {
			prior = sess.LastFilter
		}

		filter, err := e.merger.Merge(prior, cand, intent)
		if err != nil {
			return err
		}

		res.Filter = filter
		res.ExecutionMode = model.ExecutionModeFor(intent, filter.Limit, e.defaultK)
		if intent.ReusesPrior() && sess.LastResultHandle != nil {
			h := sess.Snapshot().LastResultHandle
			res.ResultHandle = h
		} else {
			sess.LastResultHandle = nil
		}

		sess.TurnCount++
		sess.LastFilter = filter.Clone()
		sess.LastIntent = &intent
		return nil
	})

	if e.debug {
		if err != nil {
			log.Printf("[DEBUG] session=%s intent=%s error=%v", sessionID, res.Intent.Kind, err)
		} else {
			log.Printf("[DEBUG] session=%s turn=%d intent=%s mode=%s", sessionID, res.Turn, res.Intent.Kind, res.ExecutionMode.Kind)
		}
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

// Clear drops a session explicitly
func (e *QueryEngine) Clear(sessionID string) error {
	return e.sessions.Clear(sessionID)
}
