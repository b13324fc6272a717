package model

import (
	"slices"
	"time"
)

// ResultHandle identifies the result set the search collaborator returned for a turn.
// The engine never looks inside it beyond emptiness.
type ResultHandle struct {
	SearchID        string   `json:"search_id"`
	InstallationIDs []string `json:"installation_ids,omitempty"`
	Total           int      `json:"total"`
	// Offset is where InstallationIDs starts within the full result set
	Offset int `json:"offset,omitempty"`
}

// IsEmpty reports whether the handle refers to no results
func (h *ResultHandle) IsEmpty() bool {
	return h == nil || h.SearchID == "" || (h.Total == 0 && len(h.InstallationIDs) == 0)
}

// Session is the per-conversation state owned by the session store
type Session struct {
	ID               string        `json:"id"`
	TurnCount        int           `json:"turn_count"`
	LastFilter       *FilterSpec   `json:"last_filter,omitempty"`
	LastIntent       *Intent       `json:"last_intent,omitempty"`
	LastResultHandle *ResultHandle `json:"last_result_handle,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	LastActiveAt     time.Time     `json:"last_active_at"`
}

// HasResults reports whether a follow-up can refer back to something
func (s *Session) HasResults() bool {
	return s != nil && !s.LastResultHandle.IsEmpty()
}

// Snapshot returns a deep copy safe to hand outside the store
func (s *Session) Snapshot() Session {
	out := *s
	out.LastFilter = s.LastFilter.Clone()
	if s.LastIntent != nil {
		i := *s.LastIntent
		out.LastIntent = &i
	}
	if s.LastResultHandle != nil {
		h := *s.LastResultHandle
		h.InstallationIDs = slices.Clone(s.LastResultHandle.InstallationIDs)
		out.LastResultHandle = &h
	}
	return out
}
