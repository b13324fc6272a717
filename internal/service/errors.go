package service

import (
	"errors"
	"fmt"
	"strings"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
)

const (
	CodeAmbiguous       = "ambiguous_entities"
	CodeInvalidRange    = "invalid_capacity_range"
	CodeUnknownTech     = "unknown_technology"
	CodeUnresolvedPlace = "unresolved_location"
	CodeSessionNotFound = "session_not_found"
	CodeEmptyQuery      = "empty_query"
	CodeUnknownSearch   = "unknown_search"
)

var (
	// ErrEmptyQuery is returned for blank input
	ErrEmptyQuery = errors.New("query is empty")
	// ErrSessionNotFound is returned by the store for absent or evicted sessions.
	// Resolve never surfaces it; a follow-up on a missing session is a new search.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownSearch is returned when feedback names a search the session did not run last
	ErrUnknownSearch = errors.New("search not found in session")
)

// AmbiguousEntitiesError means two mutually exclusive candidates were found and
// nothing in the turn says which one the user meant.
type AmbiguousEntitiesError struct {
	Fields []string
}

func (e *AmbiguousEntitiesError) Error() string {
	return fmt.Sprintf("ambiguous entities: %s", strings.Join(e.Fields, ", "))
}

func (e *AmbiguousEntitiesError) Code() string { return CodeAmbiguous }

// InvalidCapacityRangeError is returned when min > max after extraction
type InvalidCapacityRangeError struct {
	MinKW float64
	MaxKW float64
}

func (e *InvalidCapacityRangeError) Error() string {
	return fmt.Sprintf("invalid capacity range: min %.0f kW is greater than max %.0f kW", e.MinKW, e.MaxKW)
}

func (e *InvalidCapacityRangeError) Code() string { return CodeInvalidRange }

// UnknownTechnologySynonymError is returned for technology-shaped words outside the synonym table
type UnknownTechnologySynonymError struct {
	Token string
}

func (e *UnknownTechnologySynonymError) Error() string {
	return fmt.Sprintf("unknown technology %q", e.Token)
}

func (e *UnknownTechnologySynonymError) Code() string { return CodeUnknownTech }

// Clarify turns errors that should become a clarifying question into the
// response body, and returns false for everything else.
func Clarify(err error) (*model.Clarification, bool) {
	var (
		ambiguous  *AmbiguousEntitiesError
		badRange   *InvalidCapacityRangeError
		unknown    *UnknownTechnologySynonymError
		unresolved *geo.UnresolvedLocationError
	)
	switch {
	case errors.As(err, &ambiguous):
		return &model.Clarification{Code: ambiguous.Code(), Message: err.Error(), Fields: ambiguous.Fields}, true
	case errors.As(err, &badRange):
		return &model.Clarification{Code: badRange.Code(), Message: err.Error(), Fields: []string{"capacity"}}, true
	case errors.As(err, &unknown):
		return &model.Clarification{Code: unknown.Code(), Message: err.Error(), Token: unknown.Token}, true
	case errors.As(err, &unresolved):
		return &model.Clarification{
			Code:        unresolved.Code(),
			Message:     err.Error(),
			Token:       unresolved.Token,
			Suggestions: unresolved.Suggestions,
		}, true
	case errors.Is(err, ErrEmptyQuery):
		return &model.Clarification{Code: CodeEmptyQuery, Message: err.Error()}, true
	}
	return nil, false
}
