package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Installation is one catalogue record owned by the search collaborator
type Installation struct {
	ID             int64           `json:"-" db:"id" yaml:"-"`
	InstallationID string          `json:"installation_id" db:"installation_id" yaml:"installation_id"`
	Name           *string         `json:"name,omitempty" db:"name" yaml:"name"`
	Technology     Technology      `json:"technology" db:"technology" yaml:"technology"`
	CapacityKW     float64         `json:"capacity_kw" db:"capacity_kw" yaml:"capacity_kw"`
	Postcode       string          `json:"postcode" db:"postcode" yaml:"postcode"`
	Latitude       *float64        `json:"latitude,omitempty" db:"latitude" yaml:"latitude"`
	Longitude      *float64        `json:"longitude,omitempty" db:"longitude" yaml:"longitude"`
	YearsRemaining float64         `json:"years_remaining" db:"years_remaining" yaml:"years_remaining"`
	CommissionedOn *time.Time      `json:"commissioned_on,omitempty" db:"commissioned_on" yaml:"commissioned_on"`
	SubsidyEndsOn  *time.Time      `json:"subsidy_ends_on,omitempty" db:"subsidy_ends_on" yaml:"subsidy_ends_on"`
	Description    *string         `json:"description,omitempty" db:"description" yaml:"description"`
	Tags           JSONArray       `json:"tags,omitempty" db:"tags" yaml:"tags"`
	Details        JSONMap         `json:"details,omitempty" db:"details" yaml:"details"`
	Embedding      pgvector.Vector `json:"-" db:"embedding" yaml:"-"`
	TextRank       *float64        `json:"text_rank,omitempty" db:"text_rank" yaml:"-"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at" yaml:"-"`
}

// Coordinate returns the installation's position when both ordinates are known
func (i Installation) Coordinate() (Coordinate, bool) {
	if i.Latitude == nil || i.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *i.Latitude, Lon: *i.Longitude}, true
}

// Window derives the repowering window from years remaining
func (i Installation) Window() RepoweringWindow {
	return RepoweringWindowFor(i.YearsRemaining)
}

// InstallationSearchResult represents a search result with additional metadata
type InstallationSearchResult struct {
	Installation
	Window         RepoweringWindow `json:"window"`
	DistanceKM     *float64         `json:"distance_km,omitempty"`
	Score          float64          `json:"score"`
	MatchedReasons []string         `json:"matched_reasons"`
}

// AggregateResult is what a full-scan aggregate returns
type AggregateResult struct {
	Metric            AggregateMetric          `json:"metric"`
	Count             int                      `json:"count"`
	TotalCapacityKW   float64                  `json:"total_capacity_kw"`
	AverageCapacityKW float64                  `json:"average_capacity_kw"`
	ByTechnology      map[Technology]GroupStat `json:"by_technology,omitempty"`
}

// GroupStat is one bucket of a comparative aggregate
type GroupStat struct {
	Count           int     `json:"count" db:"count"`
	TotalCapacityKW float64 `json:"total_capacity_kw" db:"total_capacity_kw"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}
