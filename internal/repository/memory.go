package repository

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
	"fitsearch/internal/utils"

	"github.com/pgvector/pgvector-go"
	"gopkg.in/yaml.v3"
)

// fixtureFile is the YAML layout of a catalogue fixture
type fixtureFile struct {
	Installations []model.Installation `yaml:"installations"`
}

// MemoryRepository is an in-process catalogue loaded from a YAML fixture.
// It applies the same filter semantics as the SQL builder.
type MemoryRepository struct {
	mu            sync.RWMutex
	installations []model.Installation
	logs          []SearchLog
	feedback      map[string]string
}

// NewMemoryRepository creates a catalogue over installations
func NewMemoryRepository(installations []model.Installation) *MemoryRepository {
	now := time.Now().UTC()
	items := slices.Clone(installations)
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].Postcode = strings.ToUpper(strings.TrimSpace(items[i].Postcode))
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
			items[i].UpdatedAt = now
		}
	}
	return &MemoryRepository{installations: items, feedback: map[string]string{}}
}

// LoadMemoryRepository reads a fixture file
func LoadMemoryRepository(path string) (*MemoryRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue fixture: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue fixture %s: %w", path, err)
	}
	for i, inst := range f.Installations {
		if inst.InstallationID == "" {
			return nil, fmt.Errorf("installation %d: missing installation_id", i)
		}
		if !inst.Technology.Valid() {
			return nil, fmt.Errorf("installation %s: unknown technology %q", inst.InstallationID, inst.Technology)
		}
	}
	return NewMemoryRepository(f.Installations), nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

// Len returns the number of installations held
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.installations)
}

// Search filters, orders and pages the catalogue
func (r *MemoryRepository) Search(ctx context.Context, q Query) ([]model.Installation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matches := r.filter(q.Filter)
	r.mu.RUnlock()

	for i := range matches {
		rank := keywordRank(matches[i], q.Keywords)
		matches[i].TextRank = &rank
	}
	sortInstallations(matches, q.Filter, q.Embedding)

	total := len(matches)
	if q.Offset >= total {
		return []model.Installation{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < total {
		end = q.Offset + q.Limit
	}
	return matches[q.Offset:end], total, nil
}

// Aggregate computes count and capacity totals over every matching row
func (r *MemoryRepository) Aggregate(ctx context.Context, filter *model.FilterSpec) (*model.AggregateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	matches := r.filter(filter)
	r.mu.RUnlock()

	result := &model.AggregateResult{}
	if filter != nil && len(filter.CompareTechnologies) > 0 {
		result.ByTechnology = make(map[model.Technology]model.GroupStat, len(filter.CompareTechnologies))
		for _, t := range filter.CompareTechnologies {
			result.ByTechnology[t] = model.GroupStat{}
		}
	}
	for _, inst := range matches {
		result.Count++
		result.TotalCapacityKW += inst.CapacityKW
		if result.ByTechnology != nil {
			g := result.ByTechnology[inst.Technology]
			g.Count++
			g.TotalCapacityKW += inst.CapacityKW
			result.ByTechnology[inst.Technology] = g
		}
	}
	if result.Count > 0 {
		result.AverageCapacityKW = result.TotalCapacityKW / float64(result.Count)
	}
	return result, nil
}

// GetInstallation returns nil when the identifier is unknown
func (r *MemoryRepository) GetInstallation(ctx context.Context, installationID string) (*model.Installation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.installations {
		if inst.InstallationID == installationID {
			out := inst
			return &out, nil
		}
	}
	return nil, nil
}

// BatchUpdateEmbeddings stores embeddings against known installations
func (r *MemoryRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	success := 0
	var errors []string
	for _, item := range items {
		idx := slices.IndexFunc(r.installations, func(inst model.Installation) bool {
			return inst.InstallationID == item.InstallationID
		})
		if idx < 0 {
			errors = append(errors, fmt.Sprintf("installation_id %s: not found", item.InstallationID))
			continue
		}
		r.installations[idx].Embedding = pgvector.NewVector(item.Embedding)
		r.installations[idx].UpdatedAt = time.Now().UTC()
		success++
	}
	return success, errors
}

// LogSearch keeps the entry in memory
func (r *MemoryRepository) LogSearch(ctx context.Context, entry SearchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, entry)
	return nil
}

// LogFeedback records the last action per search
func (r *MemoryRepository) LogFeedback(ctx context.Context, searchID, installationID, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback[searchID] = installationID + ":" + action
	return nil
}

// SearchLogs returns a copy of the logged searches
func (r *MemoryRepository) SearchLogs() []SearchLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.logs)
}

// filter must be called with mu held
func (r *MemoryRepository) filter(f *model.FilterSpec) []model.Installation {
	out := make([]model.Installation, 0, len(r.installations))
	for _, inst := range r.installations {
		if Matches(inst, f) {
			out = append(out, inst)
		}
	}
	return out
}

// Matches reports whether inst satisfies every constraint of f
func Matches(inst model.Installation, f *model.FilterSpec) bool {
	if f == nil {
		return true
	}
	if len(f.CompareTechnologies) > 0 {
		if !slices.Contains(f.CompareTechnologies, inst.Technology) {
			return false
		}
	} else if f.Technology != nil && inst.Technology != *f.Technology {
		return false
	}
	if f.Capacity != nil && !f.Capacity.Contains(inst.CapacityKW) {
		return false
	}
	if f.Window != nil && inst.Window() != *f.Window {
		return false
	}
	if f.YearsRemaining != nil && !f.YearsRemaining.Contains(inst.YearsRemaining) {
		return false
	}
	if f.Location != nil && !matchesLocation(inst, *f.Location) {
		return false
	}
	if f.Identifier != nil && inst.InstallationID != *f.Identifier {
		return false
	}
	return true
}

func matchesLocation(inst model.Installation, loc model.LocationSpec) bool {
	switch loc.Kind {
	case model.LocationNamed:
		return geo.InAreas(inst.Postcode, loc.PostcodePrefixes)
	case model.LocationPostcodeExact:
		pc, kind := geo.ParsePostcode(inst.Postcode)
		if kind == geo.NotPostcode || pc.Outcode != loc.Outcode {
			return false
		}
		return loc.Incode == "" || pc.Incode == loc.Incode
	case model.LocationRadius:
		coord, ok := inst.Coordinate()
		return ok && loc.Center != nil && geo.WithinRadius(*loc.Center, loc.RadiusKM, coord)
	}
	return false
}

// sortInstallations applies the sort directive exactly, or ranks by similarity
// and keyword hits when there is none. Ties break on installation id.
func sortInstallations(items []model.Installation, f *model.FilterSpec, embedding []float32) {
	var key func(model.Installation) float64
	if f != nil && f.Sort != nil {
		switch f.Sort.Key {
		case model.SortCapacityDesc:
			key = func(i model.Installation) float64 { return -i.CapacityKW }
		case model.SortCapacityAsc:
			key = func(i model.Installation) float64 { return i.CapacityKW }
		case model.SortYearsRemainingAsc:
			key = func(i model.Installation) float64 { return i.YearsRemaining }
		case model.SortDistanceFromTarget:
			if f.Sort.TargetKW != nil {
				target := *f.Sort.TargetKW
				key = func(i model.Installation) float64 { return math.Abs(i.CapacityKW - target) }
			}
		case model.SortDistanceFromCenter:
			if f.Location != nil && f.Location.Center != nil {
				center := *f.Location.Center
				key = func(i model.Installation) float64 {
					c, ok := i.Coordinate()
					if !ok {
						return math.Inf(1)
					}
					return geo.DistanceKM(center, c)
				}
			}
		}
	}
	if key == nil {
		key = func(i model.Installation) float64 {
			score := 0.0
			if i.TextRank != nil {
				score -= *i.TextRank
			}
			if len(embedding) > 0 {
				score -= cosine(embedding, i.Embedding.Slice())
			}
			return score
		}
	}
	slices.SortStableFunc(items, func(a, b model.Installation) int {
		ka, kb := key(a), key(b)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return strings.Compare(a.InstallationID, b.InstallationID)
	})
}

// keywordRank is the share of keywords found in the installation's text
func keywordRank(inst model.Installation, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	var text strings.Builder
	if inst.Name != nil {
		text.WriteString(*inst.Name + " ")
	}
	if inst.Description != nil {
		text.WriteString(*inst.Description + " ")
	}
	text.WriteString(strings.Join(inst.Tags, " "))
	haystack := utils.NormalizeText(text.String())

	hits := 0
	for _, kw := range keywords {
		if kw = utils.NormalizeText(kw); kw != "" && strings.Contains(haystack, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
