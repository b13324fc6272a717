package geo

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"fitsearch/internal/model"
	"fitsearch/internal/utils"
)

//go:embed data/gazetteer.yaml
var defaultGazetteer []byte

// MaxSuggestions is how many alternatives an unresolved name carries
const MaxSuggestions = 3

// Region is a named area defined by postcode areas rather than a point
type Region struct {
	Name     string            `yaml:"name"`
	Aliases  []string          `yaml:"aliases"`
	Areas    []string          `yaml:"areas"`
	Centroid *model.Coordinate `yaml:"centroid"`
}

// Place is a town or district with a representative centroid
type Place struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	Outcode string   `yaml:"outcode"`
	Lat     float64  `yaml:"lat"`
	Lon     float64  `yaml:"lon"`
}

// Coordinate returns the place centroid
func (p Place) Coordinate() model.Coordinate {
	return model.Coordinate{Lat: p.Lat, Lon: p.Lon}
}

type gazetteerFile struct {
	Regions   []Region                    `yaml:"regions"`
	Places    []Place                     `yaml:"places"`
	Outcodes  map[string]model.Coordinate `yaml:"outcodes"`
	Postcodes map[string]model.Coordinate `yaml:"postcodes"`
}

// Gazetteer is an immutable lookup table. It is safe for concurrent use
// without locking because nothing mutates it after Load returns.
type Gazetteer struct {
	regions   map[string]*Region
	places    map[string]*Place
	outcodes  map[string]model.Coordinate
	postcodes map[string]model.Coordinate

	// keys holds every normalized name and alias, sorted, for suggestions
	keys         []string
	maxNameWords int
}

var (
	defaultOnce sync.Once
	defaultGaz  *Gazetteer
	defaultErr  error
)

// Default returns the gazetteer built from the embedded table
func Default() (*Gazetteer, error) {
	defaultOnce.Do(func() {
		defaultGaz, defaultErr = Load(defaultGazetteer)
	})
	return defaultGaz, defaultErr
}

// MustDefault is Default for callers that cannot proceed without a gazetteer
func MustDefault() *Gazetteer {
	g, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded gazetteer is invalid: %v", err))
	}
	return g
}

// LoadFile builds a gazetteer from a YAML file on disk
func LoadFile(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gazetteer: %w", err)
	}
	return Load(data)
}

// Load parses YAML gazetteer data and indexes it
func Load(data []byte) (*Gazetteer, error) {
	var file gazetteerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse gazetteer: %w", err)
	}

	g := &Gazetteer{
		regions:   make(map[string]*Region),
		places:    make(map[string]*Place),
		outcodes:  make(map[string]model.Coordinate),
		postcodes: make(map[string]model.Coordinate),
	}

	for i := range file.Regions {
		r := &file.Regions[i]
		if r.Name == "" || len(r.Areas) == 0 {
			return nil, fmt.Errorf("region %d: name and areas are required", i)
		}
		for j, a := range r.Areas {
			a = strings.ToUpper(strings.TrimSpace(a))
			if !IsPostcodeArea(a) {
				return nil, fmt.Errorf("region %s: %q is not a postcode area", r.Name, a)
			}
			r.Areas[j] = a
		}
		for _, key := range append([]string{r.Name}, r.Aliases...) {
			g.regions[utils.NormalizeName(key)] = r
		}
	}

	for i := range file.Places {
		p := &file.Places[i]
		if p.Name == "" {
			return nil, fmt.Errorf("place %d: name is required", i)
		}
		p.Outcode = strings.ToUpper(strings.TrimSpace(p.Outcode))
		for _, key := range append([]string{p.Name}, p.Aliases...) {
			key = utils.NormalizeName(key)
			if _, clash := g.regions[key]; clash {
				return nil, fmt.Errorf("place %s: name already used by a region", p.Name)
			}
			g.places[key] = p
		}
		if p.Outcode != "" {
			if _, ok := g.outcodes[p.Outcode]; !ok {
				g.outcodes[p.Outcode] = p.Coordinate()
			}
		}
	}

	for oc, c := range file.Outcodes {
		pc, kind := ParsePostcode(oc)
		if kind != OutcodeOnly {
			return nil, fmt.Errorf("outcode %q is not a valid outcode", oc)
		}
		g.outcodes[pc.Outcode] = c
	}

	for raw, c := range file.Postcodes {
		pc, kind := ParsePostcode(raw)
		if kind != CompletePostcode {
			return nil, fmt.Errorf("postcode %q is not a complete postcode", raw)
		}
		g.postcodes[pc.String()] = c
	}

	for key := range g.regions {
		g.keys = append(g.keys, key)
	}
	for key := range g.places {
		g.keys = append(g.keys, key)
	}
	sort.Strings(g.keys)
	for _, key := range g.keys {
		g.maxNameWords = max(g.maxNameWords, len(strings.Fields(key)))
	}

	return g, nil
}

// Region looks up a region by name or alias
func (g *Gazetteer) Region(name string) (Region, bool) {
	r, ok := g.regions[nameKey(name)]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Place looks up a town or district by name or alias
func (g *Gazetteer) Place(name string) (Place, bool) {
	p, ok := g.places[nameKey(name)]
	if !ok {
		return Place{}, false
	}
	return *p, true
}

// Knows reports whether name is an exact region or place entry
func (g *Gazetteer) Knows(name string) bool {
	key := nameKey(name)
	_, r := g.regions[key]
	_, p := g.places[key]
	return r || p
}

// MaxNameWords is the word count of the longest name, bounding extractor lookahead
func (g *Gazetteer) MaxNameWords() int {
	return g.maxNameWords
}

// OutcodeCentroid returns the approximate centre of an outcode
func (g *Gazetteer) OutcodeCentroid(outcode string) (model.Coordinate, bool) {
	c, ok := g.outcodes[strings.ToUpper(strings.TrimSpace(outcode))]
	return c, ok
}

// ResolveLocation turns a postcode or place token into a record. The token is
// classified structurally first; names only go to the static tables, and a miss
// never produces a coordinate.
func (g *Gazetteer) ResolveLocation(token string) (model.LocationRecord, error) {
	pc, kind := ParsePostcode(token)
	switch kind {
	case CompletePostcode:
		if c, ok := g.postcodes[pc.String()]; ok {
			return model.LocationRecord{
				CanonicalName: pc.String(),
				Outcode:       pc.Outcode,
				Coordinate:    c,
				Source:        model.SourcePostcodeLookup,
				Accuracy:      model.AccuracyExact,
				Confidence:    1.0,
			}, nil
		}
		if c, ok := g.outcodes[pc.Outcode]; ok {
			return model.LocationRecord{
				CanonicalName: pc.String(),
				Outcode:       pc.Outcode,
				Coordinate:    c,
				Source:        model.SourcePostcodeLookup,
				Accuracy:      model.AccuracyApproximate,
				Confidence:    0.7,
			}, nil
		}
		return model.LocationRecord{}, &UnresolvedLocationError{Token: pc.String(), Suggestions: g.outcodesInArea(pc.Area)}
	case OutcodeOnly:
		if c, ok := g.outcodes[pc.Outcode]; ok {
			return model.LocationRecord{
				CanonicalName: pc.Outcode,
				Outcode:       pc.Outcode,
				Coordinate:    c,
				Source:        model.SourcePostcodeLookup,
				Accuracy:      model.AccuracyApproximate,
				Confidence:    0.8,
			}, nil
		}
		return model.LocationRecord{}, &UnresolvedLocationError{Token: pc.Outcode, Suggestions: g.outcodesInArea(pc.Area)}
	}

	key := nameKey(token)
	if p, ok := g.places[key]; ok {
		return model.LocationRecord{
			CanonicalName: p.Name,
			Outcode:       p.Outcode,
			Coordinate:    p.Coordinate(),
			Source:        model.SourceGazetteerExact,
			Accuracy:      model.AccuracyApproximate,
			Confidence:    1.0,
		}, nil
	}
	if r, ok := g.regions[key]; ok && r.Centroid != nil {
		return model.LocationRecord{
			CanonicalName: r.Name,
			Coordinate:    *r.Centroid,
			Source:        model.SourceGazetteerExact,
			Accuracy:      model.AccuracyApproximate,
			Confidence:    1.0,
		}, nil
	}

	err := &UnresolvedLocationError{Token: key}
	for _, rec := range g.Suggest(key, MaxSuggestions) {
		err.Suggestions = append(err.Suggestions, rec.CanonicalName)
	}
	return model.LocationRecord{}, err
}

type suggestion struct {
	name  string
	rank  int
	dist  int
	coord *model.Coordinate
	out   string
}

// Suggest returns up to n fuzzy matches for an unknown name, tagged as suggestions.
// Substring hits rank first, then close spellings, then shared prefixes.
func (g *Gazetteer) Suggest(token string, n int) []model.LocationRecord {
	key := nameKey(token)
	if key == "" || n <= 0 {
		return nil
	}
	maxDist := max(2, len([]rune(key))/3)

	best := make(map[string]suggestion)
	for _, cand := range g.keys {
		var s suggestion
		switch {
		case len(key) >= 3 && len(cand) >= 3 && utils.FuzzyContains(key, cand):
			s = suggestion{rank: 0, dist: abs(len(cand) - len(key))}
		default:
			d := utils.EditDistance(key, cand, maxDist)
			if d <= maxDist {
				s = suggestion{rank: 1, dist: d}
			} else if utils.CommonPrefixLen(key, cand) >= 3 {
				s = suggestion{rank: 2, dist: d}
			} else {
				continue
			}
		}
		if r, ok := g.regions[cand]; ok {
			s.name, s.coord = r.Name, r.Centroid
		} else {
			p := g.places[cand]
			c := p.Coordinate()
			s.name, s.coord, s.out = p.Name, &c, p.Outcode
		}
		if prev, seen := best[s.name]; seen && (prev.rank < s.rank || (prev.rank == s.rank && prev.dist <= s.dist)) {
			continue
		}
		best[s.name] = s
	}

	ranked := make([]suggestion, 0, len(best))
	for _, s := range best {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].rank != ranked[j].rank {
			return ranked[i].rank < ranked[j].rank
		}
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]model.LocationRecord, 0, len(ranked))
	for _, s := range ranked {
		rec := model.LocationRecord{
			CanonicalName: s.name,
			Outcode:       s.out,
			Source:        model.SourceGazetteerFuzzySuggestion,
			Accuracy:      model.AccuracyApproximate,
			Confidence:    suggestionConfidence(s, key),
		}
		if s.coord != nil {
			rec.Coordinate = *s.coord
		}
		out = append(out, rec)
	}
	return out
}

func suggestionConfidence(s suggestion, key string) float64 {
	longest := max(len(key), len(s.name), 1)
	c := 1 - float64(s.dist)/float64(longest) - 0.2*float64(s.rank)
	return max(0, min(1, c))
}

func (g *Gazetteer) outcodesInArea(area string) []string {
	var out []string
	for oc := range g.outcodes {
		if PostcodeArea(oc) == area {
			out = append(out, oc)
		}
	}
	sort.Strings(out)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

var nameSuffixes = []string{" area", " region", " district", " county", " and surrounding"}

// nameKey normalizes a user token into a table key, dropping "the" and area words
func nameKey(name string) string {
	key := utils.NormalizeName(name)
	key = strings.TrimPrefix(key, "the ")
	for _, suffix := range nameSuffixes {
		key = strings.TrimSuffix(key, suffix)
	}
	return strings.TrimSpace(key)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
