package repository

import (
	"fmt"
	"strings"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const installationColumns = `
			id, installation_id, name, technology, capacity_kw, postcode,
			latitude, longitude, years_remaining, commissioned_on, subsidy_ends_on,
			description, tags, details, created_at, updated_at`

// sqlFilter accumulates WHERE clauses and positional arguments
type sqlFilter struct {
	whereClauses []string
	args         []interface{}
	argIndex     int
}

func newSQLFilter() *sqlFilter {
	return &sqlFilter{whereClauses: []string{"1=1"}, argIndex: 1}
}

// arg appends v and returns its placeholder
func (b *sqlFilter) arg(v interface{}) string {
	b.args = append(b.args, v)
	p := fmt.Sprintf("$%d", b.argIndex)
	b.argIndex++
	return p
}

func (b *sqlFilter) where(clause string) {
	b.whereClauses = append(b.whereClauses, clause)
}

func (b *sqlFilter) clause() string {
	return strings.Join(b.whereClauses, " AND ")
}

// buildFilter translates a FilterSpec into SQL predicates
func buildFilter(f *model.FilterSpec) *sqlFilter {
	b := newSQLFilter()
	if f == nil {
		return b
	}

	if len(f.CompareTechnologies) > 0 {
		techs := make([]string, len(f.CompareTechnologies))
		for i, t := range f.CompareTechnologies {
			techs[i] = string(t)
		}
		b.where(fmt.Sprintf("technology = ANY(%s)", b.arg(pq.Array(techs))))
	} else if f.Technology != nil {
		b.where(fmt.Sprintf("technology = %s", b.arg(string(*f.Technology))))
	}

	if c := f.Capacity; c != nil {
		if c.MinKW != nil {
			b.where(fmt.Sprintf("capacity_kw >= %s", b.arg(*c.MinKW)))
		}
		if c.MaxKW != nil {
			b.where(fmt.Sprintf("capacity_kw <= %s", b.arg(*c.MaxKW)))
		}
	}

	if f.Window != nil {
		lower, upper := f.Window.Bounds()
		if lower != nil {
			b.where(fmt.Sprintf("years_remaining > %s", b.arg(*lower)))
		}
		if upper != nil {
			b.where(fmt.Sprintf("years_remaining <= %s", b.arg(*upper)))
		}
	}

	if y := f.YearsRemaining; y != nil {
		if y.Min != nil {
			b.where(fmt.Sprintf("years_remaining >= %s", b.arg(*y.Min)))
		}
		if y.Max != nil {
			b.where(fmt.Sprintf("years_remaining <= %s", b.arg(*y.Max)))
		}
	}

	if loc := f.Location; loc != nil {
		switch loc.Kind {
		case model.LocationNamed:
			// area is the leading letters, so S never matches SL
			b.where(fmt.Sprintf("substring(upper(postcode) from '^[A-Z]{1,2}') = ANY(%s)", b.arg(pq.Array(loc.PostcodePrefixes))))
		case model.LocationPostcodeExact:
			b.where(fmt.Sprintf("split_part(upper(trim(postcode)), ' ', 1) = %s", b.arg(loc.Outcode)))
			if loc.Incode != "" {
				b.where(fmt.Sprintf("split_part(upper(trim(postcode)), ' ', 2) = %s", b.arg(loc.Incode)))
			}
		case model.LocationRadius:
			if loc.Center != nil {
				b.where("latitude IS NOT NULL AND longitude IS NOT NULL")
				b.where(fmt.Sprintf("%s <= %s", b.haversine(*loc.Center), b.arg(loc.RadiusKM)))
			}
		}
	}

	if f.Identifier != nil {
		b.where(fmt.Sprintf("installation_id = %s", b.arg(*f.Identifier)))
	}

	return b
}

// haversine returns a great-circle distance expression in km from center
func (b *sqlFilter) haversine(center model.Coordinate) string {
	lat := b.arg(center.Lat)
	lon := b.arg(center.Lon)
	return fmt.Sprintf(
		"(2 * %v * asin(sqrt(power(sin(radians(latitude - %s) / 2), 2) + cos(radians(%s)) * cos(radians(latitude)) * power(sin(radians(longitude - %s) / 2), 2))))",
		geo.EarthRadiusKM, lat, lat, lon,
	)
}

// orderBy renders the ORDER BY clause. A sort directive is applied exactly;
// otherwise similarity or text rank decides.
func (b *sqlFilter) orderBy(f *model.FilterSpec, embedding []float32) string {
	var keys []string
	if f != nil && f.Sort != nil {
		switch f.Sort.Key {
		case model.SortCapacityDesc:
			keys = append(keys, "capacity_kw DESC")
		case model.SortCapacityAsc:
			keys = append(keys, "capacity_kw ASC")
		case model.SortYearsRemainingAsc:
			keys = append(keys, "years_remaining ASC")
		case model.SortDistanceFromTarget:
			if f.Sort.TargetKW != nil {
				keys = append(keys, fmt.Sprintf("ABS(capacity_kw - %s) ASC", b.arg(*f.Sort.TargetKW)))
			}
		case model.SortDistanceFromCenter:
			if f.Location != nil && f.Location.Center != nil {
				keys = append(keys, b.haversine(*f.Location.Center)+" ASC")
			}
		}
	}
	if len(keys) == 0 {
		if len(embedding) > 0 {
			keys = append(keys, fmt.Sprintf("embedding <=> %s ASC", b.arg(pgvector.NewVector(embedding))))
		}
		keys = append(keys, "text_rank DESC", "years_remaining ASC")
	}
	keys = append(keys, "installation_id ASC")
	return strings.Join(keys, ", ")
}

// buildSearchQuery returns the count and select statements for q along with their arguments
func buildSearchQuery(q Query) (countQuery string, countArgs []interface{}, selectQuery string, selectArgs []interface{}) {
	b := buildFilter(q.Filter)
	where := b.clause()
	countQuery = fmt.Sprintf("SELECT COUNT(*) FROM installations WHERE %s", where)
	countArgs = append([]interface{}(nil), b.args...)

	rank := b.arg(strings.Join(q.Keywords, " "))
	order := b.orderBy(q.Filter, q.Embedding)
	limit := b.arg(q.Limit)
	offset := b.arg(q.Offset)

	selectQuery = fmt.Sprintf(`
		SELECT %s,
			ts_rank(search_vector, plainto_tsquery('english', %s)) AS text_rank
		FROM installations
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s
	`, installationColumns, rank, where, order, limit, offset)
	return countQuery, countArgs, selectQuery, b.args
}

// buildAggregateQuery groups by technology for comparisons, otherwise returns one row
func buildAggregateQuery(f *model.FilterSpec) (string, []interface{}) {
	b := buildFilter(f)
	if f != nil && len(f.CompareTechnologies) > 0 {
		return fmt.Sprintf(`
		SELECT technology, COUNT(*) AS count, COALESCE(SUM(capacity_kw), 0) AS total_capacity_kw
		FROM installations
		WHERE %s
		GROUP BY technology
		ORDER BY technology
	`, b.clause()), b.args
	}
	return fmt.Sprintf(`
		SELECT COUNT(*) AS count, COALESCE(SUM(capacity_kw), 0) AS total_capacity_kw
		FROM installations
		WHERE %s
	`, b.clause()), b.args
}
