package indicators

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ougirez/databaker/internal/domain"
)

// SelectIndicatorSeries keeps the charts shown on country profiles: published and
// indexable line charts with a chart tab and a single dimension.
func SelectIndicatorSeries(rows []*domain.ChartRow) ([]*domain.GrapherConfig, error) {
	res := make([]*domain.GrapherConfig, 0, len(rows))
	for _, row := range rows {
		if row.PublishedAt == nil || !row.IsIndexable {
			continue
		}

		grapher, err := row.Grapher()
		if err != nil {
			return nil, err
		}

		if grapher.HasChartTab &&
			grapher.Type == domain.ChartTypeLineChart &&
			len(grapher.Dimensions) == 1 {
			res = append(res, grapher)
		}
	}
	return res, nil
}

// EntityLookup maps entity codes to ids and back. Build it once per run.
type EntityLookup struct {
	idByCode map[string]int64
	codeByID map[int64]string
}

func NewEntityLookup(entities []*domain.Entity) *EntityLookup {
	l := &EntityLookup{
		idByCode: make(map[string]int64, len(entities)),
		codeByID: make(map[int64]string, len(entities)),
	}
	for _, e := range entities {
		if e.Code == "" {
			continue
		}
		l.idByCode[e.Code] = e.ID
		l.codeByID[e.ID] = e.Code
	}
	return l
}

// Restrict returns a lookup holding only the given codes, plus the codes that had no entity.
func (l *EntityLookup) Restrict(codes []string) (*EntityLookup, []string) {
	restricted := &EntityLookup{
		idByCode: make(map[string]int64, len(codes)),
		codeByID: make(map[int64]string, len(codes)),
	}

	var missing []string
	for _, code := range codes {
		id, ok := l.idByCode[code]
		if !ok {
			missing = append(missing, code)
			continue
		}
		restricted.idByCode[code] = id
		restricted.codeByID[id] = code
	}
	return restricted, missing
}

func (l *EntityLookup) ID(code string) (int64, bool) {
	id, ok := l.idByCode[code]
	return id, ok
}

func (l *EntityLookup) Code(id int64) (string, bool) {
	code, ok := l.codeByID[id]
	return code, ok
}

// IDs returns entity ids in ascending order.
func (l *EntityLookup) IDs() []int64 {
	ids := make([]int64, 0, len(l.codeByID))
	for id := range l.codeByID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (l *EntityLookup) Len() int {
	return len(l.codeByID)
}

type LatestKey struct {
	VariableID int64
	EntityID   int64
}

// LatestIndex holds one observation per (variable, entity).
type LatestIndex map[LatestKey]*domain.DataValue

// Dropped counts rows left out of an aggregation.
type Dropped struct {
	OutOfWindow     int
	UnknownEntity   int
	UnknownVariable int
}

// Orphans counts rows that referenced an entity or variable we do not know.
func (d Dropped) Orphans() int {
	return d.UnknownEntity + d.UnknownVariable
}

func (d Dropped) String() string {
	return fmt.Sprintf("out of window: %d, unknown entity: %d, unknown variable: %d",
		d.OutOfWindow, d.UnknownEntity, d.UnknownVariable)
}

// BuildLatestValuesIndex keeps, for each (variable, entity), the observation with the
// greatest year inside window. Among rows sharing that year the first one in input
// order wins, which for a year-descending query is the first row the database returned.
//
// Rows whose entity is not in lookup, or whose variable is not in variableIDs, are
// dropped and counted. A nil variableIDs accepts every variable.
func BuildLatestValuesIndex(
	values []*domain.DataValue,
	window domain.YearWindow,
	lookup *EntityLookup,
	variableIDs []int64,
) (LatestIndex, Dropped) {
	var knownVariables map[int64]struct{}
	if variableIDs != nil {
		knownVariables = make(map[int64]struct{}, len(variableIDs))
		for _, id := range variableIDs {
			knownVariables[id] = struct{}{}
		}
	}

	var dropped Dropped
	index := make(LatestIndex)
	for _, dv := range values {
		if !window.Contains(dv.Year) {
			dropped.OutOfWindow++
			continue
		}
		if _, ok := lookup.Code(dv.EntityID); !ok {
			dropped.UnknownEntity++
			continue
		}
		if knownVariables != nil {
			if _, ok := knownVariables[dv.VariableID]; !ok {
				dropped.UnknownVariable++
				continue
			}
		}

		key := LatestKey{VariableID: dv.VariableID, EntityID: dv.EntityID}
		if cur, ok := index[key]; ok && cur.Year >= dv.Year {
			continue
		}
		index[key] = dv
	}

	return index, dropped
}

// LatestByCode is keyed by entity code, then by variable id.
type LatestByCode map[string]map[int64]*domain.LatestValue

// GroupLatestByEntityCode re-keys idx by entity code. Entries whose entity id has no
// code in lookup are dropped and counted.
func GroupLatestByEntityCode(idx LatestIndex, lookup *EntityLookup) (LatestByCode, int) {
	res := make(LatestByCode)
	dropped := 0
	for key, dv := range idx {
		code, ok := lookup.Code(key.EntityID)
		if !ok {
			dropped++
			continue
		}
		if res[code] == nil {
			res[code] = make(map[int64]*domain.LatestValue)
		}
		res[code][key.VariableID] = &domain.LatestValue{
			VariableID:  key.VariableID,
			CountryCode: code,
			Year:        dv.Year,
			Value:       dv.Value,
		}
	}
	return res, dropped
}

// Rows flattens the grouping into country_latest_data rows ordered by variable and code.
func (g LatestByCode) Rows() []*domain.LatestValue {
	var rows []*domain.LatestValue
	for _, byVariable := range g {
		for _, r := range byVariable {
			rows = append(rows, r)
		}
	}

	slices.SortFunc(rows, func(a, b *domain.LatestValue) int {
		if c := cmp.Compare(a.VariableID, b.VariableID); c != 0 {
			return c
		}
		return cmp.Compare(a.CountryCode, b.CountryCode)
	})
	return rows
}

// GroupLatestRowsByCode groups stored country_latest_data rows. If a (code, variable)
// pair repeats, the latest year is kept.
func GroupLatestRowsByCode(rows []*domain.LatestValue) LatestByCode {
	res := make(LatestByCode)
	for _, r := range rows {
		byVariable := res[r.CountryCode]
		if byVariable == nil {
			byVariable = make(map[int64]*domain.LatestValue)
			res[r.CountryCode] = byVariable
		}
		if cur, ok := byVariable[r.VariableID]; ok && cur.Year >= r.Year {
			continue
		}
		byVariable[r.VariableID] = r
	}
	return res
}
