package indicators_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/bakecache"
	"github.com/ougirez/databaker/internal/pkg/store/storetest"
	"github.com/ougirez/databaker/internal/service/indicators"
)

var window = domain.YearWindow{After: 2010, Before: 2020}

func chartRow(id int64, published, indexable bool, config string) *domain.ChartRow {
	row := &domain.ChartRow{ID: id, Config: []byte(config), IsIndexable: indexable}
	if published {
		at := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
		row.PublishedAt = &at
	}
	return row
}

func lineChart(slug string, variableIDs ...int64) string {
	dims := ""
	for i, id := range variableIDs {
		if i > 0 {
			dims += ","
		}
		dims += fmt.Sprintf(`{"property":"y","variableId":%d}`, id)
	}
	return fmt.Sprintf(`{"slug":%q,"title":%q,"type":"LineChart","hasChartTab":true,"dimensions":[%s]}`, slug, slug, dims)
}

func TestSelectIndicatorSeries(t *testing.T) {
	c := qt.New(t)

	rows := []*domain.ChartRow{
		chartRow(1, true, true, lineChart("gdp", 10)),
		chartRow(2, false, true, lineChart("unpublished", 11)),
		chartRow(3, true, false, lineChart("not-indexable", 12)),
		chartRow(4, true, true, lineChart("two-dims", 13, 14)),
		chartRow(5, true, true, `{"slug":"map-only","type":"LineChart","hasChartTab":false,"dimensions":[{"variableId":15}]}`),
		chartRow(6, true, true, `{"slug":"bars","type":"DiscreteBar","hasChartTab":true,"dimensions":[{"variableId":16}]}`),
		chartRow(7, true, true, lineChart("no-dims")),
	}

	selected, err := indicators.SelectIndicatorSeries(rows)
	c.Assert(err, qt.IsNil)
	c.Assert(selected, qt.HasLen, 1)
	c.Check(selected[0].Slug, qt.Equals, "gdp")
	c.Check(selected[0].ID, qt.Equals, int64(1))
	c.Check(selected[0].Dimensions[0].VariableID, qt.Equals, int64(10))

	_, err = indicators.SelectIndicatorSeries([]*domain.ChartRow{chartRow(9, true, true, `{not json`)})
	c.Check(err, qt.ErrorMatches, "chart 9: .*")
}

func lookup() *indicators.EntityLookup {
	return indicators.NewEntityLookup([]*domain.Entity{
		{ID: 1, Code: "FRA", Validated: true},
		{ID: 2, Code: "DEU", Validated: true},
		{ID: 3, Code: "OWID_WRL", Validated: true},
	})
}

func TestEntityLookup(t *testing.T) {
	c := qt.New(t)

	l := lookup()
	restricted, missing := l.Restrict([]string{"DEU", "FRA", "ATL"})
	c.Check(missing, qt.DeepEquals, []string{"ATL"})
	c.Check(restricted.IDs(), qt.DeepEquals, []int64{1, 2})
	c.Check(restricted.Len(), qt.Equals, 2)

	_, ok := restricted.Code(3)
	c.Check(ok, qt.IsFalse)
	id, ok := restricted.ID("DEU")
	c.Check(ok, qt.IsTrue)
	c.Check(id, qt.Equals, int64(2))
}

func TestBuildLatestValuesIndex(t *testing.T) {
	c := qt.New(t)

	values := []*domain.DataValue{
		{VariableID: 10, EntityID: 1, Year: 2019, Value: "first-2019"},
		{VariableID: 10, EntityID: 1, Year: 2019, Value: "second-2019"},
		{VariableID: 10, EntityID: 1, Year: 2015, Value: "older"},
		{VariableID: 10, EntityID: 2, Year: 2020, Value: "outside"},
		{VariableID: 10, EntityID: 2, Year: 2011, Value: "deu"},
		{VariableID: 10, EntityID: 99, Year: 2018, Value: "orphan entity"},
		{VariableID: 77, EntityID: 1, Year: 2018, Value: "orphan variable"},
	}

	index, dropped := indicators.BuildLatestValuesIndex(values, window, lookup(), []int64{10})
	c.Check(dropped, qt.Equals, indicators.Dropped{OutOfWindow: 1, UnknownEntity: 1, UnknownVariable: 1})
	c.Check(dropped.Orphans(), qt.Equals, 2)
	c.Assert(index, qt.HasLen, 2)
	c.Check(index[indicators.LatestKey{VariableID: 10, EntityID: 1}].Value, qt.Equals, "first-2019")
	c.Check(index[indicators.LatestKey{VariableID: 10, EntityID: 2}].Value, qt.Equals, "deu")

	grouped, unknown := indicators.GroupLatestByEntityCode(index, lookup())
	c.Check(unknown, qt.Equals, 0)
	c.Check(grouped.Rows(), qt.DeepEquals, []*domain.LatestValue{
		{VariableID: 10, CountryCode: "DEU", Year: 2011, Value: "deu"},
		{VariableID: 10, CountryCode: "FRA", Year: 2019, Value: "first-2019"},
	})

	t.Run("nil variable ids accept every variable", func(t *testing.T) {
		c := qt.New(t)
		index, dropped := indicators.BuildLatestValuesIndex(values, window, lookup(), nil)
		c.Check(dropped.UnknownVariable, qt.Equals, 0)
		c.Check(index, qt.HasLen, 3)
	})
}

func TestBuildLatestValuesIndexKeepsMaxYear(t *testing.T) {
	c := qt.New(t)
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		var values []*domain.DataValue
		for i := 0; i < 200; i++ {
			values = append(values, &domain.DataValue{
				VariableID: int64(rnd.Intn(4)),
				EntityID:   int64(1 + rnd.Intn(3)),
				Year:       2005 + rnd.Intn(20),
				Value:      fmt.Sprint(i),
			})
		}

		maxYear := map[indicators.LatestKey]int{}
		for _, dv := range values {
			if !window.Contains(dv.Year) {
				continue
			}
			key := indicators.LatestKey{VariableID: dv.VariableID, EntityID: dv.EntityID}
			if y, ok := maxYear[key]; !ok || dv.Year > y {
				maxYear[key] = dv.Year
			}
		}

		index, _ := indicators.BuildLatestValuesIndex(values, window, lookup(), nil)
		c.Assert(index, qt.HasLen, len(maxYear))
		for key, dv := range index {
			c.Assert(dv.Year, qt.Equals, maxYear[key], qt.Commentf("key %+v", key))
		}
	}
}

func TestGroupLatestByEntityCode(t *testing.T) {
	c := qt.New(t)

	index := indicators.LatestIndex{
		{VariableID: 10, EntityID: 1}: {VariableID: 10, EntityID: 1, Year: 2018, Value: "1"},
		{VariableID: 11, EntityID: 1}: {VariableID: 11, EntityID: 1, Year: 2017, Value: "2"},
		{VariableID: 10, EntityID: 3}: {VariableID: 10, EntityID: 3, Year: 2016, Value: "3"},
	}
	only, _ := lookup().Restrict([]string{"FRA"})

	grouped, dropped := indicators.GroupLatestByEntityCode(index, only)
	c.Check(dropped, qt.Equals, 1)
	c.Assert(grouped, qt.HasLen, 1)
	c.Check(grouped["FRA"], qt.HasLen, 2)
	c.Check(grouped["FRA"][11].Value, qt.Equals, "2")
}

func TestGroupLatestRowsByCode(t *testing.T) {
	c := qt.New(t)

	grouped := indicators.GroupLatestRowsByCode([]*domain.LatestValue{
		{VariableID: 1, CountryCode: "FRA", Year: 2015, Value: "old"},
		{VariableID: 1, CountryCode: "FRA", Year: 2018, Value: "new"},
		{VariableID: 2, CountryCode: "DEU", Year: 2012, Value: "x"},
	})
	c.Check(grouped["FRA"][1].Value, qt.Equals, "new")
	c.Check(grouped["DEU"][2].Value, qt.Equals, "x")
}

func TestServiceCachesPerRun(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	mem := storetest.New()
	mem.Charts = []*domain.ChartRow{
		chartRow(1, true, true, lineChart("gdp", 10)),
		chartRow(2, true, true, lineChart("gdp-variant", 10)),
		chartRow(3, true, true, lineChart("life-expectancy", 20)),
	}
	mem.Variables = []*domain.Variable{{ID: 10, Name: "GDP"}, {ID: 20, Name: "Life expectancy"}, {ID: 30, Name: "Unused"}}
	mem.Latest = []*domain.LatestValue{{VariableID: 10, CountryCode: "FRA", Year: 2019, Value: "5"}}

	svc := indicators.NewService(mem, bakecache.New())

	ids, err := svc.IndicatorVariableIDs(ctx)
	c.Assert(err, qt.IsNil)
	c.Check(ids, qt.DeepEquals, []int64{10, 20})

	for i := 0; i < 2; i++ {
		vars, err := svc.IndicatorVariables(ctx)
		c.Assert(err, qt.IsNil)
		c.Check(vars, qt.HasLen, 2)

		latest, err := svc.LatestByCountry(ctx)
		c.Assert(err, qt.IsNil)
		c.Check(latest["FRA"][10].Value, qt.Equals, "5")
	}

	c.Check(mem.CallCount("ListIndexableCharts"), qt.Equals, 1)
	c.Check(mem.CallCount("ListVariablesByIDs"), qt.Equals, 1)
	c.Check(mem.CallCount("ListLatestValues"), qt.Equals, 1)

	fresh := indicators.NewService(mem, bakecache.New())
	_, err = fresh.IndicatorGraphers(ctx)
	c.Assert(err, qt.IsNil)
	c.Check(mem.CallCount("ListIndexableCharts"), qt.Equals, 2)
}
