package denormalize_test

import (
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/ougirez/databaker/internal/pkg/countries"
	"github.com/ougirez/databaker/internal/pkg/store/storetest"
	"github.com/ougirez/databaker/internal/service/denormalize"
	"go.uber.org/goleak"
)

func fixture(c *qt.C) (*storetest.Memory, *denormalize.Job) {
	mem := storetest.New()
	published := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.Charts = []*domain.ChartRow{
		{ID: 1, PublishedAt: &published, IsIndexable: true,
			Config: []byte(`{"slug":"gdp","type":"LineChart","hasChartTab":true,"dimensions":[{"variableId":10}]}`)},
	}
	mem.Entities = []*domain.Entity{
		{ID: 1, Code: "FRA", Validated: true},
		{ID: 2, Code: "DEU", Validated: true},
		{ID: 3, Code: "OWID_WRL", Validated: true},
		{ID: 4, Code: "ESP", Validated: false},
	}
	mem.DataValues = []*domain.DataValue{
		{VariableID: 10, EntityID: 1, Year: 2015, Value: "1.5"},
		{VariableID: 10, EntityID: 1, Year: 2018, Value: "1.8"},
		{VariableID: 10, EntityID: 2, Year: 2012, Value: "2.2"},
		{VariableID: 10, EntityID: 2, Year: 2021, Value: "too new"},
		{VariableID: 10, EntityID: 3, Year: 2018, Value: "world"},
		{VariableID: 10, EntityID: 4, Year: 2018, Value: "unvalidated"},
		{VariableID: 20, EntityID: 1, Year: 2019, Value: "other variable"},
	}
	mem.Latest = []*domain.LatestValue{
		{VariableID: 10, CountryCode: "FRA", Year: 2001, Value: "stale"},
		{VariableID: 20, CountryCode: "FRA", Year: 2001, Value: "untouched"},
	}

	list, err := countries.New([]domain.Country{
		{Name: "France", Code: "FRA"},
		{Name: "Germany", Code: "DEU"},
		{Name: "Spain", Code: "ESP"},
	})
	c.Assert(err, qt.IsNil)

	job := denormalize.NewJob(mem, list)
	return mem, job
}

func TestMaterialize(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	mem, job := fixture(c)

	res, err := job.Materialize(ctx, nil)
	c.Assert(err, qt.IsNil)
	c.Check(res.VariableIDs, qt.DeepEquals, []int64{10})
	c.Check(res.RowsWritten, qt.Equals, 2)
	c.Check(res.MissingCountries, qt.DeepEquals, []string{"ESP"})

	c.Check(mem.LatestSnapshot(), qt.DeepEquals, []domain.LatestValue{
		{VariableID: 20, CountryCode: "FRA", Year: 2001, Value: "untouched"},
		{VariableID: 10, CountryCode: "DEU", Year: 2012, Value: "2.2"},
		{VariableID: 10, CountryCode: "FRA", Year: 2018, Value: "1.8"},
	})

	t.Run("running again yields the same rows", func(t *testing.T) {
		c := qt.New(t)
		before := mem.LatestSnapshot()

		_, err := job.Materialize(ctx, nil)
		c.Assert(err, qt.IsNil)
		c.Check(mem.LatestSnapshot(), qt.DeepEquals, before)
		c.Check(mem.CallCount("ListIndexableCharts"), qt.Equals, 2)
	})
}

func TestMaterializeExplicitVariables(t *testing.T) {
	c := qt.New(t)
	mem, job := fixture(c)

	res, err := job.Materialize(context.Background(), []int64{20})
	c.Assert(err, qt.IsNil)
	c.Check(res.RowsWritten, qt.Equals, 1)
	c.Check(mem.CallCount("ListIndexableCharts"), qt.Equals, 0)
	c.Check(mem.LatestSnapshot(), qt.DeepEquals, []domain.LatestValue{
		{VariableID: 10, CountryCode: "FRA", Year: 2001, Value: "stale"},
		{VariableID: 20, CountryCode: "FRA", Year: 2019, Value: "other variable"},
	})
}

func TestMaterializeEmptyResultClearsVariables(t *testing.T) {
	c := qt.New(t)
	mem, job := fixture(c)

	res, err := job.Materialize(context.Background(), []int64{99})
	c.Assert(err, qt.IsNil)
	c.Check(res.RowsWritten, qt.Equals, 0)
	c.Check(mem.LatestSnapshot(), qt.HasLen, 2)
}

func TestMaterializeFailureKeepsOldRows(t *testing.T) {
	c := qt.New(t)
	mem, job := fixture(c)
	mem.FailReplace = errors.New("connection reset")

	before := mem.LatestSnapshot()
	_, err := job.Materialize(context.Background(), nil)
	c.Check(err, qt.ErrorIs, constants.ErrTransactionFailure)
	c.Check(mem.LatestSnapshot(), qt.DeepEquals, before)
}

func TestWindow(t *testing.T) {
	c := qt.New(t)
	mem, _ := fixture(c)

	list, err := countries.New([]domain.Country{{Name: "Germany", Code: "DEU"}})
	c.Assert(err, qt.IsNil)
	job := denormalize.NewJob(mem, list,
		denormalize.WithWindow(domain.YearWindow{After: 2011, Before: 2030}))

	_, err = job.Materialize(context.Background(), []int64{10})
	c.Assert(err, qt.IsNil)
	c.Check(mem.LatestSnapshot(), qt.DeepEquals, []domain.LatestValue{
		{VariableID: 20, CountryCode: "FRA", Year: 2001, Value: "untouched"},
		{VariableID: 10, CountryCode: "DEU", Year: 2021, Value: "too new"},
	})
}

func TestStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("failures arrive on the channel", func(t *testing.T) {
		c := qt.New(t)
		mem, job := fixture(c)
		mem.FailReplace = errors.New("disk full")

		outcome := <-job.Start(context.Background(), nil)
		c.Check(outcome.Err, qt.ErrorMatches, ".*disk full")
		job.Wait()
	})

	t.Run("runner in background mode returns before the job ends", func(t *testing.T) {
		c := qt.New(t)
		mem, job := fixture(c)

		runner := denormalize.NewRunner(job, false)
		res, err := runner.Run(context.Background(), nil)
		c.Assert(err, qt.IsNil)
		c.Check(res.RowsWritten, qt.Equals, 0)

		runner.Wait()
		c.Check(mem.CallCount("ReplaceLatestValues"), qt.Equals, 1)

		status := runner.Status()
		c.Check(status.Running, qt.Equals, 0)
		c.Assert(status.Last, qt.IsNotNil)
		c.Check(status.Last.Err, qt.IsNil)
		c.Check(status.Last.Result.RowsWritten, qt.Equals, 2)
	})

	t.Run("background failures are kept for status checks", func(t *testing.T) {
		c := qt.New(t)
		mem, job := fixture(c)
		mem.FailReplace = errors.New("disk full")

		runner := denormalize.NewRunner(job, false)
		c.Check(runner.Status().Last, qt.IsNil)

		_, err := runner.Run(context.Background(), nil)
		c.Assert(err, qt.IsNil)
		runner.Wait()

		status := runner.Status()
		c.Assert(status.Last, qt.IsNotNil)
		c.Check(status.Last.Err, qt.ErrorIs, constants.ErrTransactionFailure)
		c.Check(status.Last.Err, qt.ErrorMatches, ".*disk full")
		c.Check(status.FinishedAt.IsZero(), qt.IsFalse)
	})

	t.Run("awaiting runner returns the result", func(t *testing.T) {
		c := qt.New(t)
		_, job := fixture(c)

		res, err := denormalize.NewRunner(job, true).Run(context.Background(), nil)
		c.Assert(err, qt.IsNil)
		c.Check(res.RowsWritten, qt.Equals, 2)
	})
}
