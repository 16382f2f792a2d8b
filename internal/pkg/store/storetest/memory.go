// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/ougirez/databaker/internal/pkg/store"
)

type Memory struct {
	mx sync.Mutex

	Charts     []*domain.ChartRow
	ChartTags  []*domain.ChartTag
	Entities   []*domain.Entity
	Variables  []*domain.Variable
	DataValues []*domain.DataValue
	Latest     []*domain.LatestValue

	Datasets    []*domain.Dataset
	Sources     []*domain.Source
	Tags        []*domain.Tag
	DatasetTags map[int64][]int64
	// EntityNames backs ListDatasetValues; keyed by entity id.
	EntityNames map[int64]string

	// FailReplace makes ReplaceLatestValues fail after the delete step, leaving Latest intact.
	FailReplace error
	// Errors makes the named dataset reads fail.
	Errors map[string]error

	Calls map[string]int
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		DatasetTags: map[int64][]int64{},
		EntityNames: map[int64]string{},
		Calls:       map[string]int{},
	}
}

func (m *Memory) called(name string) error {
	if m.Calls == nil {
		m.Calls = map[string]int{}
	}
	m.Calls[name]++
	return m.Errors[name]
}

func (m *Memory) ListIndexableCharts(ctx context.Context) ([]*domain.ChartRow, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ListIndexableCharts")

	var res []*domain.ChartRow
	for _, c := range m.Charts {
		if c.PublishedAt != nil && c.IsIndexable {
			res = append(res, c)
		}
	}
	return res, nil
}

func (m *Memory) ListCharts(ctx context.Context) ([]*domain.ChartRow, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ListCharts")
	return slices.Clone(m.Charts), nil
}

func (m *Memory) ListChartTags(ctx context.Context) ([]*domain.ChartTag, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ListChartTags")
	return slices.Clone(m.ChartTags), nil
}

func (m *Memory) ListValidatedEntities(ctx context.Context) ([]*domain.Entity, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ListValidatedEntities")

	var res []*domain.Entity
	for _, e := range m.Entities {
		if e.Validated && e.Code != "" {
			res = append(res, e)
		}
	}
	return res, nil
}

func (m *Memory) ListVariablesByIDs(ctx context.Context, ids []int64) ([]*domain.Variable, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ListVariablesByIDs")

	var res []*domain.Variable
	for _, v := range m.Variables {
		if slices.Contains(ids, v.ID) {
			res = append(res, v)
		}
	}
	return res, nil
}

func (m *Memory) ListDataValues(ctx context.Context, opts store.ListDataValuesOpts) ([]*domain.DataValue, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ListDataValues")

	var res []*domain.DataValue
	for _, dv := range m.DataValues {
		if slices.Contains(opts.VariableIDs, dv.VariableID) &&
			slices.Contains(opts.EntityIDs, dv.EntityID) &&
			opts.Window.Contains(dv.Year) {
			res = append(res, dv)
		}
	}
	// stable, so equal years keep insertion order like an unordered tie in the database
	slices.SortStableFunc(res, func(a, b *domain.DataValue) int {
		return cmp.Compare(b.Year, a.Year)
	})
	return res, nil
}

func (m *Memory) ReplaceLatestValues(ctx context.Context, variableIDs []int64, rows []*domain.LatestValue) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ReplaceLatestValues")

	kept := make([]*domain.LatestValue, 0, len(m.Latest))
	for _, r := range m.Latest {
		if !slices.Contains(variableIDs, r.VariableID) {
			kept = append(kept, r)
		}
	}

	if m.FailReplace != nil {
		return fmt.Errorf("%w: %w", constants.ErrTransactionFailure, m.FailReplace)
	}

	for _, r := range rows {
		cp := *r
		kept = append(kept, &cp)
	}
	m.Latest = kept
	return nil
}

func (m *Memory) ListLatestValues(ctx context.Context) ([]*domain.LatestValue, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("ListLatestValues")
	return slices.Clone(m.Latest), nil
}

func (m *Memory) GetDataset(ctx context.Context, id int64) (*domain.Dataset, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("GetDataset")

	for _, d := range m.Datasets {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, constants.ErrDBNotFound
}

func (m *Memory) ListDatasets(ctx context.Context) ([]*domain.Dataset, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.called("ListDatasets"); err != nil {
		return nil, err
	}
	return slices.Clone(m.Datasets), nil
}

func (m *Memory) ListDatasetVariables(ctx context.Context, datasetID int64) ([]*domain.Variable, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.called("ListDatasetVariables"); err != nil {
		return nil, err
	}

	var res []*domain.Variable
	for _, v := range m.Variables {
		if v.DatasetID == datasetID {
			res = append(res, v)
		}
	}
	slices.SortStableFunc(res, func(a, b *domain.Variable) int {
		if c := cmp.Compare(a.ColumnOrder, b.ColumnOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return res, nil
}

// ListDatasetValues returns values in insertion order, so tests control the sort precondition.
func (m *Memory) ListDatasetValues(ctx context.Context, datasetID int64) ([]*domain.DatasetValue, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.called("ListDatasetValues"); err != nil {
		return nil, err
	}

	inDataset := map[int64]bool{}
	for _, v := range m.Variables {
		if v.DatasetID == datasetID {
			inDataset[v.ID] = true
		}
	}

	var res []*domain.DatasetValue
	for _, dv := range m.DataValues {
		if !inDataset[dv.VariableID] {
			continue
		}
		res = append(res, &domain.DatasetValue{
			Entity:     m.EntityNames[dv.EntityID],
			Year:       dv.Year,
			Value:      dv.Value,
			VariableID: dv.VariableID,
		})
	}
	return res, nil
}

func (m *Memory) ListDatasetSources(ctx context.Context, datasetID int64) ([]*domain.Source, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.called("ListDatasetSources"); err != nil {
		return nil, err
	}

	var res []*domain.Source
	for _, s := range m.Sources {
		if s.DatasetID == datasetID {
			res = append(res, s)
		}
	}
	return res, nil
}

func (m *Memory) ListDatasetTags(ctx context.Context, datasetID int64) ([]*domain.Tag, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.called("ListDatasetTags"); err != nil {
		return nil, err
	}

	var res []*domain.Tag
	for _, id := range m.DatasetTags[datasetID] {
		for _, t := range m.Tags {
			if t.ID == id {
				res = append(res, t)
			}
		}
	}
	return res, nil
}

func (m *Memory) SetDatasetTags(ctx context.Context, datasetID int64, tagIDs []int64) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.called("SetDatasetTags")

	m.DatasetTags[datasetID] = slices.Clone(tagIDs)
	return nil
}

func (m *Memory) CallCount(name string) int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.Calls[name]
}

// LatestSnapshot returns a copy of the denormalized rows.
func (m *Memory) LatestSnapshot() []domain.LatestValue {
	m.mx.Lock()
	defer m.mx.Unlock()

	res := make([]domain.LatestValue, 0, len(m.Latest))
	for _, r := range m.Latest {
		res = append(res, *r)
	}
	return res
}
