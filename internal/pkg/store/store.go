package store

import (
	"context"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/store/xpgx"
)

type Pool = xpgx.Pool

type Store interface {
	ChartStore
	EntityStore
	LatestDataStore
	DatasetStore
}

type store struct {
	pool Pool
}

func NewStore(pool Pool) Store {
	return &store{pool}
}

type ChartStore interface {
	// ListIndexableCharts returns published, indexable charts.
	ListIndexableCharts(ctx context.Context) ([]*domain.ChartRow, error)
	ListCharts(ctx context.Context) ([]*domain.ChartRow, error)
	ListChartTags(ctx context.Context) ([]*domain.ChartTag, error)
}

type EntityStore interface {
	// ListValidatedEntities returns validated entities that carry a code.
	ListValidatedEntities(ctx context.Context) ([]*domain.Entity, error)
	ListVariablesByIDs(ctx context.Context, ids []int64) ([]*domain.Variable, error)
	ListDataValues(ctx context.Context, opts ListDataValuesOpts) ([]*domain.DataValue, error)
}

type LatestDataStore interface {
	// ReplaceLatestValues deletes the rows of variableIDs and inserts rows in one transaction.
	ReplaceLatestValues(ctx context.Context, variableIDs []int64, rows []*domain.LatestValue) error
	ListLatestValues(ctx context.Context) ([]*domain.LatestValue, error)
}

type DatasetStore interface {
	GetDataset(ctx context.Context, id int64) (*domain.Dataset, error)
	ListDatasets(ctx context.Context) ([]*domain.Dataset, error)
	ListDatasetVariables(ctx context.Context, datasetID int64) ([]*domain.Variable, error)
	ListDatasetValues(ctx context.Context, datasetID int64) ([]*domain.DatasetValue, error)
	ListDatasetSources(ctx context.Context, datasetID int64) ([]*domain.Source, error)
	ListDatasetTags(ctx context.Context, datasetID int64) ([]*domain.Tag, error)
	SetDatasetTags(ctx context.Context, datasetID int64, tagIDs []int64) error
}
