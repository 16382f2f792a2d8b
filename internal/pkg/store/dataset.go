package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/store/xpgx"
)

var datasetColumns = []string{
	"id", "name", "namespace", "description", "created_at", "updated_at",
	"metadata_edited_at", "metadata_edited_by_user_id", "data_edited_at", "data_edited_by_user_id",
	"is_private", "non_redistributable",
}

func (s *store) GetDataset(ctx context.Context, id int64) (*domain.Dataset, error) {
	query := builder().Select(datasetColumns...).
		From(tableDatasets).
		Where(sq.Eq{"id": id})

	selected, err := xpgx.Getx[domain.Dataset](ctx, s.pool, query)
	if err != nil {
		return nil, wrapErr(err)
	}
	return selected, nil
}

func (s *store) ListDatasets(ctx context.Context) ([]*domain.Dataset, error) {
	query := builder().Select(datasetColumns...).
		From(tableDatasets).
		OrderBy("id")

	selected, err := xpgx.Selectx[domain.Dataset](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select datasets: %w", err)
	}
	return selected, nil
}

func (s *store) ListDatasetVariables(ctx context.Context, datasetID int64) ([]*domain.Variable, error) {
	query := builder().Select(variableColumns...).
		From(tableVariables).
		Where(sq.Eq{"dataset_id": datasetID}).
		OrderBy("column_order asc", "id asc")

	selected, err := xpgx.Selectx[domain.Variable](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select dataset variables: %w", err)
	}
	return selected, nil
}

func datasetValuesQuery(datasetID int64) sq.SelectBuilder {
	return builder().Select("e.name as entity", "dv.year", "dv.value", "dv.variable_id").
		From(tableDataValues + " dv").
		Join(tableVariables + " v on v.id=dv.variable_id").
		Join(tableEntities + " e on e.id=dv.entity_id").
		Where(sq.Eq{"v.dataset_id": datasetID}).
		OrderBy("e.name asc", "dv.year asc", "v.column_order asc", "dv.variable_id asc")
}

func (s *store) ListDatasetValues(ctx context.Context, datasetID int64) ([]*domain.DatasetValue, error) {
	selected, err := xpgx.Selectx[domain.DatasetValue](ctx, s.pool, datasetValuesQuery(datasetID))
	if err != nil {
		return nil, fmt.Errorf("select dataset values: %w", err)
	}
	return selected, nil
}

func (s *store) ListDatasetSources(ctx context.Context, datasetID int64) ([]*domain.Source, error) {
	query := builder().Select("id", "dataset_id", "name", "coalesce(description, '{}'::jsonb) as description").
		From(tableSources).
		Where(sq.Eq{"dataset_id": datasetID}).
		OrderBy("id")

	selected, err := xpgx.Selectx[domain.Source](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select sources: %w", err)
	}
	return selected, nil
}

func (s *store) ListDatasetTags(ctx context.Context, datasetID int64) ([]*domain.Tag, error) {
	query := builder().Select("t.id", "t.name").
		From(tableDatasetTags + " dt").
		Join(tableTags + " t on t.id=dt.tag_id").
		Where(sq.Eq{"dt.dataset_id": datasetID}).
		OrderBy("t.name")

	selected, err := xpgx.Selectx[domain.Tag](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select dataset tags: %w", err)
	}
	return selected, nil
}

func (s *store) SetDatasetTags(ctx context.Context, datasetID int64, tagIDs []int64) error {
	err := xpgx.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		del := builder().Delete(tableDatasetTags).
			Where(sq.Eq{"dataset_id": datasetID})
		if _, err := xpgx.Execx(ctx, tx, del); err != nil {
			return fmt.Errorf("delete %s: %w", tableDatasetTags, err)
		}

		if len(tagIDs) == 0 {
			return nil
		}

		ins := builder().Insert(tableDatasetTags).Columns("tag_id", "dataset_id")
		for _, tagID := range tagIDs {
			ins = ins.Values(tagID, datasetID)
		}
		if _, err := xpgx.Execx(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert %s: %w", tableDatasetTags, err)
		}
		return nil
	})
	if err != nil {
		return txFailure(err)
	}
	return nil
}
