package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/store/xpgx"
)

var variableColumns = []string{
	"id", "name", "unit", "coalesce(description, '') as description",
	"coalesce(display, '{}'::jsonb) as display", "dataset_id", "column_order",
}

type ListDataValuesOpts struct {
	VariableIDs []int64
	EntityIDs   []int64
	Window      domain.YearWindow
}

func (s *store) ListValidatedEntities(ctx context.Context) ([]*domain.Entity, error) {
	query := builder().Select("id", "code", "name", "validated").
		From(tableEntities).
		Where(sq.And{
			sq.Eq{"validated": true},
			sq.NotEq{"code": nil},
		})

	selected, err := xpgx.Selectx[domain.Entity](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}
	return selected, nil
}

func (s *store) ListVariablesByIDs(ctx context.Context, ids []int64) ([]*domain.Variable, error) {
	query := builder().Select(variableColumns...).
		From(tableVariables).
		Where(sq.Eq{"id": ids})

	selected, err := xpgx.Selectx[domain.Variable](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select variables: %w", err)
	}
	return selected, nil
}

// dataValuesQuery orders by year descending so the first row per key is the latest.
func dataValuesQuery(opts ListDataValuesOpts) sq.SelectBuilder {
	return builder().Select("variable_id", "entity_id", "value", "year").
		From(tableDataValues).
		Where(sq.And{
			sq.Eq{"variable_id": opts.VariableIDs},
			sq.Eq{"entity_id": opts.EntityIDs},
			sq.Gt{"year": opts.Window.After},
			sq.Lt{"year": opts.Window.Before},
		}).
		OrderBy("year desc", "variable_id", "entity_id")
}

func (s *store) ListDataValues(ctx context.Context, opts ListDataValuesOpts) ([]*domain.DataValue, error) {
	if len(opts.VariableIDs) == 0 || len(opts.EntityIDs) == 0 {
		return nil, nil
	}

	selected, err := xpgx.Selectx[domain.DataValue](ctx, s.pool, dataValuesQuery(opts))
	if err != nil {
		return nil, fmt.Errorf("select data values: %w", err)
	}
	return selected, nil
}
