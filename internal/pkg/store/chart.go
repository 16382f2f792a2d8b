package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/store/xpgx"
)

var chartColumns = []string{"id", "config", "published_at", "is_indexable", "last_edited_at"}

func indexableChartsQuery() sq.SelectBuilder {
	return builder().Select(chartColumns...).
		From(tableCharts).
		Where(sq.And{
			sq.NotEq{"published_at": nil},
			sq.Eq{"is_indexable": true},
		}).
		OrderBy("id")
}

func (s *store) ListIndexableCharts(ctx context.Context) ([]*domain.ChartRow, error) {
	selected, err := xpgx.Selectx[domain.ChartRow](ctx, s.pool, indexableChartsQuery())
	if err != nil {
		return nil, fmt.Errorf("select indexable charts: %w", err)
	}
	return selected, nil
}

func (s *store) ListCharts(ctx context.Context) ([]*domain.ChartRow, error) {
	query := builder().Select(chartColumns...).
		From(tableCharts).
		OrderBy("last_edited_at desc")

	selected, err := xpgx.Selectx[domain.ChartRow](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select charts: %w", err)
	}
	return selected, nil
}

func (s *store) ListChartTags(ctx context.Context) ([]*domain.ChartTag, error) {
	query := builder().Select("ct.chart_id", "ct.tag_id", "t.name as tag_name").
		From(tableChartTags + " ct").
		Join(tableTags + " t on t.id=ct.tag_id").
		OrderBy("ct.chart_id", "t.name")

	selected, err := xpgx.Selectx[domain.ChartTag](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select chart tags: %w", err)
	}
	return selected, nil
}
