package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/store/xpgx"
)

var latestColumns = []string{"variable_id", "country_code", "year", "value"}

func deleteLatestQuery(variableIDs []int64) sq.DeleteBuilder {
	return builder().Delete(tableCountryLatestData).
		Where(sq.Eq{"variable_id": variableIDs})
}

func insertLatestQuery(rows []*domain.LatestValue) sq.InsertBuilder {
	query := builder().Insert(tableCountryLatestData).
		Columns(latestColumns...)
	for _, r := range rows {
		query = query.Values(r.VariableID, r.CountryCode, r.Year, r.Value)
	}
	return query
}

// insertBatchSize keeps the bind parameter count under the postgres limit of 65535.
const insertBatchSize = 5000

func (s *store) ReplaceLatestValues(ctx context.Context, variableIDs []int64, rows []*domain.LatestValue) error {
	err := xpgx.RetryTx(ctx, s.pool, retryableTxErr, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "select pg_advisory_xact_lock($1)", latestDataLockKey); err != nil {
			return fmt.Errorf("pg_advisory_xact_lock: %w", err)
		}

		if _, err := xpgx.Execx(ctx, tx, deleteLatestQuery(variableIDs)); err != nil {
			return fmt.Errorf("delete %s: %w", tableCountryLatestData, err)
		}

		for start := 0; start < len(rows); start += insertBatchSize {
			end := min(start+insertBatchSize, len(rows))
			if _, err := xpgx.Execx(ctx, tx, insertLatestQuery(rows[start:end])); err != nil {
				return fmt.Errorf("insert %s: %w", tableCountryLatestData, err)
			}
		}

		return nil
	})
	if err != nil {
		return txFailure(err)
	}

	return nil
}

func (s *store) ListLatestValues(ctx context.Context) ([]*domain.LatestValue, error) {
	query := builder().Select(latestColumns...).
		From(tableCountryLatestData).
		OrderBy("country_code", "variable_id", "year desc")

	selected, err := xpgx.Selectx[domain.LatestValue](ctx, s.pool, query)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", tableCountryLatestData, err)
	}
	return selected, nil
}
