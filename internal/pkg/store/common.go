package store

import (
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ougirez/databaker/internal/pkg/constants"
)

const (
	tableCharts            = "charts"
	tableChartTags         = "chart_tags"
	tableTags              = "tags"
	tableEntities          = "entities"
	tableVariables         = "variables"
	tableDatasets          = "datasets"
	tableDatasetTags       = "dataset_tags"
	tableSources           = "sources"
	tableDataValues        = "data_values"
	tableCountryLatestData = "country_latest_data"
)

// latestDataLockKey serializes writers of country_latest_data across processes.
const latestDataLockKey int64 = 0x636c6474

var mapping = map[error]error{pgx.ErrNoRows: constants.ErrDBNotFound}

func wrapErr(err error) error {
	for k, v := range mapping {
		if errors.Is(err, k) {
			return fmt.Errorf("%w: %w", v, err)
		}
	}
	return err
}

// retryableTxErr reports errors after which rerunning the whole transaction may succeed.
func retryableTxErr(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return true
	}
	return false
}

func txFailure(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w (%s %s): %w", constants.ErrTransactionFailure, pgErr.Code, pgErr.ConstraintName, err)
	}
	return fmt.Errorf("%w: %w", constants.ErrTransactionFailure, err)
}

// builder возвращает squirrel SQL Builder обьект.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
