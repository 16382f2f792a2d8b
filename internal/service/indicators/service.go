package indicators

import (
	"context"
	"fmt"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/bakecache"
	"github.com/ougirez/databaker/internal/pkg/store"
)

const (
	slotGraphers  = "indicators.graphers"
	slotVariables = "indicators.variables"
	slotLatest    = "indicators.latest_by_country"
)

// Service loads the country-profile indicators once per baking run.
type Service struct {
	store store.Store
	cache *bakecache.Cache
}

func NewService(store store.Store, cache *bakecache.Cache) *Service {
	return &Service{store: store, cache: cache}
}

func (s *Service) IndicatorGraphers(ctx context.Context) ([]*domain.GrapherConfig, error) {
	return bakecache.Memoize(ctx, s.cache, slotGraphers, func(ctx context.Context) ([]*domain.GrapherConfig, error) {
		rows, err := s.store.ListIndexableCharts(ctx)
		if err != nil {
			return nil, fmt.Errorf("store.ListIndexableCharts: %w", err)
		}

		graphers, err := SelectIndicatorSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("SelectIndicatorSeries: %w", err)
		}
		return graphers, nil
	})
}

// IndicatorVariableIDs returns the variable of every indicator chart, in chart order.
func (s *Service) IndicatorVariableIDs(ctx context.Context) ([]int64, error) {
	graphers, err := s.IndicatorGraphers(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(graphers))
	seen := make(map[int64]struct{}, len(graphers))
	for _, g := range graphers {
		id := g.Dimensions[0].VariableID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Service) IndicatorVariables(ctx context.Context) (map[int64]*domain.Variable, error) {
	return bakecache.Memoize(ctx, s.cache, slotVariables, func(ctx context.Context) (map[int64]*domain.Variable, error) {
		ids, err := s.IndicatorVariableIDs(ctx)
		if err != nil {
			return nil, err
		}

		variables, err := s.store.ListVariablesByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("store.ListVariablesByIDs: %w", err)
		}

		res := make(map[int64]*domain.Variable, len(variables))
		for _, v := range variables {
			res[v.ID] = v
		}
		return res, nil
	})
}

// LatestByCountry reads the whole country_latest_data table and groups it by country code.
func (s *Service) LatestByCountry(ctx context.Context) (LatestByCode, error) {
	return bakecache.Memoize(ctx, s.cache, slotLatest, func(ctx context.Context) (LatestByCode, error) {
		rows, err := s.store.ListLatestValues(ctx)
		if err != nil {
			return nil, fmt.Errorf("store.ListLatestValues: %w", err)
		}
		return GroupLatestRowsByCode(rows), nil
	})
}
