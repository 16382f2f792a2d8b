package charts

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/domain/dto"
	"github.com/ougirez/databaker/internal/pkg/store"
	"github.com/ougirez/databaker/internal/pkg/utils"
)

type Service struct {
	store   store.Store
	baseURL string
}

func NewService(store store.Store, baseURL string) *Service {
	return &Service{store: store, baseURL: baseURL}
}

func (s *Service) tagsByChart(ctx context.Context) (map[int64][]domain.Tag, error) {
	chartTags, err := s.store.ListChartTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListChartTags: %w", err)
	}

	res := make(map[int64][]domain.Tag)
	for _, ct := range chartTags {
		res[ct.ChartID] = append(res[ct.ChartID], domain.Tag{ID: ct.TagID, Name: ct.TagName})
	}
	return res, nil
}

// IndexPage groups published indexable charts by tag.
func (s *Service) IndexPage(ctx context.Context) (*dto.ChartsIndexPage, error) {
	rows, err := s.store.ListIndexableCharts(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListIndexableCharts: %w", err)
	}
	tags, err := s.tagsByChart(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ChartIndexItem, 0, len(rows))
	for _, row := range rows {
		g, err := row.Grapher()
		if err != nil {
			return nil, err
		}
		items = append(items, dto.ChartIndexItem{
			ID:          row.ID,
			Title:       g.Title,
			Slug:        g.Slug,
			VariantName: g.VariantName,
			Tags:        tags[row.ID],
		})
	}

	return &dto.ChartsIndexPage{BaseURL: s.baseURL, Tags: GroupByTag(items)}, nil
}

// GroupByTag returns every tag used by items, unique by id and sorted by name,
// each with its charts sorted by trimmed title.
func GroupByTag(items []dto.ChartIndexItem) []dto.TagWithCharts {
	byID := make(map[int64]*dto.TagWithCharts)
	for _, item := range items {
		for _, tag := range item.Tags {
			t, ok := byID[tag.ID]
			if !ok {
				t = &dto.TagWithCharts{ID: tag.ID, Name: tag.Name, Slug: utils.Slugify(tag.Name)}
				byID[tag.ID] = t
			}
			if !slices.ContainsFunc(t.Charts, func(c dto.ChartIndexItem) bool { return c.ID == item.ID }) {
				t.Charts = append(t.Charts, item)
			}
		}
	}

	res := make([]dto.TagWithCharts, 0, len(byID))
	for _, t := range byID {
		slices.SortStableFunc(t.Charts, func(a, b dto.ChartIndexItem) int {
			if c := strings.Compare(strings.TrimSpace(a.Title), strings.TrimSpace(b.Title)); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		res = append(res, *t)
	}
	slices.SortFunc(res, func(a, b dto.TagWithCharts) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return res
}

// ListCharts returns every chart for the admin chart list, most recently edited first.
func (s *Service) ListCharts(ctx context.Context) ([]*domain.ChartListItem, error) {
	rows, err := s.store.ListCharts(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListCharts: %w", err)
	}
	tags, err := s.tagsByChart(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]*domain.ChartListItem, 0, len(rows))
	for _, row := range rows {
		g, err := row.Grapher()
		if err != nil {
			return nil, err
		}

		chartTags := tags[row.ID]
		if chartTags == nil {
			chartTags = []domain.Tag{}
		}
		res = append(res, &domain.ChartListItem{
			ID:           row.ID,
			Title:        g.Title,
			Slug:         g.Slug,
			Type:         g.Type,
			VariantName:  g.VariantName,
			IsPublished:  row.PublishedAt != nil,
			HasChartTab:  g.HasChartTab,
			HasMapTab:    g.HasMapTab,
			LastEditedAt: row.LastEditedAt,
			PublishedAt:  row.PublishedAt,
			Tags:         chartTags,
		})
	}

	slices.SortStableFunc(res, func(a, b *domain.ChartListItem) int {
		return b.LastEditedAt.Compare(a.LastEditedAt)
	})
	return res, nil
}
