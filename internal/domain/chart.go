package domain

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

const ChartTypeLineChart = "LineChart"

// ChartRow is a row of the charts table with its config still serialized.
type ChartRow struct {
	ID           int64      `db:"id"`
	Config       []byte     `db:"config"`
	PublishedAt  *time.Time `db:"published_at"`
	IsIndexable  bool       `db:"is_indexable"`
	LastEditedAt time.Time  `db:"last_edited_at"`
}

func (r *ChartRow) Grapher() (*GrapherConfig, error) {
	var cfg GrapherConfig
	if err := sonic.Unmarshal(r.Config, &cfg); err != nil {
		return nil, fmt.Errorf("chart %d: sonic.Unmarshal: %w", r.ID, err)
	}
	if cfg.ID == 0 {
		cfg.ID = r.ID
	}
	return &cfg, nil
}

type ChartDimension struct {
	Property   string `json:"property"`
	VariableID int64  `json:"variableId"`
}

// GrapherConfig is the subset of a chart config the baking pipeline reads.
type GrapherConfig struct {
	ID          int64            `json:"id"`
	Slug        string           `json:"slug"`
	Title       string           `json:"title"`
	Type        string           `json:"type"`
	VariantName string           `json:"variantName,omitempty"`
	IsPublished bool             `json:"isPublished"`
	HasChartTab bool             `json:"hasChartTab"`
	HasMapTab   bool             `json:"hasMapTab"`
	Dimensions  []ChartDimension `json:"dimensions"`
}

// ChartTag links a chart to a tag.
type ChartTag struct {
	ChartID int64  `db:"chart_id"`
	TagID   int64  `db:"tag_id"`
	TagName string `db:"tag_name"`
}

type ChartListItem struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Type         string     `json:"type"`
	VariantName  string     `json:"variantName,omitempty"`
	IsPublished  bool       `json:"isPublished"`
	HasChartTab  bool       `json:"hasChartTab"`
	HasMapTab    bool       `json:"hasMapTab"`
	LastEditedAt time.Time  `json:"lastEditedAt"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Tags         []Tag      `json:"tags"`
}
