package dto

import (
	"github.com/ougirez/databaker/internal/domain"
)

type CountryProfileIndicator struct {
	Year        domain.Year
	Name        string
	Slug        string
	VariantName string
	Value       string
}

type CountryProfilePage struct {
	BaseURL    string
	Country    domain.Country
	Indicators []CountryProfileIndicator
}

type CountriesIndexPage struct {
	BaseURL   string
	Countries []domain.Country
}

type ChartIndexItem struct {
	ID          int64
	Title       string
	Slug        string
	VariantName string
	Tags        []domain.Tag
}

type TagWithCharts struct {
	ID     int64
	Name   string
	Slug   string
	Charts []ChartIndexItem
}

type ChartsIndexPage struct {
	BaseURL string
	Tags    []TagWithCharts
}

type ExplorerPage struct {
	BaseURL string
	Program *domain.ExplorerProgram
	// MigrationID and BaseQueryStr are set when the page is baked as a redirect target.
	MigrationID  string
	BaseQueryStr string
}
