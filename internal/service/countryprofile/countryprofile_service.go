package countryprofile

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/domain/dto"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/ougirez/databaker/internal/pkg/countries"
	"github.com/ougirez/databaker/internal/service/indicators"
	"github.com/shopspring/decimal"
)

type Service struct {
	indicators *indicators.Service
	countries  *countries.List
	baseURL    string
}

func NewService(indicators *indicators.Service, countries *countries.List, baseURL string) *Service {
	return &Service{indicators: indicators, countries: countries, baseURL: baseURL}
}

func (s *Service) IndexPage() *dto.CountriesIndexPage {
	return &dto.CountriesIndexPage{BaseURL: s.baseURL, Countries: s.countries.All()}
}

// Page builds the profile of the country with the given slug.
func (s *Service) Page(ctx context.Context, slug string) (*dto.CountryProfilePage, error) {
	country, ok := s.countries.BySlug(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrCountryNotFound, slug)
	}

	graphers, err := s.indicators.IndicatorGraphers(ctx)
	if err != nil {
		return nil, err
	}
	variables, err := s.indicators.IndicatorVariables(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.indicators.LatestByCountry(ctx)
	if err != nil {
		return nil, err
	}

	values := latest[country.Code]
	res := make([]dto.CountryProfileIndicator, 0, len(graphers))
	for _, g := range graphers {
		vid := g.Dimensions[0].VariableID
		dv, ok := values[vid]
		if !ok {
			continue
		}

		res = append(res, dto.CountryProfileIndicator{
			Year:        dv.Year,
			Name:        g.Title,
			Slug:        fmt.Sprintf("/grapher/%s?tab=chart&country=%s", g.Slug, country.Code),
			VariantName: g.VariantName,
			Value:       FormatValue(dv.Value, variables[vid]),
		})
	}

	slices.SortStableFunc(res, func(a, b dto.CountryProfileIndicator) int {
		return strings.Compare(strings.TrimSpace(a.Name), strings.TrimSpace(b.Name))
	})

	return &dto.CountryProfilePage{BaseURL: s.baseURL, Country: country, Indicators: res}, nil
}

// FormatValue applies the variable's conversion factor to numeric values.
// Non-numeric values are returned unchanged.
func FormatValue(raw string, v *domain.Variable) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if v != nil && v.Display.ConversionFactor != nil && *v.Display.ConversionFactor != 0 {
		d = d.Mul(decimal.NewFromFloat(*v.Display.ConversionFactor))
	}
	if v != nil && v.Display.NumDecimalPlaces != nil {
		return d.Round(int32(*v.Display.NumDecimalPlaces)).String()
	}
	return d.String()
}
