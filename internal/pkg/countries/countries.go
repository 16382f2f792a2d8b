// Package countries holds the reference list of countries the site publishes profiles for.
package countries

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/utils"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yml
var defaultYAML []byte

type List struct {
	countries []domain.Country
	bySlug    map[string]int
	byCode    map[string]int
}

// Default returns the embedded reference list.
func Default() (*List, error) {
	return Parse(defaultYAML)
}

// Load reads a list from path, or returns Default when path is empty.
func Load(path string) (*List, error) {
	if path == "" {
		return Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*List, error) {
	var countries []domain.Country
	if err := yaml.Unmarshal(raw, &countries); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	return New(countries)
}

// New indexes countries, deriving missing slugs from names. Codes and slugs must be unique.
func New(countries []domain.Country) (*List, error) {
	l := &List{
		countries: make([]domain.Country, 0, len(countries)),
		bySlug:    make(map[string]int, len(countries)),
		byCode:    make(map[string]int, len(countries)),
	}

	for _, c := range countries {
		if c.Code == "" || c.Name == "" {
			return nil, fmt.Errorf("country %+v: name and code are required", c)
		}
		if c.Slug == "" {
			c.Slug = utils.Slugify(c.Name)
		}
		if _, ok := l.byCode[c.Code]; ok {
			return nil, fmt.Errorf("duplicate country code %s", c.Code)
		}
		if _, ok := l.bySlug[c.Slug]; ok {
			return nil, fmt.Errorf("duplicate country slug %s", c.Slug)
		}

		l.bySlug[c.Slug] = len(l.countries)
		l.byCode[c.Code] = len(l.countries)
		l.countries = append(l.countries, c)
	}

	return l, nil
}

func (l *List) All() []domain.Country {
	res := make([]domain.Country, len(l.countries))
	copy(res, l.countries)
	return res
}

func (l *List) BySlug(slug string) (domain.Country, bool) {
	i, ok := l.bySlug[slug]
	if !ok {
		return domain.Country{}, false
	}
	return l.countries[i], true
}

func (l *List) ByCode(code string) (domain.Country, bool) {
	i, ok := l.byCode[code]
	if !ok {
		return domain.Country{}, false
	}
	return l.countries[i], true
}

func (l *List) Codes() []string {
	res := make([]string, 0, len(l.countries))
	for _, c := range l.countries {
		res = append(res, c.Code)
	}
	return res
}

func (l *List) Len() int {
	return len(l.countries)
}
