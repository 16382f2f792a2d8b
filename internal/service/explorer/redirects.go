package explorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"gopkg.in/yaml.v3"
)

const fixRedirectsHint = "Fix the list of explorer redirects and retry"

// RedirectTable is the content of the redirects file.
type RedirectTable struct {
	Migrations []domain.URLMigration `yaml:"migrations"`
	Redirects  []domain.RedirectRule `yaml:"redirects"`
}

// LoadRedirects reads the redirects file. An empty path yields an empty table.
func LoadRedirects(path string) (*RedirectTable, error) {
	table := new(RedirectTable)
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	if err := yaml.Unmarshal(raw, table); err != nil {
		return nil, fmt.Errorf("redirects %s: yaml.Unmarshal: %w", path, err)
	}
	return table, nil
}

// MigrationsByID indexes migrations. Duplicate ids are a configuration error.
func (t *RedirectTable) MigrationsByID() (map[string]domain.URLMigration, error) {
	res := make(map[string]domain.URLMigration, len(t.Migrations))
	for _, m := range t.Migrations {
		if _, ok := res[m.ID]; ok {
			return nil, fmt.Errorf("explorer URL migration %q is declared twice", m.ID)
		}
		res[m.ID] = m
	}
	return res, nil
}

// ResolvedRedirect is a redirect rule whose migration and program were found.
type ResolvedRedirect struct {
	Rule      domain.RedirectRule
	Migration domain.URLMigration
	Program   *domain.ExplorerProgram
	// Path is the output file, relative to the site root.
	Path string
}

// ResolveRedirects checks every rule before anything is baked. The first rule naming an
// unknown migration, or a migration naming an unknown program, fails the whole table.
func ResolveRedirects(
	rules []domain.RedirectRule,
	migrations map[string]domain.URLMigration,
	programs []*domain.ExplorerProgram,
) ([]ResolvedRedirect, error) {
	bySlug := make(map[string]*domain.ExplorerProgram, len(programs))
	for _, p := range programs {
		bySlug[p.Slug] = p
	}

	res := make([]ResolvedRedirect, 0, len(rules))
	for _, rule := range rules {
		migration, ok := migrations[rule.MigrationID]
		if !ok {
			return nil, &constants.ConfigurationError{
				Kind: "explorer URL migration",
				Ref:  rule.MigrationID,
				Hint: fixRedirectsHint,
			}
		}

		program, ok := bySlug[migration.ExplorerSlug]
		if !ok {
			return nil, &constants.ConfigurationError{
				Kind: "explorer",
				Key:  "slug",
				Ref:  migration.ExplorerSlug,
				Hint: fixRedirectsHint,
			}
		}

		path := strings.Trim(rule.Path, "/")
		if path == "" {
			return nil, fmt.Errorf("redirect for migration %s has an empty path", rule.MigrationID)
		}

		res = append(res, ResolvedRedirect{
			Rule:      rule,
			Migration: migration,
			Program:   program,
			Path:      path + ".html",
		})
	}
	return res, nil
}
