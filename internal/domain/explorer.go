package domain

type ExplorerProgram struct {
	Slug        string         `yaml:"slug" json:"slug"`
	Title       string         `yaml:"title" json:"title"`
	Subtitle    string         `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	IsPublished bool           `yaml:"isPublished" json:"isPublished"`
	Config      map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// URLMigration rewrites a legacy URL into an explorer view.
type URLMigration struct {
	ID           string `yaml:"id"`
	ExplorerSlug string `yaml:"explorerSlug"`
}

type RedirectRule struct {
	MigrationID  string `yaml:"migrationId"`
	Path         string `yaml:"path"`
	BaseQueryStr string `yaml:"baseQueryStr,omitempty"`
}
