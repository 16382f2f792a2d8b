package explorer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/ougirez/databaker/internal/service/explorer"
	"go.uber.org/goleak"
)

func writeFile(c *qt.C, dir, name, content string) {
	c.Assert(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644), qt.IsNil)
}

func TestLoadCatalog(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	writeFile(c, dir, "co2.explorer.yml", "title: CO2\nisPublished: true\nconfig:\n  yScaleToggle: true\n")
	writeFile(c, dir, "energy.explorer.yml", "slug: energy\ntitle: Energy\nisPublished: false\n")
	writeFile(c, dir, "README.md", "not a program")

	cat, err := explorer.LoadCatalog(dir)
	c.Assert(err, qt.IsNil)

	all := cat.All()
	c.Assert(all, qt.HasLen, 2)
	c.Check(all[0].Slug, qt.Equals, "co2")
	c.Check(all[0].Config["yScaleToggle"], qt.Equals, true)

	published := cat.Published()
	c.Assert(published, qt.HasLen, 1)
	c.Check(published[0].Slug, qt.Equals, "co2")

	_, ok := cat.Get("energy")
	c.Check(ok, qt.IsTrue)
	_, ok = cat.Get("missing")
	c.Check(ok, qt.IsFalse)
}

func TestLoadCatalogDuplicateSlug(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	writeFile(c, dir, "a.explorer.yml", "slug: same\n")
	writeFile(c, dir, "b.explorer.yml", "slug: same\n")

	_, err := explorer.LoadCatalog(dir)
	c.Check(err, qt.ErrorMatches, `explorer slug "same" is declared by both a.explorer.yml and b.explorer.yml`)
}

func TestLoadCatalogMissingDir(t *testing.T) {
	c := qt.New(t)

	cat, err := explorer.LoadCatalog(filepath.Join(t.TempDir(), "nope"))
	c.Assert(err, qt.IsNil)
	c.Check(cat.All(), qt.HasLen, 0)
}

func TestCatalogWatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := qt.New(t)
	dir := t.TempDir()

	cat, err := explorer.LoadCatalog(dir)
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := cat.Watch(ctx)
	c.Assert(err, qt.IsNil)

	writeFile(c, dir, "co2.explorer.yml", "title: CO2\nisPublished: true\n")

	deadline := time.Now().Add(5 * time.Second)
	for len(cat.All()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	c.Check(cat.All(), qt.HasLen, 1)

	cancel()
	<-done
}

func TestLoadRedirects(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	writeFile(c, dir, "redirects.yml", `
migrations:
  - id: legacy-co2
    explorerSlug: co2
redirects:
  - migrationId: legacy-co2
    path: /co2-data
    baseQueryStr: country=FRA
`)

	table, err := explorer.LoadRedirects(filepath.Join(dir, "redirects.yml"))
	c.Assert(err, qt.IsNil)
	c.Check(table.Redirects, qt.DeepEquals, []domain.RedirectRule{
		{MigrationID: "legacy-co2", Path: "/co2-data", BaseQueryStr: "country=FRA"},
	})

	migrations, err := table.MigrationsByID()
	c.Assert(err, qt.IsNil)
	c.Check(migrations["legacy-co2"].ExplorerSlug, qt.Equals, "co2")

	empty, err := explorer.LoadRedirects("")
	c.Assert(err, qt.IsNil)
	c.Check(empty.Redirects, qt.HasLen, 0)
}

func TestResolveRedirects(t *testing.T) {
	c := qt.New(t)

	programs := []*domain.ExplorerProgram{{Slug: "co2"}, {Slug: "energy"}}
	migrations := map[string]domain.URLMigration{
		"legacy-co2":    {ID: "legacy-co2", ExplorerSlug: "co2"},
		"legacy-energy": {ID: "legacy-energy", ExplorerSlug: "energy"},
		"dangling":      {ID: "dangling", ExplorerSlug: "removed"},
	}

	resolved, err := explorer.ResolveRedirects([]domain.RedirectRule{
		{MigrationID: "legacy-co2", Path: "/explorers/co2-old"},
		{MigrationID: "legacy-energy", Path: "energy", BaseQueryStr: "tab=map"},
	}, migrations, programs)
	c.Assert(err, qt.IsNil)
	c.Assert(resolved, qt.HasLen, 2)
	c.Check(resolved[0].Path, qt.Equals, "explorers/co2-old.html")
	c.Check(resolved[0].Program.Slug, qt.Equals, "co2")
	c.Check(resolved[1].Rule.BaseQueryStr, qt.Equals, "tab=map")

	_, err = explorer.ResolveRedirects([]domain.RedirectRule{
		{MigrationID: "legacy-co2", Path: "/a"},
		{MigrationID: "unknown", Path: "/b"},
	}, migrations, programs)
	c.Check(constants.IsConfigurationError(err), qt.IsTrue)
	c.Check(err, qt.ErrorMatches, "no explorer URL migration with id 'unknown'. Fix the list of explorer redirects and retry")

	_, err = explorer.ResolveRedirects([]domain.RedirectRule{{MigrationID: "dangling", Path: "/c"}}, migrations, programs)
	c.Check(err, qt.ErrorMatches, "no explorer with slug 'removed'. Fix the list of explorer redirects and retry")
}
