package explorer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/logger"
	"gopkg.in/yaml.v3"
)

const programSuffix = ".explorer.yml"

// Catalog holds the explorer programs found in a directory, one <slug>.explorer.yml per program.
type Catalog struct {
	dir string

	mx       sync.RWMutex
	programs []*domain.ExplorerProgram
}

// LoadCatalog reads every program in dir. A missing directory yields an empty catalog.
func LoadCatalog(dir string) (*Catalog, error) {
	c := &Catalog{dir: dir}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Dir() string {
	return c.dir
}

// Reload rereads the directory. On error the previous programs are kept.
func (c *Catalog) Reload() error {
	programs, err := readPrograms(c.dir)
	if err != nil {
		return err
	}

	c.mx.Lock()
	defer c.mx.Unlock()
	c.programs = programs
	return nil
}

func readPrograms(dir string) ([]*domain.ExplorerProgram, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("os.ReadDir: %w", err)
	}

	programs := make([]*domain.ExplorerProgram, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, programSuffix) {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile: %w", err)
		}

		p := new(domain.ExplorerProgram)
		if err := yaml.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("explorer %s: yaml.Unmarshal: %w", name, err)
		}
		if p.Slug == "" {
			p.Slug = strings.TrimSuffix(name, programSuffix)
		}
		if other, ok := seen[p.Slug]; ok {
			return nil, fmt.Errorf("explorer slug %q is declared by both %s and %s", p.Slug, other, name)
		}
		seen[p.Slug] = name
		programs = append(programs, p)
	}

	slices.SortFunc(programs, func(a, b *domain.ExplorerProgram) int {
		return strings.Compare(a.Slug, b.Slug)
	})
	return programs, nil
}

// All returns every program sorted by slug.
func (c *Catalog) All() []*domain.ExplorerProgram {
	c.mx.RLock()
	defer c.mx.RUnlock()

	res := make([]*domain.ExplorerProgram, len(c.programs))
	copy(res, c.programs)
	return res
}

func (c *Catalog) Published() []*domain.ExplorerProgram {
	c.mx.RLock()
	defer c.mx.RUnlock()

	res := make([]*domain.ExplorerProgram, 0, len(c.programs))
	for _, p := range c.programs {
		if p.IsPublished {
			res = append(res, p)
		}
	}
	return res
}

func (c *Catalog) Get(slug string) (*domain.ExplorerProgram, bool) {
	c.mx.RLock()
	defer c.mx.RUnlock()

	for _, p := range c.programs {
		if p.Slug == slug {
			return p, true
		}
	}
	return nil, false
}

// Watch reloads the catalog whenever a program file in its directory changes, until ctx
// is done. The returned channel is closed when watching stops.
func (c *Catalog) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	if err := w.Add(c.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", c.dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, programSuffix) {
					continue
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := c.Reload(); err != nil {
					logger.Errorf(ctx, "explorer catalog: reload after %s: %s", ev, err)
					continue
				}
				logger.Infof(ctx, "explorer catalog: reloaded after %s", ev)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Errorf(ctx, "explorer catalog: watch: %s", err)
			}
		}
	}()
	return done, nil
}
