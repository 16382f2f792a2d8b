package baker

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ougirez/databaker/internal/pkg/logger"
	"github.com/ougirez/databaker/internal/pkg/progress"
	"github.com/ougirez/databaker/internal/pkg/render"
	"github.com/ougirez/databaker/internal/pkg/sink"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Page is one output file. Render produces its full content and does no writing.
type Page struct {
	Path   string
	Render func(ctx context.Context) ([]byte, error)
}

// PageError reports which page of which phase failed.
type PageError struct {
	Phase string
	Path  string
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s: page %s: %s", e.Phase, e.Path, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

type Baker struct {
	renderer    render.Renderer
	sink        sink.Sink
	progress    *progress.Reporter
	concurrency int
}

type Option func(*Baker)

func WithProgress(r *progress.Reporter) Option {
	return func(b *Baker) {
		b.progress = r
	}
}

// WithConcurrency bounds how many pages of a collection bake at once.
func WithConcurrency(n int) Option {
	return func(b *Baker) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func New(renderer render.Renderer, sink sink.Sink, opts ...Option) *Baker {
	b := &Baker{renderer: renderer, sink: sink, concurrency: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// TemplatePage renders template with the model returned by load.
func (b *Baker) TemplatePage(path, template string, load func(ctx context.Context) (any, error)) Page {
	return Page{
		Path: path,
		Render: func(ctx context.Context) ([]byte, error) {
			model, err := load(ctx)
			if err != nil {
				return nil, err
			}
			html, err := b.renderer.Render(template, model)
			if err != nil {
				return nil, err
			}
			return []byte(html), nil
		},
	}
}

// Static wraps an already built model.
func Static(model any) func(ctx context.Context) (any, error) {
	return func(context.Context) (any, error) {
		return model, nil
	}
}

func (b *Baker) write(ctx context.Context, phase, path string, content []byte) error {
	if dir := parentDir(path); dir != "" {
		if err := b.sink.EnsureDir(ctx, dir); err != nil {
			return err
		}
	}
	if err := b.sink.WriteFile(ctx, path, content); err != nil {
		return err
	}
	b.progress.Page(phase, path, progress.Written, len(content))
	return nil
}

func parentDir(path string) string {
	i := strings.LastIndex(strings.Trim(path, "/"), "/")
	if i < 0 {
		return ""
	}
	return strings.Trim(path, "/")[:i]
}

// BakeCollection bakes independent pages. A failing page is reported and skipped; the
// others are still written. The returned error combines every PageError, ordered by path.
// Only context cancellation stops the collection early.
func (b *Baker) BakeCollection(ctx context.Context, phase string, pages []Page) error {
	b.progress.PhaseStarted(phase, len(pages))
	defer b.progress.PhaseDone(phase)

	var (
		mx     sync.Mutex
		failed []*PageError
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)
	for _, page := range pages {
		page := page
		if egCtx.Err() != nil {
			break
		}

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			err := b.bakePage(egCtx, phase, page)
			if err == nil {
				return nil
			}
			if egCtx.Err() != nil {
				return egCtx.Err()
			}

			b.progress.Page(phase, page.Path, progress.Failed, 0)
			logger.Errorf(ctx, "bake %s: %s: %s", phase, page.Path, err)

			mx.Lock()
			defer mx.Unlock()
			failed = append(failed, &PageError{Phase: phase, Path: page.Path, Err: err})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("bake %s: %w", phase, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("bake %s: %w", phase, err)
	}

	slices.SortFunc(failed, func(a, b *PageError) int {
		return strings.Compare(a.Path, b.Path)
	})

	var err error
	for _, pe := range failed {
		err = multierr.Append(err, pe)
	}
	return err
}

func (b *Baker) bakePage(ctx context.Context, phase string, page Page) error {
	content, err := page.Render(ctx)
	if err != nil {
		return err
	}
	b.progress.Page(phase, page.Path, progress.Rendered, len(content))
	return b.write(ctx, phase, page.Path, content)
}

// BakeUnit bakes pages that only make sense together: every page is rendered before
// the first one is written, and any render failure leaves the output untouched.
func (b *Baker) BakeUnit(ctx context.Context, phase string, pages []Page) error {
	b.progress.PhaseStarted(phase, len(pages))
	defer b.progress.PhaseDone(phase)

	rendered := make([][]byte, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := page.Render(ctx)
		if err != nil {
			b.progress.Page(phase, page.Path, progress.Failed, 0)
			return &PageError{Phase: phase, Path: page.Path, Err: err}
		}
		b.progress.Page(phase, page.Path, progress.Rendered, len(content))
		rendered[i] = content
	}

	for i, page := range pages {
		if err := b.write(ctx, phase, page.Path, rendered[i]); err != nil {
			b.progress.Page(phase, page.Path, progress.Failed, 0)
			return &PageError{Phase: phase, Path: page.Path, Err: err}
		}
	}
	return nil
}
