// Package progress prints what the baker is doing. Nothing it prints is part of a
// bake's result.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/gommon/color"
)

type State int

const (
	Pending State = iota
	Rendered
	Written
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Rendered:
		return "rendered"
	case Written:
		return "written"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Reporter is safe for concurrent use. A nil *Reporter discards everything.
type Reporter struct {
	mx     sync.Mutex
	color  *color.Color
	phases map[string]*phase
}

type phase struct {
	started time.Time
	total   int
	written int
	failed  int
	bytes   uint64
}

// New reports to w. Colors are only used when w is a terminal.
func New(w io.Writer) *Reporter {
	c := color.New()
	c.SetOutput(w)
	return &Reporter{color: c, phases: make(map[string]*phase)}
}

// DisableColor turns coloring off regardless of the output.
func (r *Reporter) DisableColor() {
	r.color.Disable()
}

func (r *Reporter) PhaseStarted(name string, total int) {
	if r == nil {
		return
	}
	r.mx.Lock()
	defer r.mx.Unlock()

	r.phases[name] = &phase{started: time.Now(), total: total}
	r.printf("%s %s (%d pages)\n", r.color.Cyan("==>"), name, total)
}

// Page records a state transition of one page. size is only meaningful for Written.
func (r *Reporter) Page(phaseName, path string, state State, size int) {
	if r == nil {
		return
	}
	r.mx.Lock()
	defer r.mx.Unlock()

	p := r.phases[phaseName]
	if p == nil {
		p = &phase{started: time.Now()}
		r.phases[phaseName] = p
	}

	switch state {
	case Written:
		p.written++
		p.bytes += uint64(size)
		r.printf("  %s %s (%s)\n", r.color.Green("ok"), path, humanize.Bytes(uint64(size)))
	case Failed:
		p.failed++
		r.printf("  %s %s\n", r.color.Red("failed"), path)
	}
}

func (r *Reporter) PhaseDone(name string) {
	if r == nil {
		return
	}
	r.mx.Lock()
	defer r.mx.Unlock()

	p := r.phases[name]
	if p == nil {
		return
	}

	status := r.color.Green("done")
	if p.failed > 0 {
		status = r.color.Yellow(fmt.Sprintf("done with %d failures", p.failed))
	}
	r.printf("%s %s: %d/%d written, %s in %s\n",
		r.color.Cyan("==>"), name, p.written, p.total,
		humanize.Bytes(p.bytes), time.Since(p.started).Round(time.Millisecond))
	r.printf("    %s\n", status)
}

// Summary returns written and failed page counts of a phase.
func (r *Reporter) Summary(name string) (written, failed int) {
	if r == nil {
		return 0, 0
	}
	r.mx.Lock()
	defer r.mx.Unlock()

	if p := r.phases[name]; p != nil {
		return p.written, p.failed
	}
	return 0, 0
}

func (r *Reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.color.Output(), format, args...)
}
