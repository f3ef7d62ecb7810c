package fill

import (
	"context"
	"errors"
)

// DefaultMaxDepth is how deep a single traversal pass goes before the
// remaining frontier is deferred to a later pass.
const DefaultMaxDepth = 2000

var (
	ErrNilGrid          = errors.New("fill: nil grid")
	ErrStartOutOfBounds = errors.New("fill: start outside level")
	ErrStartMismatch    = errors.New("fill: start voxel does not match target material")
	ErrBadBudget        = errors.New("fill: budget must be positive")
	ErrExplorerClosed   = errors.New("fill: explorer already closed")
)

type Status uint8

const (
	// StatusCompleted means every deferred origin was drained.
	StatusCompleted Status = iota
	// StatusBudgetExceeded means the result hit Budget while reachable
	// voxels remained; the result is a valid prefix of the region.
	StatusBudgetExceeded
	// StatusPassLimit means Options.MaxPasses passes ran out first.
	StatusPassLimit
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "COMPLETED"
	case StatusBudgetExceeded:
		return "BUDGET_EXCEEDED"
	case StatusPassLimit:
		return "PASS_LIMIT"
	default:
		return "UNKNOWN"
	}
}

type Options struct {
	Mode Mode
	// Budget caps len(Result.Positions).
	Budget int
	// MaxDepth is the per-pass depth limit; <= 0 uses DefaultMaxDepth.
	MaxDepth int
	// MaxPasses caps the number of traversal passes; 0 means no cap.
	MaxPasses int
}

type Result struct {
	// Positions is the region in discovery order.
	Positions []Index
	Status    Status
	// Passes counts traversal passes, including the first one.
	Passes int
	// Deferred counts voxels pushed to the continuation queue.
	Deferred int
}

type frame struct {
	c     Coord
	depth int
}

// Explorer carries the state of one fill invocation. Each Run starts from
// a clean state and returns a Result that later runs do not touch. It is
// not safe for concurrent use and is not reusable after Close.
type Explorer struct {
	grid   Grid
	opts   Options
	deltas []Delta

	target  Material
	visited *VisitedSet
	result  []Index
	origins []Index
	stack   []frame

	passes   int
	deferred int
	stopped  bool
}

func NewExplorer(g Grid, opts Options) (*Explorer, error) {
	if g == nil {
		return nil, ErrNilGrid
	}
	if opts.Budget <= 0 {
		return nil, ErrBadBudget
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Explorer{
		grid:    g,
		opts:    opts,
		deltas:  Deltas(opts.Mode),
		visited: NewVisitedSet(g.Dims()),
	}, nil
}

// Visited exposes the marks made so far. Nil after Close.
func (e *Explorer) Visited() *VisitedSet { return e.visited }

// Close releases the visited set. It is safe to call more than once.
func (e *Explorer) Close() {
	if e.visited != nil {
		e.visited.Clear()
		e.visited = nil
	}
	e.stack = nil
	e.origins = nil
}

// Run explores the region around start. target must be the material read
// at start.
func (e *Explorer) Run(start Coord, target Material) (Result, error) {
	return e.RunContext(context.Background(), start, target)
}

// RunContext is Run with cancellation checked between passes.
func (e *Explorer) RunContext(ctx context.Context, start Coord, target Material) (Result, error) {
	if e.visited == nil {
		return Result{}, ErrExplorerClosed
	}
	m, ok := e.grid.Material(start)
	if !ok || !e.grid.Dims().Contains(start) {
		return Result{}, ErrStartOutOfBounds
	}
	if !Matches(m, target) {
		return Result{}, ErrStartMismatch
	}
	e.reset()
	e.target = target
	e.origins = append(e.origins[:0], e.grid.Index(start))

	status := StatusCompleted
	// The queue grows while it is drained; re-read its length every step.
	for head := 0; head < len(e.origins); head++ {
		if err := ctx.Err(); err != nil {
			return e.snapshot(status), err
		}
		if e.opts.MaxPasses > 0 && e.passes >= e.opts.MaxPasses {
			status = StatusPassLimit
			break
		}
		e.passes++
		e.traverse(e.grid.Coord(e.origins[head]))
		if e.stopped {
			status = StatusBudgetExceeded
			break
		}
	}
	e.origins = e.origins[:0]
	return e.snapshot(status), nil
}

// reset clears what a previous run left behind. result gets a fresh
// backing array because earlier Results still alias the old one.
func (e *Explorer) reset() {
	e.visited.Reset()
	e.result = nil
	e.stack = e.stack[:0]
	e.passes, e.deferred = 0, 0
	e.stopped = false
}

func (e *Explorer) snapshot(status Status) Result {
	return Result{
		Positions: e.result,
		Status:    status,
		Passes:    e.passes,
		Deferred:  e.deferred,
	}
}

// traverse is a depth-first walk from origin using an explicit stack.
// Neighbours are pushed in reverse so they pop in delta order, which
// gives the same discovery order as the recursive formulation.
func (e *Explorer) traverse(origin Coord) {
	e.stack = append(e.stack[:0], frame{c: origin})
	for len(e.stack) > 0 {
		f := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

		if e.visited.Get(f.c) {
			continue
		}
		if len(e.result) >= e.opts.Budget {
			e.stopped = true
			e.stack = e.stack[:0]
			return
		}
		idx := e.grid.Index(f.c)
		if f.depth > e.opts.MaxDepth {
			e.origins = append(e.origins, idx)
			e.deferred++
			continue
		}
		e.visited.Set(f.c, true)
		e.result = append(e.result, idx)

		for i := len(e.deltas) - 1; i >= 0; i-- {
			n := f.c.Add(e.deltas[i])
			m, ok := e.grid.Material(n)
			if !ok || !Matches(m, e.target) {
				continue
			}
			e.stack = append(e.stack, frame{c: n, depth: f.depth + 1})
		}
	}
}

// Explore runs one complete fill invocation and releases its visited set
// before returning, whatever the outcome.
func Explore(ctx context.Context, g Grid, start Coord, target Material, opts Options) (Result, error) {
	e, err := NewExplorer(g, opts)
	if err != nil {
		return Result{}, err
	}
	defer e.Close()
	return e.RunContext(ctx, start, target)
}
