// Package brush turns draw command arguments into per-voxel materials.
package brush

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"voxelfill.ai/internal/sim/catalogs"
	"voxelfill.ai/internal/sim/fill"
	"voxelfill.ai/internal/sim/mathx"
)

var ErrNoBrush = errors.New("brush: no valid brush")

// Brush picks the material for one voxel. ok=false leaves the voxel alone.
type Brush interface {
	Name() string
	NextBlock(c fill.Coord, current fill.Material) (m fill.Material, ok bool)
}

// Context is what a brush factory may consult while parsing.
type Context struct {
	Blocks *catalogs.BlockCatalog
	// Held is the block the actor has selected; used when no block is named.
	Held fill.Material
	// CanPlace vetoes output blocks the actor may not place.
	CanPlace func(fill.Material) bool
	// Seed drives the random brush.
	Seed int64
}

type factory struct {
	help  string
	parse func(args []string, ctx Context) (Brush, error)
}

var factories = map[string]factory{
	"normal":    {help: "normal [block] - paints a single block", parse: parseSolid},
	"checkered": {help: "checkered [block1] [block2] - alternates blocks in a 3D checkerboard", parse: parseCheckered},
	"striped":   {help: "striped [block1] [block2] - alternates blocks along diagonal stripes", parse: parseStriped},
	"random":    {help: "random [block1/weight] [block2/weight].. - picks blocks at random", parse: parseRandom},
	"rainbow":   {help: "rainbow - cycles through the wool colours", parse: parseRainbow},
	"replace":   {help: "replace [block1] [block2].. [new] - paints only over the listed blocks", parse: parseReplace},
}

// Names lists the registered brushes.
func Names() []string {
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func Help(name string) (string, bool) {
	f, ok := factories[strings.ToLower(name)]
	return f.help, ok
}

// Parse resolves args into a brush. A leading brush name selects that
// brush; otherwise the arguments go to the normal brush.
func Parse(args []string, ctx Context) (Brush, error) {
	if ctx.Blocks == nil {
		return nil, fmt.Errorf("%w: no block catalog", ErrNoBrush)
	}
	name := "normal"
	if len(args) > 0 {
		if _, ok := factories[strings.ToLower(args[0])]; ok {
			name = strings.ToLower(args[0])
			args = args[1:]
		}
	}
	b, err := factories[name].parse(args, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoBrush, name, err)
	}
	return b, nil
}

func resolve(arg string, ctx Context) (fill.Material, error) {
	m, ok := ctx.Blocks.Lookup(arg)
	if !ok {
		return fill.Material{}, fmt.Errorf("unknown block %q", arg)
	}
	return checkPlace(m, ctx)
}

func checkPlace(m fill.Material, ctx Context) (fill.Material, error) {
	if ctx.CanPlace != nil && !ctx.CanPlace(m) {
		return fill.Material{}, fmt.Errorf("cannot place %s", ctx.Blocks.Name(m))
	}
	return m, nil
}

type solid struct{ m fill.Material }

func (b solid) Name() string { return "normal" }

func (b solid) NextBlock(fill.Coord, fill.Material) (fill.Material, bool) { return b.m, true }

func parseSolid(args []string, ctx Context) (Brush, error) {
	switch len(args) {
	case 0:
		m, err := checkPlace(ctx.Held, ctx)
		if err != nil {
			return nil, err
		}
		return solid{m: m}, nil
	case 1:
		m, err := resolve(args[0], ctx)
		if err != nil {
			return nil, err
		}
		return solid{m: m}, nil
	default:
		return nil, fmt.Errorf("expected at most one block, got %d", len(args))
	}
}

// pair resolves up to two blocks, defaulting to the held block and air.
func pair(args []string, ctx Context) (a, b fill.Material, err error) {
	if len(args) > 2 {
		return a, b, fmt.Errorf("expected at most two blocks, got %d", len(args))
	}
	a, b = ctx.Held, fill.Material{}
	if len(args) > 0 {
		if a, err = resolve(args[0], ctx); err != nil {
			return a, b, err
		}
	} else if a, err = checkPlace(a, ctx); err != nil {
		return a, b, err
	}
	if len(args) > 1 {
		if b, err = resolve(args[1], ctx); err != nil {
			return a, b, err
		}
	}
	return a, b, nil
}

type checkered struct{ a, b fill.Material }

func (br checkered) Name() string { return "checkered" }

func (br checkered) NextBlock(c fill.Coord, _ fill.Material) (fill.Material, bool) {
	if (c.X+c.Y+c.Z)&1 == 0 {
		return br.a, true
	}
	return br.b, true
}

func parseCheckered(args []string, ctx Context) (Brush, error) {
	a, b, err := pair(args, ctx)
	if err != nil {
		return nil, err
	}
	return checkered{a: a, b: b}, nil
}

type striped struct{ a, b fill.Material }

func (br striped) Name() string { return "striped" }

func (br striped) NextBlock(c fill.Coord, _ fill.Material) (fill.Material, bool) {
	if ((c.X+c.Y+c.Z)/2)&1 == 0 {
		return br.a, true
	}
	return br.b, true
}

func parseStriped(args []string, ctx Context) (Brush, error) {
	a, b, err := pair(args, ctx)
	if err != nil {
		return nil, err
	}
	return striped{a: a, b: b}, nil
}

type weighted struct {
	m fill.Material
	w int
}

type random struct {
	seed    int64
	choices []weighted
	total   int
}

func (br *random) Name() string { return "random" }

func (br *random) NextBlock(c fill.Coord, _ fill.Material) (fill.Material, bool) {
	r := int(mathx.Hash3(br.seed, c.X, c.Y, c.Z) % uint64(br.total))
	for _, ch := range br.choices {
		if r < ch.w {
			return ch.m, true
		}
		r -= ch.w
	}
	return br.choices[len(br.choices)-1].m, true
}

func parseRandom(args []string, ctx Context) (Brush, error) {
	br := &random{seed: ctx.Seed}
	if len(args) == 0 {
		held, err := checkPlace(ctx.Held, ctx)
		if err != nil {
			return nil, err
		}
		br.choices = []weighted{{m: held, w: 1}, {m: fill.Material{}, w: 1}}
		br.total = 2
		return br, nil
	}
	for _, arg := range args {
		name, wstr, hasWeight := strings.Cut(arg, "/")
		w := 1
		if hasWeight {
			v, err := strconv.Atoi(wstr)
			if err != nil || v <= 0 || v > 10000 {
				return nil, fmt.Errorf("bad weight %q", wstr)
			}
			w = v
		}
		m, err := resolve(name, ctx)
		if err != nil {
			return nil, err
		}
		br.choices = append(br.choices, weighted{m: m, w: w})
		br.total += w
	}
	return br, nil
}

type rainbow struct{ colours []fill.Material }

func (br rainbow) Name() string { return "rainbow" }

func (br rainbow) NextBlock(c fill.Coord, _ fill.Material) (fill.Material, bool) {
	i := mathx.AbsInt(c.X+c.Y+c.Z) % len(br.colours)
	return br.colours[i], true
}

func parseRainbow(args []string, ctx Context) (Brush, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("takes no arguments")
	}
	var colours []fill.Material
	for _, m := range ctx.Blocks.Tagged("wool") {
		if _, err := checkPlace(m, ctx); err == nil {
			colours = append(colours, m)
		}
	}
	if len(colours) == 0 {
		return nil, fmt.Errorf("no wool blocks available")
	}
	return rainbow{colours: colours}, nil
}

type replace struct {
	targets []fill.Material
	with    fill.Material
}

func (br replace) Name() string { return "replace" }

func (br replace) NextBlock(_ fill.Coord, current fill.Material) (fill.Material, bool) {
	for _, t := range br.targets {
		if fill.Matches(current, t) {
			return br.with, true
		}
	}
	return fill.Material{}, false
}

func parseReplace(args []string, ctx Context) (Brush, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("need at least one block to replace and the new block")
	}
	br := replace{}
	for _, a := range args[:len(args)-1] {
		m, ok := ctx.Blocks.Lookup(a)
		if !ok {
			return nil, fmt.Errorf("unknown block %q", a)
		}
		br.targets = append(br.targets, m)
	}
	with, err := resolve(args[len(args)-1], ctx)
	if err != nil {
		return nil, err
	}
	br.with = with
	return br, nil
}
