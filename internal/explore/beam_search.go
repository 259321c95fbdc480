package explore

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/config"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region constructor
// New resolves the configured policy. The name is checked once here, never per call.
func New(cfg config.ExplorationConfig, deps Deps) (Policy, error) {
	if deps.Scorer == nil || deps.Domain == nil || deps.Normalizer == nil {
		return nil, fmt.Errorf("exploration policy %q: missing scorer, domain or normalizer", cfg.Type)
	}
	if deps.MaxStackSize <= 0 {
		return nil, fmt.Errorf("exploration policy %q: max stack size must be positive", cfg.Type)
	}
	if cfg.BeamSize <= 0 {
		return nil, fmt.Errorf("exploration policy %q: beam size must be positive", cfg.Type)
	}
	switch cfg.Type {
	case "beam-search", "":
		return &BeamSearch{deps: deps, beamSize: cfg.BeamSize}, nil
	case "randomized-beam-search":
		return &BeamSearch{
			deps:     deps,
			beamSize: cfg.BeamSize,
			epsilon:  cfg.Epsilon,
			rng:      rand.New(rand.NewSource(cfg.Seed)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown exploration policy %q", cfg.Type)
	}
}

// #endregion constructor

// #region beam-search
// BeamSearch expands every unterminated path by all legal choices, scores the
// new cases in one batch and keeps the best beamSize paths per example.
// With epsilon > 0 each kept slot is filled by a random candidate with
// probability epsilon.
type BeamSearch struct {
	deps     Deps
	beamSize int
	epsilon  float64
	rng      *rand.Rand
}

// Beams implements Policy.
func (b *BeamSearch) Beams(ctx context.Context, examples []*parse.Example, verbose bool) ([]*parse.Beam, error) {
	history, err := b.search(ctx, examples, verbose)
	if err != nil {
		return nil, err
	}
	out := make([]*parse.Beam, len(history))
	for i, h := range history {
		out[i] = h[len(h)-1]
	}
	return out, nil
}

// IntermediateBeams implements Policy.
func (b *BeamSearch) IntermediateBeams(ctx context.Context, examples []*parse.Example, verbose bool) ([][]*parse.Beam, error) {
	return b.search(ctx, examples, verbose)
}

func (b *BeamSearch) search(ctx context.Context, examples []*parse.Example, verbose bool) ([][]*parse.Beam, error) {
	beams := make([]*parse.Beam, len(examples))
	history := make([][]*parse.Beam, len(examples))
	for i, ex := range examples {
		beams[i] = parse.NewBeam([]*parse.ParsePath{parse.EmptyPath(ex.Context)})
		history[i] = []*parse.Beam{beams[i]}
	}

	for step := 0; step < b.deps.MaxStackSize; step++ {
		next, progressed, err := b.advance(ctx, beams)
		if err != nil {
			return nil, fmt.Errorf("beam step %d: %w", step, err)
		}
		if !progressed {
			break
		}
		beams = next
		for i := range beams {
			history[i] = append(history[i], beams[i])
		}
		if verbose {
			log.Printf("[EXPLORE] step=%d examples=%d paths=%d", step, len(beams), countPaths(beams))
		}
	}
	return history, nil
}

// #endregion beam-search

// #region advance
type pending struct {
	beam int
	path *parse.ParsePath
	c    *parse.ParseCase
}

// advance performs one expansion step. It reports false when no path could
// be extended.
func (b *BeamSearch) advance(ctx context.Context, beams []*parse.Beam) ([]*parse.Beam, bool, error) {
	var work []pending
	var cases []*parse.ParseCase
	for i, beam := range beams {
		for _, p := range beam.Paths() {
			if p.Terminated() {
				continue
			}
			choices := b.deps.Domain.Choices(p)
			if len(choices) == 0 {
				continue
			}
			c := p.NewCase(choices)
			work = append(work, pending{beam: i, path: p, c: c})
			cases = append(cases, c)
		}
	}
	if len(cases) == 0 {
		return beams, false, nil
	}

	if err := b.deps.Scorer.Score(ctx, cases, b.deps.Caching); err != nil {
		return nil, false, fmt.Errorf("score cases: %w", err)
	}

	candidates := make([][]*parse.ParsePath, len(beams))
	for i, beam := range beams {
		for _, p := range beam.Paths() {
			if p.Terminated() {
				candidates[i] = append(candidates[i], p)
			}
		}
	}
	for _, w := range work {
		for k := range w.c.Choices {
			np := w.path.Extend(w.c, k)
			if !b.deps.Domain.PathChecker(np) {
				continue
			}
			if b.deps.Domain.Terminal(np) {
				np.Finalize(b.deps.Domain.Execute(np))
			}
			candidates[w.beam] = append(candidates[w.beam], np)
		}
	}

	next := make([]*parse.Beam, len(beams))
	for i := range beams {
		next[i] = parse.NewBeam(b.prune(candidates[i]))
	}
	return next, true, nil
}

// #endregion advance

// #region prune
// prune keeps at most beamSize candidates, best rank first.
func (b *BeamSearch) prune(candidates []*parse.ParsePath) []*parse.ParsePath {
	sorted := append([]*parse.ParsePath(nil), candidates...)
	b.sortByRank(sorted)
	if len(sorted) <= b.beamSize {
		return sorted
	}
	if b.epsilon <= 0 || b.rng == nil {
		return sorted[:b.beamSize]
	}

	kept := make([]*parse.ParsePath, 0, b.beamSize)
	remaining := sorted
	for len(kept) < b.beamSize && len(remaining) > 0 {
		idx := 0
		if b.rng.Float64() < b.epsilon {
			idx = b.rng.Intn(len(remaining))
		}
		kept = append(kept, remaining[idx])
		rest := make([]*parse.ParsePath, 0, len(remaining)-1)
		rest = append(rest, remaining[:idx]...)
		remaining = append(rest, remaining[idx+1:]...)
	}
	b.sortByRank(kept)
	return kept
}

func (b *BeamSearch) sortByRank(paths []*parse.ParsePath) {
	sort.SliceStable(paths, func(i, j int) bool {
		return b.deps.Normalizer.Rank(paths[i]) > b.deps.Normalizer.Rank(paths[j])
	})
}

func countPaths(beams []*parse.Beam) int {
	n := 0
	for _, beam := range beams {
		n += beam.Len()
	}
	return n
}

// #endregion prune
