package transducer

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// A job asks the oracle to extend parent by width symbols.
type job struct {
	parent *Alignment
	width  int
}

type roundStats struct {
	calls      int
	candidates int
	survivors  int
}

// widthRange returns the inclusive range of widths a block may emit for an
// alignment that has placed x targets. The range is empty (lo > hi) when the
// alignment can no longer reach the end of the targets.
func (r *run) widthRange(x, block int) (lo, hi int) {
	t := len(r.targets)
	rest := r.blocks - block
	lo = max(r.cfg.MinWidth, t-rest*r.cfg.MaxWidth-x, 0)
	hi = min(r.cfg.MaxWidth, t-x, t-rest*r.cfg.MinWidth-x)
	return lo, hi
}

// expand extends every parent by every legal width of block, scores the
// candidates with the oracle and returns the ones that survive pruning.
func (s *Searcher) expand(ctx context.Context, r *run, parents []*Alignment, block Block) ([]*Alignment, roundStats, error) {
	var jobs []job
	for _, a := range parents {
		lo, hi := r.widthRange(a.Position.Target, block.Index)
		for w := lo; w <= hi; w++ {
			jobs = append(jobs, job{parent: a, width: w})
		}
	}
	if len(jobs) == 0 {
		return nil, roundStats{}, errors.Wrapf(ErrSearchDegenerate, "block %d: none of %d alignments can be extended", block.Index, len(parents))
	}

	// Every job writes its own slot, so scoring needs no locking.
	candidates := make([]*Alignment, len(jobs))
	score := func(i int) error {
		j := jobs[i]
		c, err := s.score(r, j, block)
		if err != nil {
			return err
		}
		candidates[i] = c
		return nil
	}
	if s.cfg.Workers < 2 {
		for i := range jobs {
			if err := ctx.Err(); err != nil {
				return nil, roundStats{}, err
			}
			if err := score(i); err != nil {
				return nil, roundStats{}, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Workers)
		for i := range jobs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return score(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, roundStats{}, err
		}
	}

	survivors := prune(candidates)
	if klog.V(2).Enabled() {
		for _, c := range candidates {
			klog.Infof("block %d candidate %v", block.Index, c)
		}
	}
	return survivors, roundStats{calls: len(jobs), candidates: len(candidates), survivors: len(survivors)}, nil
}

// score runs the oracle for one job and returns the extended candidate.
func (s *Searcher) score(r *run, j job, block Block) (*Alignment, error) {
	// The oracle gets its own copy; siblings share the parent state.
	dists, next, err := s.oracle.Transduce(block, j.parent.State.Clone(), j.width)
	if err != nil {
		return nil, errors.WithMessagef(err, "oracle at block %d, width %d", block.Index, j.width)
	}
	if err := checkOutput(dists, j.parent.State, next, j.width, s.cfg.VocabSize); err != nil {
		return nil, errors.WithMessagef(err, "block %d, width %d", block.Index, j.width)
	}
	target := j.parent.Position.Target + j.width
	for i := 0; i < j.width; i++ {
		if sym := r.targets[target-j.width+i]; sym >= len(dists[i]) {
			return nil, errors.Wrapf(ErrOracleContractViolation, "block %d: target symbol %d outside distribution of size %d", block.Index, sym, len(dists[i]))
		}
	}
	c := j.parent.Clone()
	c.Insert(target, block.Index, dists, r.targets, j.width, next.Clone())
	return c, nil
}

// prune keeps, for every position, the candidate with the highest log
// probability. On equal log probabilities the candidate seen first wins.
// Survivors are returned in the order their positions were first seen.
func prune(candidates []*Alignment) []*Alignment {
	best := make(map[Position]int, len(candidates))
	var order []Position
	for i, c := range candidates {
		j, ok := best[c.Position]
		if !ok {
			best[c.Position] = i
			order = append(order, c.Position)
			continue
		}
		if c.LogProb > candidates[j].LogProb {
			best[c.Position] = i
		}
	}
	survivors := make([]*Alignment, len(order))
	for i, p := range order {
		survivors[i] = candidates[best[p]]
	}
	return survivors
}
