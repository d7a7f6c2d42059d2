package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
)

// ParallelSearcher splits the first unit's candidate actions round-robin
// across workers. Every worker searches its own board, which must have been
// built from its own copy of the canonical board with the same compact ids.
type ParallelSearcher struct {
	cfg    Config
	logger zerolog.Logger
	seed   uint64
}

// NewParallelSearcher creates a parallel searcher. Every worker breaks ties
// among the first unit's candidates exactly as a Searcher seeded with seed
// would; deeper ties use an RNG seeded from seed+w.
func NewParallelSearcher(cfg Config, logger zerolog.Logger, seed uint64) *ParallelSearcher {
	return &ParallelSearcher{
		cfg:    cfg,
		logger: logger.With().Str("component", "ParallelSearcher").Logger(),
		seed:   seed,
	}
}

// Search runs one worker per board and returns the best plan any of them
// found. Equal values go to the candidate a sequential search would have
// reached first.
func (p *ParallelSearcher) Search(ctx context.Context, boards []*quick.Board) (Result, error) {
	if len(boards) == 0 {
		return Result{}, fmt.Errorf("parallel search needs at least one board")
	}
	start := time.Now()
	n := len(boards)
	results := make([]Result, n)
	rootSeed := rand.New(rand.NewSource(p.seed)).Uint64()

	g, gctx := errgroup.WithContext(ctx)
	for w := range boards {
		w := w
		g.Go(func() error {
			s := NewSearcher(p.cfg, p.logger.With().Int("worker", w).Logger(),
				rand.New(rand.NewSource(p.seed+uint64(w))))
			s.rootSeed = rootSeed
			s.rootRNG = rand.New(rand.NewSource(rootSeed))
			s.rootFilter = func(idx int) bool { return idx%n == w }
			res, err := s.Search(gctx, boards[w])
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			results[w] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := Result{Value: -inf, Complete: true, rootIndex: -1}
	var nodes int64
	for _, r := range results {
		nodes += r.Nodes
		best.Complete = best.Complete && r.Complete
		if r.rootIndex < 0 {
			continue
		}
		if r.Value > best.Value || (r.Value == best.Value && r.rootIndex < best.rootIndex) {
			best.Plan, best.Value, best.rootIndex = r.Plan, r.Value, r.rootIndex
		}
	}
	if best.rootIndex < 0 {
		// Nothing to act: every worker scored the same position.
		best.Value = results[0].Value
	}
	best.Nodes = nodes
	best.Elapsed = time.Since(start)

	p.logger.Info().
		Int("workers", n).
		Int("value", best.Value).
		Int64("nodes", best.Nodes).
		Dur("elapsed", best.Elapsed).
		Bool("complete", best.Complete).
		Strs("plan", planStrings(best.Plan)).
		Msg("Parallel search finished")
	return best, nil
}
