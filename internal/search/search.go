// Package search plans a side's turn with a depth-bounded alpha-beta search
// over an episode board.
package search

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/movegen"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
)

const (
	// WinScore is the value of a won position. It dominates every
	// evaluator score.
	WinScore = 10000

	inf = 1 << 20

	// ctxCheckEvery is how many leaves pass between context checks.
	ctxCheckEvery = 256
)

// Config bounds and shapes one search.
type Config struct {
	// MaxDepth is the number of turn boundaries the search may cross. Zero
	// searches the side to move's own turn only.
	MaxDepth int
	// NodeLimit caps evaluated leaves. Zero means no cap.
	NodeLimit int64
	// TimeLimit caps wall-clock time. Zero means no cap.
	TimeLimit time.Duration
	// Orders are tried at the first unit of every turn.
	Orders []Order
	// AttackPrune keeps one attack per enemy on the first turn.
	AttackPrune bool
	// MovePrune keeps one move per enemy-threat group on the first turn.
	MovePrune bool
	// TwoAttacks widens AttackPrune to also keep the attack from the best
	// defensive terrain against each enemy.
	TwoAttacks bool
	// Approach makes a unit with no attack after the first turn step toward
	// the enemy centroid instead of standing still.
	Approach bool
	// RandomTies breaks ties between equally exposed attacks with the
	// searcher's RNG.
	RandomTies bool
}

// DefaultConfig searches the side's turn and the opponent's reply with both
// plain orders.
func DefaultConfig() Config {
	return Config{
		MaxDepth: 1,
		Orders:   []Order{Forward, Reverse},
	}
}

// Result is the outcome of one search.
type Result struct {
	// Plan holds the chosen action of each unit of the side to move, in
	// the order they should be executed, in the board's compact ids.
	Plan []core.Action
	// Value is the score of Plan for the side to move.
	Value int
	// Nodes counts evaluated leaves.
	Nodes   int64
	Elapsed time.Duration
	// Complete is false when a budget cut the search short.
	Complete bool

	rootIndex int
}

// frame holds the per-recursion-depth scratch buffers.
type frame struct {
	waiting []*quick.Unit
	acts    []core.Action
}

// Searcher runs alpha-beta searches. It is not safe for concurrent use; give
// every worker its own Searcher and board.
type Searcher struct {
	cfg    Config
	logger zerolog.Logger
	rng    *rand.Rand

	// rootRNG breaks ties among the first unit's candidates and restarts
	// from rootSeed on every search. Parallel workers share rootSeed.
	rootRNG  *rand.Rand
	rootSeed uint64

	b        *quick.Board
	eval     *Evaluator
	ctx      context.Context
	deadline time.Time
	nodes    int64
	stopped  bool
	err      error
	frames   []frame

	// pv[k][k:pvLen[k]] is the best line found from the k-th unit of the
	// first turn.
	pv    [][]core.Action
	pvLen []int

	rootFilter func(int) bool
	rootIdx    int
	bestRoot   int
}

// NewSearcher creates a searcher. rng is used for tie breaks only and may
// be nil. Its first value seeds the tie breaks of the first unit.
func NewSearcher(cfg Config, logger zerolog.Logger, rng *rand.Rand) *Searcher {
	if len(cfg.Orders) == 0 {
		cfg.Orders = []Order{Forward}
	}
	s := &Searcher{
		cfg:    cfg,
		logger: logger.With().Str("component", "Searcher").Logger(),
		rng:    rng,
	}
	if rng != nil {
		s.rootSeed = rng.Uint64()
		s.rootRNG = rand.New(rand.NewSource(s.rootSeed))
	}
	return s
}

// Config returns the searcher's configuration.
func (s *Searcher) Config() Config { return s.cfg }

// begin resets per-search state for b.
func (s *Searcher) begin(ctx context.Context, b *quick.Board) {
	if s.b != b {
		s.eval = NewEvaluator(b)
	}
	s.b = b
	s.ctx = ctx
	s.deadline = time.Time{}
	if s.cfg.TimeLimit > 0 {
		s.deadline = time.Now().Add(s.cfg.TimeLimit)
	}
	s.nodes = 0
	s.stopped = false
	s.err = nil
	s.rootIdx = 0
	s.bestRoot = -1
	if s.rootRNG != nil {
		s.rootRNG.Seed(s.rootSeed)
	}

	n := len(b.Units()) + 1
	if len(s.pv) < n {
		s.pv = make([][]core.Action, n)
		for i := range s.pv {
			s.pv[i] = make([]core.Action, n)
		}
		s.pvLen = make([]int, n)
	}
	for i := range s.pvLen {
		s.pvLen[i] = 0
	}
}

// Search plans the turn of the side to move on b. The board is back in its
// starting state when Search returns. A budget that runs out yields the
// best plan found so far with Complete unset; an error means an action the
// search generated was rejected and the board should be discarded.
func (s *Searcher) Search(ctx context.Context, b *quick.Board) (Result, error) {
	start := time.Now()
	s.begin(ctx, b)

	value := s.dfs(0, 0, 0, -inf, inf, s.cfg.Orders[0])
	res := Result{
		Plan:      append([]core.Action(nil), s.pv[0][:s.pvLen[0]]...),
		Value:     value,
		Nodes:     s.nodes,
		Elapsed:   time.Since(start),
		Complete:  !s.stopped,
		rootIndex: s.bestRoot,
	}
	if s.err != nil {
		return res, s.err
	}

	ev := s.logger.Info().
		Str("team", b.Phase().String()).
		Int("value", res.Value).
		Int64("nodes", res.Nodes).
		Dur("elapsed", res.Elapsed).
		Bool("complete", res.Complete)
	if s.rootFilter == nil {
		ev.Strs("plan", planStrings(res.Plan)).Msg("Search finished")
	} else {
		ev.Int("root_best", res.rootIndex).Msg("Search worker finished")
	}
	return res, nil
}

func planStrings(plan []core.Action) []string {
	out := make([]string, len(plan))
	for i, a := range plan {
		out[i] = a.String()
	}
	return out
}

func (s *Searcher) frame(d int) *frame {
	for len(s.frames) <= d {
		s.frames = append(s.frames, frame{})
	}
	return &s.frames[d]
}

// exhausted reports whether a budget has run out.
func (s *Searcher) exhausted() bool {
	if s.stopped {
		return true
	}
	if s.cfg.NodeLimit > 0 && s.nodes >= s.cfg.NodeLimit {
		s.stopped = true
	}
	if s.nodes%ctxCheckEvery == 0 {
		if s.ctx.Err() != nil || (!s.deadline.IsZero() && time.Now().After(s.deadline)) {
			s.stopped = true
		}
	}
	return s.stopped
}

func (s *Searcher) leaf() int {
	s.nodes++
	return s.eval.Evaluate(s.b)
}

// timeoutValue scores a board that reached its turn limit.
func (s *Searcher) timeoutValue() int {
	b := s.b
	winner, draw := rules.TimeoutResult(b.TotalHP(core.Red), b.TotalHP(core.Blue), b.DrawHPThreshold())
	switch {
	case draw:
		return 0
	case winner == b.Phase():
		return WinScore
	default:
		return -WinScore
	}
}

func (s *Searcher) tieRNG(d int) *rand.Rand {
	switch {
	case !s.cfg.RandomTies || s.rng == nil:
		return nil
	case d == 0:
		return s.rootRNG
	default:
		return s.rng
	}
}

// generate lists the candidate actions of u. The first turn gets full (or
// pruned) attacks and moves; later turns only the best attack per enemy,
// or standing still (or approaching) when there is none.
func (s *Searcher) generate(d int, u *quick.Unit, turn int) []core.Action {
	b := s.b
	f := s.frame(d)
	acts := f.acts[:0]
	if turn == 0 {
		switch {
		case s.cfg.AttackPrune && s.cfg.TwoAttacks:
			acts = movegen.SuggestTwoAttacksPerEnemy(acts, b, u)
		case s.cfg.AttackPrune:
			acts = movegen.SuggestOneAttackPerEnemy(acts, b, u, s.tieRNG(d))
		default:
			acts = movegen.AppendAttacks(acts, b, u)
		}
		if s.cfg.MovePrune {
			acts = movegen.SuggestMeaningfulMoves(acts, b, u, movegen.EnemyCentroid(b, u.Team()))
		} else {
			acts = movegen.AppendMoves(acts, b, u)
		}
	} else {
		acts = movegen.SuggestOneAttackPerEnemy(acts, b, u, s.tieRNG(d))
		if len(acts) == 0 {
			stay := core.MustMove(u, u.Position())
			if s.cfg.Approach {
				stay = movegen.SuggestApproachMove(b, u)
			}
			acts = append(acts, stay)
		}
	}
	f.acts = acts
	return acts
}

// waiting lists the side to move's units that still have to act, in id
// order.
func (s *Searcher) waiting(d int) []*quick.Unit {
	f := s.frame(d)
	w := f.waiting[:0]
	for _, u := range s.b.Team(s.b.Phase()) {
		if !u.IsDead() && !u.ActionFinished() {
			w = append(w, u)
		}
	}
	f.waiting = w
	return w
}

// terminal returns the value of b when no further search is needed.
func (s *Searcher) terminal(turn int) (int, bool) {
	b := s.b
	me := b.Phase()
	switch {
	case b.Alive(me.Opponent()) == 0:
		return WinScore, true
	case b.Alive(me) == 0:
		return -WinScore, true
	}
	if lim := b.TurnLimit(); lim > 0 && b.TurnCount() >= lim {
		return s.timeoutValue(), true
	}
	if turn > s.cfg.MaxDepth || s.exhausted() {
		return s.leaf(), true
	}
	return 0, false
}

// dfs searches the position where moved units of the side to move have
// already acted this turn. Within a turn every level maximises for the same
// side; crossing a turn end negates the window.
func (s *Searcher) dfs(d, moved, turn, alpha, beta int, order Order) int {
	if v, ok := s.terminal(turn); ok {
		return v
	}
	waiting := s.waiting(d)
	if len(waiting) == 0 {
		return s.leaf()
	}

	b := s.b
	best := alpha
	for i, o := range s.cfg.Orders {
		if i > 0 && (moved > 0 || len(waiting) == 1) {
			break
		}
		if moved == 0 {
			order = o
		}
		u := order.pick(waiting, moved)
		root := turn == 0 && moved == 0

		for _, a := range s.generate(d, u, turn) {
			idx := -1
			if root {
				idx = s.rootIdx
				s.rootIdx++
				if s.rootFilter != nil && !s.rootFilter(idx) {
					continue
				}
			}
			if err := b.Apply(a); err != nil {
				s.err = err
				return best
			}

			var v int
			endsTurn := b.Unacted() == 0
			if endsTurn {
				if err := b.Apply(core.TurnEndAction()); err != nil {
					b.Undo()
					s.err = err
					return best
				}
				v = -s.dfs(d+1, 0, turn+1, -beta, -alpha, order)
				b.Undo()
			} else {
				if turn == 0 {
					s.pvLen[moved+1] = moved + 1
				}
				v = s.dfs(d+1, moved+1, turn, alpha, beta, order)
			}
			b.Undo()
			if s.err != nil {
				return best
			}

			if v > best {
				best = v
				if turn == 0 {
					s.record(moved, a, endsTurn)
					if root {
						s.bestRoot = idx
					}
				}
				if best > alpha {
					alpha = best
				}
				if best >= beta {
					return best
				}
			}
		}

		if root {
			s.logger.Debug().
				Str("order", order.String()).
				Int("best", best).
				Int64("nodes", s.nodes).
				Msg("Root order searched")
		}
	}
	return best
}

// record makes a followed by the best continuation of its child the best
// line from the moved-th unit.
func (s *Searcher) record(moved int, a core.Action, endsTurn bool) {
	line := s.pv[moved]
	line[moved] = a
	if endsTurn {
		s.pvLen[moved] = moved + 1
		return
	}
	n := s.pvLen[moved+1]
	copy(line[moved+1:n], s.pv[moved+1][moved+1:n])
	s.pvLen[moved] = n
}
