package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
)

// AgentConfig configures an Agent.
type AgentConfig struct {
	Search Config
	// Workers is the number of parallel root workers; one searches
	// sequentially.
	Workers int
	// MaxActiveFriends and MaxActiveEnemies cap the units still to act on
	// each side; the rest are masked. Zero or less disables the cap.
	MaxActiveFriends int
	MaxActiveEnemies int
	TurnSlices       int
	HistoryCapacity  int
	// ShuffleIDs shuffles compact ids within each team per episode.
	ShuffleIDs bool
	Seed       uint64
}

// DefaultAgentConfig returns the standard agent settings.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Search:           DefaultConfig(),
		Workers:          1,
		MaxActiveFriends: 5,
		MaxActiveEnemies: 20,
		TurnSlices:       quick.DefaultTurnSlices,
		ShuffleIDs:       true,
	}
}

// Decision is an agent's plan for one turn in canonical ids.
type Decision struct {
	EpisodeID uuid.UUID
	Team      core.Team
	Turn      int
	Plan      []core.ActionFields
	Value     int
	Nodes     int64
	Elapsed   time.Duration
	Complete  bool
	// Masked lists the canonical ids that sat the episode out.
	Masked []int
}

// Agent plans turns on a canonical board: it builds an episode board, runs
// the search, and translates the plan back.
type Agent struct {
	mu       sync.Mutex
	cfg      AgentConfig
	tables   *rules.Tables
	logger   zerolog.Logger
	episodes uint64
}

// NewAgent creates an agent.
func NewAgent(cfg AgentConfig, tb *rules.Tables, logger zerolog.Logger) *Agent {
	return &Agent{
		cfg:    cfg,
		tables: tb,
		logger: logger.With().Str("component", "Agent").Logger(),
	}
}

// SetConfig replaces the agent's configuration for subsequent episodes. It
// may be called while Decide runs.
func (a *Agent) SetConfig(cfg AgentConfig) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
}

// Config returns the agent's configuration.
func (a *Agent) Config() AgentConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func capOrNone(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

// boards builds n episode boards from independent copies of canon. Every
// board gets the same compact ids.
func (a *Agent) boards(cfg AgentConfig, canon *core.Board, mask map[int]bool, seed uint64, n int) ([]*quick.Board, error) {
	slices := cfg.TurnSlices
	if need := cfg.Search.MaxDepth + 2; slices < need {
		slices = need
	}
	out := make([]*quick.Board, n)
	for i := range out {
		opts := quick.Options{
			TurnSlices:      slices,
			HistoryCapacity: cfg.HistoryCapacity,
			Mask:            mask,
		}
		if cfg.ShuffleIDs {
			opts.RNG = rand.New(rand.NewSource(seed))
		}
		b, err := quick.New(canon.Clone(), a.tables, opts)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Decide plans the turn of the side to move on canon. canon is only read.
func (a *Agent) Decide(ctx context.Context, canon *core.Board) (Decision, error) {
	a.mu.Lock()
	cfg := a.cfg
	seed := cfg.Seed + a.episodes
	a.episodes++
	a.mu.Unlock()

	d := Decision{
		EpisodeID: uuid.New(),
		Team:      canon.Phase(),
		Turn:      canon.TurnCount(),
	}
	mask := quick.ActiveMask(canon, capOrNone(cfg.MaxActiveFriends), capOrNone(cfg.MaxActiveEnemies))
	for id := range mask {
		d.Masked = append(d.Masked, id)
	}
	sort.Ints(d.Masked)

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	boards, err := a.boards(cfg, canon, mask, seed, workers)
	if err != nil {
		return d, fmt.Errorf("episode %s: %w", d.EpisodeID, err)
	}

	var res Result
	if workers == 1 {
		s := NewSearcher(cfg.Search, a.logger.With().Str("episode", d.EpisodeID.String()).Logger(),
			rand.New(rand.NewSource(seed)))
		res, err = s.Search(ctx, boards[0])
	} else {
		p := NewParallelSearcher(cfg.Search, a.logger.With().Str("episode", d.EpisodeID.String()).Logger(), seed)
		res, err = p.Search(ctx, boards)
	}
	if err != nil {
		return d, fmt.Errorf("episode %s: %w", d.EpisodeID, err)
	}

	plan := res.Plan
	if len(mask) > 0 && len(plan) > 1 {
		plan = plan[:1]
	}
	for _, act := range plan {
		f, err := boards[0].TranslateAction(act)
		if err != nil {
			return d, fmt.Errorf("episode %s: %w", d.EpisodeID, err)
		}
		d.Plan = append(d.Plan, f)
	}
	d.Value, d.Nodes, d.Elapsed, d.Complete = res.Value, res.Nodes, res.Elapsed, res.Complete

	a.logger.Info().
		Str("episode", d.EpisodeID.String()).
		Str("team", d.Team.String()).
		Int("turn", d.Turn).
		Int("actions", len(d.Plan)).
		Ints("masked", d.Masked).
		Int("value", d.Value).
		Msg("Turn planned")
	return d, nil
}
