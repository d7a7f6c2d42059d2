package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/config"
	"github.com/mitchelldurbincs/TacticalSearch/internal/experience"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/events"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/events/subscribers"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/mapgen"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
	"github.com/mitchelldurbincs/TacticalSearch/internal/monitoring"
	"github.com/mitchelldurbincs/TacticalSearch/internal/search"
	"github.com/mitchelldurbincs/TacticalSearch/internal/storage"
)

// leakThreshold is how many goroutines above the baseline may survive a
// battle before the monitor warns.
const leakThreshold = 64

// Summary tallies finished self-play games.
type Summary struct {
	Played     int
	Wins       [core.NumTeams]int
	Draws      int
	GameIDs    []string
	LeakAlerts int
}

// Runner plays generated battles between two search agents.
type Runner struct {
	cfg     *config.Config
	tables  *rules.Tables
	agents  [core.NumTeams]*search.Agent
	store   *storage.Storage
	traces  experience.PersistenceLayer
	monitor *monitoring.GoroutineMonitor
	logger  zerolog.Logger

	// Render prints the board after every turn to Out.
	Render bool
	Out    io.Writer
}

// NewRunner loads the rule tables and opens the configured outputs.
func NewRunner(cfg *config.Config, logger zerolog.Logger) (*Runner, error) {
	r := &Runner{
		cfg:    cfg,
		tables: rules.DefaultTables(),
		logger: logger.With().Str("component", "SelfPlay").Logger(),
		Out:    os.Stdout,
	}
	if cfg.Rules.TablesFile != "" {
		tb, err := rules.LoadTables(cfg.Rules.TablesFile)
		if err != nil {
			return nil, err
		}
		r.tables = tb
	}

	ac, err := AgentConfigFrom(cfg.Search, cfg.Board)
	if err != nil {
		return nil, err
	}
	for t := range r.agents {
		r.agents[t] = search.NewAgent(ac, r.tables, logger.With().Str("team", core.Team(t).String()).Logger())
	}

	if cfg.Storage.Enabled {
		if cfg.Storage.InMemory {
			r.store, err = storage.OpenInMemory(logger)
		} else {
			r.store, err = storage.Open(cfg.Storage.Dir, logger)
		}
		if err != nil {
			return nil, err
		}
	}

	pc := experience.PersistenceConfig{Type: experience.PersistenceTypeNone}
	if cfg.Experience.Enabled {
		pc = experience.PersistenceConfig{
			Type:             experience.PersistenceTypeFile,
			BaseDir:          cfg.Experience.Dir,
			MaxFileSize:      int64(cfg.Experience.MaxFileSizeMB) * 1024 * 1024,
			RotationInterval: time.Duration(cfg.Experience.RotationIntervalMin) * time.Minute,
		}
	}
	if r.traces, err = experience.NewPersistenceLayer(pc, logger); err != nil {
		return nil, errors.Join(err, r.Close())
	}

	r.monitor = monitoring.NewGoroutineMonitor(logger, leakThreshold)
	r.monitor.RegisterComponent("search_workers", ac.Workers)
	return r, nil
}

// SetAgentConfig updates both agents for their next episode.
func (r *Runner) SetAgentConfig(ac search.AgentConfig) {
	for _, a := range r.agents {
		a.SetConfig(ac)
	}
}

// Store returns the episode store, nil when storage is disabled.
func (r *Runner) Store() *storage.Storage { return r.store }

// Monitor returns the goroutine monitor checked after every battle.
func (r *Runner) Monitor() *monitoring.GoroutineMonitor { return r.monitor }

// Traces returns the trace persistence layer.
func (r *Runner) Traces() experience.PersistenceLayer { return r.traces }

// Close flushes and closes the outputs.
func (r *Runner) Close() error {
	var errs []error
	if r.traces != nil {
		errs = append(errs, r.traces.Close())
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	return errors.Join(errs...)
}

// Run plays the configured number of games. It stops early, returning the
// games played so far, when ctx is cancelled or a game fails.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	for i := 0; i < r.cfg.Game.Games; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		gameID, out, err := r.play(ctx, r.cfg.Game.Seed+uint64(i))
		if err != nil {
			return sum, fmt.Errorf("game %d: %w", i, err)
		}
		sum.Played++
		sum.GameIDs = append(sum.GameIDs, gameID)
		sum.LeakAlerts = r.monitor.Check("game " + gameID).Alerts
		if out.Draw {
			sum.Draws++
		} else {
			sum.Wins[out.Winner]++
		}
	}
	return sum, nil
}

func (r *Runner) generate(seed uint64) (*core.Board, error) {
	gc := r.cfg.Game
	mc := mapgen.DefaultMapConfig(gc.Width, gc.Height, gc.UnitsPerTeam)
	mc.TurnLimit = gc.TurnLimit
	mc.DrawHPThreshold = gc.DrawHPThreshold
	return mapgen.NewGenerator(mc, r.tables, rand.New(rand.NewSource(seed))).Generate()
}

func (r *Runner) play(ctx context.Context, seed uint64) (string, rules.Outcome, error) {
	b, err := r.generate(seed)
	if err != nil {
		return "", rules.Outcome{}, err
	}
	gameID := uuid.NewString()
	logger := r.logger.With().Str("game_id", gameID).Uint64("seed", seed).Logger()

	var bus events.Bus = events.NewEventBus(logger)
	bus.Subscribe(subscribers.NewLoggerSubscriber("event_logger", logger, zerolog.DebugLevel))
	collector := experience.NewCollector(r.cfg.Experience.BufferSize, gameID, r.traces, logger)
	bus.Subscribe(collector)

	eng, err := game.NewEngine(game.GameConfig{
		Board:    b,
		Tables:   r.tables,
		EventBus: bus,
		Logger:   logger,
		GameID:   gameID,
	})
	if err != nil {
		return gameID, rules.Outcome{}, err
	}
	start := time.Now()
	if err := eng.Start(); err != nil {
		return gameID, rules.Outcome{}, err
	}

	episodes := 0
	for !eng.IsGameOver() {
		n, err := r.turn(ctx, eng, bus, collector)
		episodes += n
		if err != nil {
			if abortErr := eng.Abort(err); abortErr != nil {
				logger.Error().Err(abortErr).Msg("Failed to abort battle")
			}
			return gameID, rules.Outcome{}, err
		}
		if r.Render {
			fmt.Fprintln(r.Out, eng.Render())
		}
	}

	out := eng.Outcome()
	if r.store != nil {
		res := &storage.GameResult{
			GameID:    gameID,
			Winner:    out.Winner,
			Draw:      out.Draw,
			Reason:    out.Reason,
			FinalTurn: b.TurnCount(),
			Duration:  time.Since(start),
			Episodes:  episodes,
		}
		if err := r.store.SaveResult(res); err != nil {
			logger.Warn().Err(err).Msg("Failed to save battle result")
		}
	}
	if n := collector.Dropped(); n > 0 {
		logger.Warn().Int("records", n).Msg("Trace records dropped")
	}
	return gameID, out, nil
}

// turn plays the side to move until its turn ends. Masked episodes plan a
// single action, so the side is asked again while it has units waiting.
func (r *Runner) turn(ctx context.Context, eng *game.Engine, bus events.Publisher, collector *experience.Collector) (int, error) {
	b := eng.Board()
	team := b.Phase()
	episodes := 0

	for {
		d, err := r.agents[team].Decide(ctx, b)
		if err != nil {
			return episodes, err
		}
		episodes++
		bus.Publish(events.NewTurnPlannedEvent(eng.GameID(), d.EpisodeID.String(), d.Team, d.Turn,
			len(d.Plan), d.Value, d.Nodes, d.Elapsed, d.Complete, len(d.Masked)))
		r.record(ctx, eng.GameID(), d, collector)

		applied := 0
		for _, a := range d.Plan {
			if a.Kind == core.ActTurnEnd {
				break
			}
			if _, _, err := eng.Apply(a); err != nil {
				r.logger.Warn().Err(err).Str("action", a.String()).Msg("Planned action rejected")
				break
			}
			applied++
			if eng.IsGameOver() {
				return episodes, nil
			}
		}

		if applied == 0 || len(d.Masked) == 0 || !waiting(b, team) {
			return episodes, eng.EndTurn()
		}
	}
}

func (r *Runner) record(ctx context.Context, gameID string, d search.Decision, collector *experience.Collector) {
	ep := storage.NewEpisode(gameID, d)
	if r.store != nil {
		if err := r.store.SaveEpisode(ep); err != nil {
			r.logger.Warn().Err(err).Str("episode", ep.ID.String()).Msg("Failed to save episode")
		}
	}
	if err := collector.AddEpisode(ctx, ep); err != nil {
		r.logger.Warn().Err(err).Str("episode", ep.ID.String()).Msg("Failed to buffer episode trace")
	}
}

func waiting(b *core.Board, team core.Team) bool {
	for _, u := range b.LivingUnits(team) {
		if !u.ActionFinished() {
			return true
		}
	}
	return false
}
