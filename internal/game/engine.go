package game

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/events"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/reach"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/states"
)

// ErrNotStarted is returned when actions arrive before Start.
var ErrNotStarted = errors.New("game not started")

// GameConfig holds configuration for creating a new game engine
type GameConfig struct {
	Board    *core.Board
	Tables   *rules.Tables
	EventBus events.Publisher
	Logger   zerolog.Logger
	GameID   string
}

// Engine owns the canonical board of one battle. It validates and applies
// canonical actions, passes turns and decides the outcome. It is not safe for
// concurrent use.
type Engine struct {
	gameID   string
	board    *core.Board
	tables   *rules.Tables
	reach    *reach.Engine
	checker  *rules.OutcomeChecker
	machine  *states.StateMachine
	eventBus events.Publisher
	logger   zerolog.Logger

	actions int
	outcome rules.Outcome
}

// NewEngine creates an engine around cfg.Board. Missing tables fall back to
// the defaults and a missing game id is generated.
func NewEngine(cfg GameConfig) (*Engine, error) {
	if cfg.Board == nil {
		return nil, fmt.Errorf("game config: board is required")
	}
	if cfg.Tables == nil {
		cfg.Tables = rules.DefaultTables()
	}
	if cfg.GameID == "" {
		cfg.GameID = uuid.NewString()
	}
	if !cfg.Board.Phase().IsValid() {
		return nil, fmt.Errorf("game config: phase %d: %w", cfg.Board.Phase(), core.ErrInvalidTeam)
	}

	return &Engine{
		gameID:   cfg.GameID,
		board:    cfg.Board,
		tables:   cfg.Tables,
		reach:    reach.NewEngine(cfg.Board.W, cfg.Board.H, cfg.Tables.MaxBudget()),
		checker:  rules.NewOutcomeChecker(cfg.Logger),
		machine:  states.NewStateMachine(cfg.GameID, cfg.EventBus, cfg.Logger),
		eventBus: cfg.EventBus,
		logger:   cfg.Logger.With().Str("component", "GameEngine").Str("game_id", cfg.GameID).Logger(),
	}, nil
}

func (e *Engine) publish(ev events.Event) {
	if e.eventBus != nil {
		e.eventBus.Publish(ev)
	}
}

// Start moves the battle to running and announces the first turn. A board
// that is already decided ends immediately.
func (e *Engine) Start() error {
	if err := e.machine.TransitionTo(states.PhaseRunning, "battle started"); err != nil {
		return err
	}
	units := [core.NumTeams]int{e.board.AliveCount(core.Red), e.board.AliveCount(core.Blue)}
	e.publish(events.NewGameStartedEvent(e.gameID, e.board.W, e.board.H, units, e.board.TurnLimit()))

	e.logger.Info().
		Int("width", e.board.W).
		Int("height", e.board.H).
		Int("red_units", units[core.Red]).
		Int("blue_units", units[core.Blue]).
		Int("turn_limit", e.board.TurnLimit()).
		Msg("Battle started")

	if e.checkOutcome() {
		return nil
	}
	e.publish(events.NewTurnStartedEvent(e.gameID, e.board.Phase(), e.board.TurnCount()))
	return nil
}

func (e *Engine) running() error {
	switch phase := e.machine.CurrentPhase(); {
	case phase == states.PhaseSetup:
		return ErrNotStarted
	case phase.IsTerminal():
		return core.ErrGameOver
	}
	return nil
}

// Apply validates a canonical action and executes it. A TurnEnd passes the
// turn and a Surrender concedes for a.Team. It returns the damage dealt and
// taken by an attack.
func (e *Engine) Apply(a core.ActionFields) (dealt, taken int, err error) {
	if err := e.running(); err != nil {
		return 0, 0, err
	}
	switch a.Kind {
	case core.ActTurnEnd:
		return 0, 0, e.EndTurn()
	case core.ActSurrender:
		return 0, 0, e.Surrender(a.Team)
	}

	if err := rules.ValidateAction(e.reach, e.board, e.tables, a); err != nil {
		e.publish(events.NewActionRejectedEvent(e.gameID, e.board.TurnCount(), a, err.Error()))
		e.logger.Warn().Err(err).Str("action", a.String()).Msg("Action rejected")
		return 0, 0, err
	}

	u, _ := e.board.Unit(a.ActingID)
	if err := e.board.MoveUnit(u, a.Dest); err != nil {
		return 0, 0, fmt.Errorf("apply %s: %w", a, err)
	}
	u.SetActionFinished(true)

	if a.Kind == core.ActMoveAttack {
		tgt, _ := e.board.Unit(a.TargetID)
		dealt, taken = e.tables.Damages(u.Type(), u.HP(), tgt.Type(), tgt.HP(),
			e.tables.DefenseStars(e.board.TerrainAt(u.Position())),
			e.tables.DefenseStars(e.board.TerrainAt(tgt.Position())))
		tgt.SetHP(tgt.HP() - dealt)
		u.SetHP(u.HP() - taken)
		if tgt.HP() <= 0 {
			e.destroy(tgt, u.ID())
		}
		if u.HP() <= 0 {
			e.destroy(u, tgt.ID())
		}
	}
	e.actions++

	e.publish(events.NewActionAppliedEvent(e.gameID, e.board.TurnCount(), a, dealt, taken))
	e.logger.Debug().
		Str("action", a.String()).
		Int("dealt", dealt).
		Int("taken", taken).
		Msg("Action applied")

	e.checkOutcome()
	return dealt, taken, nil
}

func (e *Engine) destroy(u *core.Unit, by int) {
	e.publish(events.NewUnitDestroyedEvent(e.gameID, e.board.TurnCount(), u, by))
	e.board.Kill(u)
}

// EndTurn passes the turn to the other side.
func (e *Engine) EndTurn() error {
	if err := e.running(); err != nil {
		return err
	}
	team, turn := e.board.Phase(), e.board.TurnCount()
	e.publish(events.NewTurnEndedEvent(e.gameID, team, turn, e.actions))
	e.logger.Debug().
		Str("team", team.String()).
		Int("turn", turn).
		Int("actions", e.actions).
		Msg("Turn ended")

	e.board.EndTurn()
	e.actions = 0

	if e.checkOutcome() {
		return nil
	}
	e.publish(events.NewTurnStartedEvent(e.gameID, e.board.Phase(), e.board.TurnCount()))
	return nil
}

// Surrender ends the battle with team's opponent as the winner.
func (e *Engine) Surrender(team core.Team) error {
	if err := e.running(); err != nil {
		return err
	}
	if !team.IsValid() {
		return fmt.Errorf("surrender by %d: %w", team, core.ErrInvalidTeam)
	}
	e.finish(rules.Outcome{Over: true, Winner: team.Opponent(), Reason: rules.ReasonSurrender})
	return nil
}

// Abort moves a running battle to the error phase.
func (e *Engine) Abort(err error) error {
	return e.machine.Fail(err)
}

func (e *Engine) checkOutcome() bool {
	out := e.checker.Check(e.board)
	if !out.Over {
		return false
	}
	e.finish(out)
	return true
}

func (e *Engine) finish(out rules.Outcome) {
	e.outcome = out
	reason := out.Reason
	if out.Draw {
		reason += ": draw"
	} else {
		reason += ": " + out.Winner.String() + " wins"
	}
	if err := e.machine.TransitionTo(states.PhaseEnded, reason); err != nil {
		e.logger.Error().Err(err).Msg("Failed to end battle")
	}
	e.publish(events.NewGameEndedEvent(e.gameID, out.Winner, out.Draw, out.Reason,
		e.board.TurnCount(), e.machine.Elapsed()))
}

// Outcome returns the result of the battle; Over is false while it runs.
func (e *Engine) Outcome() rules.Outcome { return e.outcome }

// IsGameOver reports whether the battle has ended or was aborted.
func (e *Engine) IsGameOver() bool { return e.machine.CurrentPhase().IsTerminal() }

// Phase returns the lifecycle phase.
func (e *Engine) Phase() states.BattlePhase { return e.machine.CurrentPhase() }

// History returns the lifecycle transitions so far.
func (e *Engine) History() []states.Transition { return e.machine.GetHistory() }

// Board returns the canonical board. Callers must not mutate it.
func (e *Engine) Board() *core.Board { return e.board }

// Tables returns the rule tables the engine applies.
func (e *Engine) Tables() *rules.Tables { return e.tables }

// GameID returns the battle's id.
func (e *Engine) GameID() string { return e.gameID }
