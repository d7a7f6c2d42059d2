package events

import (
	"time"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// Event type constants
const (
	TypeGameStarted     = "game.started"
	TypeGameEnded       = "game.ended"
	TypeTurnStarted     = "turn.started"
	TypeTurnEnded       = "turn.ended"
	TypeTurnPlanned     = "turn.planned"
	TypeActionApplied   = "action.applied"
	TypeActionRejected  = "action.rejected"
	TypeUnitDestroyed   = "unit.destroyed"
	TypeStateTransition = "state.transition"
)

// GameStartedEvent is published when a battle begins
type GameStartedEvent struct {
	BaseEvent
	Width     int
	Height    int
	Units     [core.NumTeams]int
	TurnLimit int
}

// NewGameStartedEvent creates a new GameStartedEvent
func NewGameStartedEvent(gameID string, width, height int, units [core.NumTeams]int, turnLimit int) *GameStartedEvent {
	return &GameStartedEvent{
		BaseEvent: newBase(TypeGameStarted, gameID),
		Width:     width,
		Height:    height,
		Units:     units,
		TurnLimit: turnLimit,
	}
}

// GameEndedEvent is published when a battle ends
type GameEndedEvent struct {
	BaseEvent
	Winner    core.Team
	Draw      bool
	Reason    string
	FinalTurn int
	Duration  time.Duration
}

// NewGameEndedEvent creates a new GameEndedEvent
func NewGameEndedEvent(gameID string, winner core.Team, draw bool, reason string, finalTurn int, duration time.Duration) *GameEndedEvent {
	return &GameEndedEvent{
		BaseEvent: newBase(TypeGameEnded, gameID),
		Winner:    winner,
		Draw:      draw,
		Reason:    reason,
		FinalTurn: finalTurn,
		Duration:  duration,
	}
}

// TurnStartedEvent is published when a side starts its turn
type TurnStartedEvent struct {
	BaseEvent
	Metadata EventMetadata
}

// NewTurnStartedEvent creates a new TurnStartedEvent
func NewTurnStartedEvent(gameID string, team core.Team, turn int) *TurnStartedEvent {
	return &TurnStartedEvent{
		BaseEvent: newBase(TypeTurnStarted, gameID),
		Metadata:  EventMetadata{Team: team, Turn: turn},
	}
}

// TurnEndedEvent is published when a side ends its turn
type TurnEndedEvent struct {
	BaseEvent
	Metadata     EventMetadata
	ActionsCount int
}

// NewTurnEndedEvent creates a new TurnEndedEvent
func NewTurnEndedEvent(gameID string, team core.Team, turn, actions int) *TurnEndedEvent {
	return &TurnEndedEvent{
		BaseEvent:    newBase(TypeTurnEnded, gameID),
		Metadata:     EventMetadata{Team: team, Turn: turn},
		ActionsCount: actions,
	}
}

// TurnPlannedEvent is published when a search agent has planned a turn
type TurnPlannedEvent struct {
	BaseEvent
	Metadata  EventMetadata
	EpisodeID string
	Actions   int
	Value     int
	Nodes     int64
	Elapsed   time.Duration
	Complete  bool
	Masked    int
}

// NewTurnPlannedEvent creates a new TurnPlannedEvent
func NewTurnPlannedEvent(gameID, episodeID string, team core.Team, turn, actions, value int,
	nodes int64, elapsed time.Duration, complete bool, masked int) *TurnPlannedEvent {
	return &TurnPlannedEvent{
		BaseEvent: newBase(TypeTurnPlanned, gameID),
		Metadata:  EventMetadata{Team: team, Turn: turn},
		EpisodeID: episodeID,
		Actions:   actions,
		Value:     value,
		Nodes:     nodes,
		Elapsed:   elapsed,
		Complete:  complete,
		Masked:    masked,
	}
}

// ActionAppliedEvent is published after an action changed the board
type ActionAppliedEvent struct {
	BaseEvent
	Metadata EventMetadata
	Action   core.ActionFields
	Dealt    int
	Taken    int
}

// NewActionAppliedEvent creates a new ActionAppliedEvent
func NewActionAppliedEvent(gameID string, turn int, action core.ActionFields, dealt, taken int) *ActionAppliedEvent {
	return &ActionAppliedEvent{
		BaseEvent: newBase(TypeActionApplied, gameID),
		Metadata:  EventMetadata{Team: action.Team, Turn: turn},
		Action:    action,
		Dealt:     dealt,
		Taken:     taken,
	}
}

// ActionRejectedEvent is published when an action fails validation
type ActionRejectedEvent struct {
	BaseEvent
	Metadata EventMetadata
	Action   core.ActionFields
	Reason   string
}

// NewActionRejectedEvent creates a new ActionRejectedEvent
func NewActionRejectedEvent(gameID string, turn int, action core.ActionFields, reason string) *ActionRejectedEvent {
	return &ActionRejectedEvent{
		BaseEvent: newBase(TypeActionRejected, gameID),
		Metadata:  EventMetadata{Team: action.Team, Turn: turn},
		Action:    action,
		Reason:    reason,
	}
}

// UnitDestroyedEvent is published when a unit's HP reaches zero
type UnitDestroyedEvent struct {
	BaseEvent
	Metadata    EventMetadata
	UnitID      int
	UnitType    core.UnitType
	DestroyedBy int
	Location    core.Coordinate
}

// NewUnitDestroyedEvent creates a new UnitDestroyedEvent. Metadata.Team is
// the destroyed unit's side.
func NewUnitDestroyedEvent(gameID string, turn int, u core.UnitOps, by int) *UnitDestroyedEvent {
	return &UnitDestroyedEvent{
		BaseEvent:   newBase(TypeUnitDestroyed, gameID),
		Metadata:    EventMetadata{Team: u.Team(), Turn: turn},
		UnitID:      u.ID(),
		UnitType:    u.Type(),
		DestroyedBy: by,
		Location:    u.Position(),
	}
}

// StateTransitionEvent is published when the battle changes phase
type StateTransitionEvent struct {
	BaseEvent
	FromPhase string
	ToPhase   string
	Reason    string
}

// NewStateTransitionEvent creates a new StateTransitionEvent
func NewStateTransitionEvent(gameID, from, to, reason string) *StateTransitionEvent {
	return &StateTransitionEvent{
		BaseEvent: newBase(TypeStateTransition, gameID),
		FromPhase: from,
		ToPhase:   to,
		Reason:    reason,
	}
}
