package subscribers

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/events"
)

// LoggerSubscriber logs events to structured logs
type LoggerSubscriber struct {
	id              string
	logger          zerolog.Logger
	logLevel        zerolog.Level
	eventTypeFilter map[string]bool // If non-nil, only log these event types
	devMode         bool            // If true, log full event details
}

// NewLoggerSubscriber creates a new logger subscriber
func NewLoggerSubscriber(id string, logger zerolog.Logger, logLevel zerolog.Level) *LoggerSubscriber {
	return &LoggerSubscriber{
		id:       id,
		logger:   logger.With().Str("subscriber", "event_logger").Logger(),
		logLevel: logLevel,
	}
}

// ID returns the subscriber's unique identifier
func (ls *LoggerSubscriber) ID() string {
	return ls.id
}

// SetEventFilter sets which event types to log (nil means log all)
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.eventTypeFilter = nil
		return
	}

	ls.eventTypeFilter = make(map[string]bool)
	for _, eventType := range eventTypes {
		ls.eventTypeFilter[eventType] = true
	}
}

// SetDevMode enables or disables development mode logging
func (ls *LoggerSubscriber) SetDevMode(enabled bool) {
	ls.devMode = enabled
}

// InterestedIn returns true if the subscriber wants to receive this event type
func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	if ls.eventTypeFilter == nil {
		return true
	}
	return ls.eventTypeFilter[eventType]
}

// HandleEvent processes an event by logging it
func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	eventLogger := ls.logger.With().
		Str("event_type", event.Type()).
		Str("game_id", event.GameID()).
		Time("timestamp", event.Timestamp()).
		Logger()

	var logEvent *zerolog.Event
	switch ls.logLevel {
	case zerolog.DebugLevel:
		logEvent = eventLogger.Debug()
	case zerolog.WarnLevel:
		logEvent = eventLogger.Warn()
	case zerolog.ErrorLevel:
		logEvent = eventLogger.Error()
	default:
		logEvent = eventLogger.Info()
	}

	switch e := event.(type) {
	case *events.GameStartedEvent:
		logEvent.
			Int("map_width", e.Width).
			Int("map_height", e.Height).
			Int("red_units", e.Units[0]).
			Int("blue_units", e.Units[1]).
			Int("turn_limit", e.TurnLimit)

	case *events.GameEndedEvent:
		logEvent.
			Str("winner", e.Winner.String()).
			Bool("draw", e.Draw).
			Str("reason", e.Reason).
			Int("final_turn", e.FinalTurn).
			Dur("duration", e.Duration)

	case *events.TurnStartedEvent:
		logEvent.
			Str("team", e.Metadata.Team.String()).
			Int("turn", e.Metadata.Turn)

	case *events.TurnEndedEvent:
		logEvent.
			Str("team", e.Metadata.Team.String()).
			Int("turn", e.Metadata.Turn).
			Int("actions_count", e.ActionsCount)

	case *events.TurnPlannedEvent:
		logEvent.
			Str("team", e.Metadata.Team.String()).
			Int("turn", e.Metadata.Turn).
			Str("episode_id", e.EpisodeID).
			Int("actions", e.Actions).
			Int("value", e.Value).
			Int64("nodes", e.Nodes).
			Dur("elapsed", e.Elapsed).
			Bool("complete", e.Complete).
			Int("masked", e.Masked)

	case *events.ActionAppliedEvent:
		logEvent.
			Str("team", e.Metadata.Team.String()).
			Str("action", e.Action.String()).
			Int("dealt", e.Dealt).
			Int("taken", e.Taken)

	case *events.ActionRejectedEvent:
		logEvent.
			Str("team", e.Metadata.Team.String()).
			Str("action", e.Action.String()).
			Str("reason", e.Reason)

	case *events.UnitDestroyedEvent:
		logEvent.
			Str("team", e.Metadata.Team.String()).
			Int("unit_id", e.UnitID).
			Str("unit_type", e.UnitType.String()).
			Int("destroyed_by", e.DestroyedBy).
			Int("x", e.Location.X).
			Int("y", e.Location.Y)

	case *events.StateTransitionEvent:
		logEvent.
			Str("from_phase", e.FromPhase).
			Str("to_phase", e.ToPhase).
			Str("reason", e.Reason)
	}

	if ls.devMode {
		if jsonData, err := json.Marshal(event); err == nil {
			logEvent.RawJSON("event_data", jsonData)
		}
	}

	logEvent.Msg("Game event")
}
