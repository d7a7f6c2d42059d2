package states

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/events"
)

// Transition represents a state transition in the history
type Transition struct {
	From      BattlePhase
	To        BattlePhase
	Timestamp time.Time
	Reason    string
}

// StateMachine tracks the phase of one battle and its transition history
type StateMachine struct {
	mu             sync.RWMutex
	gameID         string
	currentPhase   BattlePhase
	history        []Transition
	maxHistorySize int
	startTime      time.Time
	endTime        time.Time
	err            error
	publisher      events.Publisher
	logger         zerolog.Logger
}

// NewStateMachine creates a state machine in PhaseSetup. publisher may be nil.
func NewStateMachine(gameID string, publisher events.Publisher, logger zerolog.Logger) *StateMachine {
	return &StateMachine{
		gameID:         gameID,
		currentPhase:   PhaseSetup,
		history:        make([]Transition, 0, 8),
		maxHistorySize: 100,
		publisher:      publisher,
		logger:         logger.With().Str("component", "StateMachine").Str("game_id", gameID).Logger(),
	}
}

// CurrentPhase returns the current battle phase
func (sm *StateMachine) CurrentPhase() BattlePhase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.currentPhase
}

// TransitionTo attempts to transition to the specified phase
func (sm *StateMachine) TransitionTo(targetPhase BattlePhase, reason string) error {
	sm.mu.Lock()
	previousPhase := sm.currentPhase
	if !previousPhase.CanTransitionTo(targetPhase) {
		sm.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", previousPhase, targetPhase)
	}
	if targetPhase == PhaseError && sm.err == nil {
		sm.mu.Unlock()
		return fmt.Errorf("error phase requires an error: use Fail")
	}
	sm.apply(previousPhase, targetPhase, reason)
	sm.mu.Unlock()

	sm.announce(previousPhase, targetPhase, reason)
	return nil
}

// Fail moves the battle to PhaseError and remembers err.
func (sm *StateMachine) Fail(err error) error {
	sm.mu.Lock()
	previousPhase := sm.currentPhase
	if !previousPhase.CanTransitionTo(PhaseError) {
		sm.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", previousPhase, PhaseError)
	}
	sm.err = err
	sm.apply(previousPhase, PhaseError, err.Error())
	sm.mu.Unlock()

	sm.announce(previousPhase, PhaseError, err.Error())
	return nil
}

// apply must be called with mu held.
func (sm *StateMachine) apply(from, to BattlePhase, reason string) {
	now := time.Now()
	sm.addToHistory(Transition{From: from, To: to, Timestamp: now, Reason: reason})
	sm.currentPhase = to

	switch to {
	case PhaseRunning:
		sm.startTime = now
		sm.endTime = time.Time{}
	case PhaseEnded, PhaseError:
		sm.endTime = now
	case PhaseSetup:
		sm.err = nil
		sm.startTime = time.Time{}
		sm.endTime = time.Time{}
	}
}

// announce runs outside the lock so subscribers may query the machine.
func (sm *StateMachine) announce(from, to BattlePhase, reason string) {
	if sm.publisher != nil {
		sm.publisher.Publish(events.NewStateTransitionEvent(sm.gameID, from.String(), to.String(), reason))
	}

	sm.logger.Info().
		Str("from_phase", from.String()).
		Str("to_phase", to.String()).
		Str("reason", reason).
		Msg("State transition completed")
}

// addToHistory adds a transition to the history, maintaining max size
func (sm *StateMachine) addToHistory(transition Transition) {
	sm.history = append(sm.history, transition)

	if len(sm.history) > sm.maxHistorySize {
		sm.history = sm.history[len(sm.history)-sm.maxHistorySize:]
	}
}

// GetHistory returns a copy of the transition history
func (sm *StateMachine) GetHistory() []Transition {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	history := make([]Transition, len(sm.history))
	copy(history, sm.history)
	return history
}

// CanTransitionTo checks if a transition to the target phase is allowed
func (sm *StateMachine) CanTransitionTo(targetPhase BattlePhase) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.currentPhase.CanTransitionTo(targetPhase)
}

// Err returns the error passed to Fail, if the machine is in PhaseError.
func (sm *StateMachine) Err() error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.err
}

// Elapsed returns the running time of the battle: zero before it started,
// frozen once it ended.
func (sm *StateMachine) Elapsed() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.startTime.IsZero() {
		return 0
	}
	if !sm.endTime.IsZero() {
		return sm.endTime.Sub(sm.startTime)
	}
	return time.Since(sm.startTime)
}
