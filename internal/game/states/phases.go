package states

import "fmt"

// BattlePhase is the lifecycle phase of one battle
type BattlePhase int

const (
	// PhaseSetup - board built, no action applied yet
	PhaseSetup BattlePhase = iota

	// PhaseRunning - sides alternate turns
	PhaseRunning

	// PhaseEnded - an outcome was reached
	PhaseEnded

	// PhaseError - the battle was aborted
	PhaseError
)

// String returns the string representation of a BattlePhase
func (p BattlePhase) String() string {
	switch p {
	case PhaseSetup:
		return "Setup"
	case PhaseRunning:
		return "Running"
	case PhaseEnded:
		return "Ended"
	case PhaseError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTerminal returns true if the phase represents a terminal state
func (p BattlePhase) IsTerminal() bool {
	return p == PhaseEnded || p == PhaseError
}

// CanReceiveActions returns true if the battle can apply actions in this phase
func (p BattlePhase) CanReceiveActions() bool {
	return p == PhaseRunning
}

// AllowedTransitions returns the valid phases this phase can transition to
func (p BattlePhase) AllowedTransitions() []BattlePhase {
	switch p {
	case PhaseSetup:
		return []BattlePhase{PhaseRunning, PhaseError}
	case PhaseRunning:
		return []BattlePhase{PhaseEnded, PhaseError}
	case PhaseEnded, PhaseError:
		return []BattlePhase{PhaseSetup}
	default:
		return []BattlePhase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p BattlePhase) CanTransitionTo(target BattlePhase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}

// ParsePhase converts a string to a BattlePhase
func ParsePhase(s string) (BattlePhase, error) {
	switch s {
	case "Setup":
		return PhaseSetup, nil
	case "Running":
		return PhaseRunning, nil
	case "Ended":
		return PhaseEnded, nil
	case "Error":
		return PhaseError, nil
	default:
		return PhaseSetup, fmt.Errorf("unknown phase %q", s)
	}
}
