package run

import "github.com/danghamo/twieo/internal/domain/shared"

// State is the session lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Action is a lifecycle command
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

var transitions = map[State]map[Action]State{
	StateIdle:    {ActionStart: StateRunning},
	StateRunning: {ActionPause: StatePaused, ActionStop: StateStopped},
	StatePaused:  {ActionResume: StateRunning, ActionStop: StateStopped},
}

// Next returns the state reached by applying action, or an
// INVALID_STATE_TRANSITION error. Stopped is transient and accepts nothing.
func (s State) Next(action Action) (State, error) {
	if next, ok := transitions[s][action]; ok {
		return next, nil
	}
	return s, shared.ErrInvalidTransition(string(action), string(s))
}

// Active reports whether ingest and the timer should be live
func (s State) Active() bool {
	return s == StateRunning
}
