package state

import "fmt"

type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
)

func (s JobState) String() string {
	return string(s)
}

var AllStates = []JobState{
	StateWaiting,
	StateActive,
	StateCompleted,
}

// InFlightStates are the states in which a player's job still holds its turn.
var InFlightStates = []JobState{
	StateWaiting,
	StateActive,
}

type Transition struct {
	From JobState
	To   JobState
}

// There is no way back to waiting and nothing leaves completed.
var ValidTransitions = []Transition{
	{From: StateWaiting, To: StateActive},
	{From: StateActive, To: StateCompleted},
}

func IsValidTransition(from, to JobState) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

func (s JobState) IsValid() bool {
	for _, st := range AllStates {
		if st == s {
			return true
		}
	}
	return false
}

// ParseJobState converts user input (e.g. a query parameter) into a JobState.
func ParseJobState(s string) (JobState, error) {
	st := JobState(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown job state %q", s)
	}
	return st, nil
}

// Contains reports whether s is one of states.
func Contains(states []JobState, s JobState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
