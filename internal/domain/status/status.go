// Package status defines the lifecycle phases of a solicitud evaluation.
package status

import "errors"

// Phase represents where a solicitud sits in its intake/evaluation lifecycle.
type Phase string

const (
	// Non-terminal phases
	PhaseReceived          Phase = "received"           // Submission accepted, nothing processed yet
	PhaseExtracting        Phase = "extracting"         // Unpacking archives, flattening the questionnaire
	PhaseUploading         Phase = "uploading"          // Pushing attachments to the remote file store
	PhaseIndexing          Phase = "indexing"           // Registering uploads with the vector store
	PhaseAwaitingAssistant Phase = "awaiting_assistant" // Background run in flight

	// Terminal phases
	PhaseDone   Phase = "done"
	PhaseFailed Phase = "failed"
)

// ErrInvalidTransition is returned when a phase transition is not allowed.
var ErrInvalidTransition = errors.New("invalid phase transition")

// IsTerminal returns true if the phase is a terminal state.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// IsActive returns true if the phase indicates in-flight processing.
func (p Phase) IsActive() bool {
	return !p.IsTerminal() && p != ""
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// ValidTransitions defines allowed phase transitions. Every non-terminal
// phase may fail; success only moves forward one step at a time.
var ValidTransitions = map[Phase][]Phase{
	PhaseReceived:          {PhaseExtracting, PhaseFailed},
	PhaseExtracting:        {PhaseUploading, PhaseFailed},
	PhaseUploading:         {PhaseIndexing, PhaseFailed},
	PhaseIndexing:          {PhaseAwaitingAssistant, PhaseFailed},
	PhaseAwaitingAssistant: {PhaseDone, PhaseFailed},
	PhaseDone:              {},
	PhaseFailed:            {},
}

// CanTransitionTo checks if a transition from the current phase to the target is valid.
func (p Phase) CanTransitionTo(target Phase) bool {
	validTargets, ok := ValidTransitions[p]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target phase and returns an error if invalid.
func (p Phase) TransitionTo(target Phase) (Phase, error) {
	if !p.CanTransitionTo(target) {
		return p, ErrInvalidTransition
	}
	return target, nil
}
