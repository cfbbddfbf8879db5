package replicator

import "fmt"

// Phase is the migration state. Failed is absorbing.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseReading
	PhaseWriting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReading:
		return "reading"
	case PhaseWriting:
		return "writing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// transitions lists the legal moves out of each phase
var transitions = map[Phase][]Phase{
	PhaseIdle:    {PhaseReading},
	PhaseReading: {PhaseWriting, PhaseFailed},
	PhaseWriting: {PhaseDone, PhaseFailed},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}
