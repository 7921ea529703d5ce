// Package model contains domain models passed between layers.
package model

// TeamLabel names one of the three team slots of a triangular.
type TeamLabel string

// The three fixed team slots. TeamC is the team waiting at kick-off.
const (
	TeamA TeamLabel = "TeamA"
	TeamB TeamLabel = "TeamB"
	TeamC TeamLabel = "TeamC"
)

// TeamLabels lists the slots in their deterministic tie-break order.
var TeamLabels = [3]TeamLabel{TeamA, TeamB, TeamC}

// Valid reports whether l is one of the three known slots.
func (l TeamLabel) Valid() bool {
	return l == TeamA || l == TeamB || l == TeamC
}

// Index returns the slot position in TeamLabels, or -1 for unknown labels.
func (l TeamLabel) Index() int {
	for i, t := range TeamLabels {
		if t == l {
			return i
		}
	}
	return -1
}
