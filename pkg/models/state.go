package models

// CheckState is a stage of one check invocation
type CheckState string

const (
	StateStart       CheckState = "start"
	StateResolving   CheckState = "resolving"
	StateBuildingSet CheckState = "building_set"
	StateComparing   CheckState = "comparing"
	StateAggregating CheckState = "aggregating"
	StateResolved    CheckState = "resolved"
	StateRejected    CheckState = "rejected"
)

// stateOrder maps each non-terminal state to its successor
var stateOrder = map[CheckState]CheckState{
	StateStart:       StateResolving,
	StateResolving:   StateBuildingSet,
	StateBuildingSet: StateComparing,
	StateComparing:   StateAggregating,
	StateAggregating: StateResolved,
}

// Terminal reports whether no transition leaves s
func (s CheckState) Terminal() bool {
	return s == StateResolved || s == StateRejected
}

// CanTransition reports whether a check may move from s to next.
// Rejected is reachable from every non-terminal state.
func (s CheckState) CanTransition(next CheckState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateRejected {
		return true
	}
	return stateOrder[s] == next
}
