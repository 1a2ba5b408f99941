package serverless

import "github.com/cuemby/cirrus/pkg/types"

// SchedulingDecisions is the contract a Scheduler hands back to the head
// controller: which images to copy to which node's disk, which images to load
// into which node's RAM, and which schedulable invocations to
// start on which node. The controller validates every entry before acting on
// it and silently drops anything that violates a contract (duplicate image on
// a node, an invocation started twice, a node that doesn't exist) — a
// misbehaving Scheduler can waste a scheduling pass but cannot corrupt state.
type SchedulingDecisions struct {
	CopyToNodeDisk   map[string][]*types.Image
	LoadToRAM        map[string][]*types.Image
	StartInvocations map[string][]*types.Invocation
}

// NewSchedulingDecisions returns an empty, ready-to-populate decision set.
func NewSchedulingDecisions() *SchedulingDecisions {
	return &SchedulingDecisions{
		CopyToNodeDisk:   make(map[string][]*types.Image),
		LoadToRAM:        make(map[string][]*types.Image),
		StartInvocations: make(map[string][]*types.Invocation),
	}
}

// Scheduler decides, for the set of currently schedulable invocations and a
// snapshot of system state, what progress to make this pass. Implementations
// must treat state as read-only and must not retain it past the call.
type Scheduler interface {
	Schedule(schedulable []*types.Invocation, state *StateView) *SchedulingDecisions
}
