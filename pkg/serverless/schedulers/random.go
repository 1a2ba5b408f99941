// Package schedulers holds concrete Scheduler implementations (pkg/serverless).
package schedulers

import (
	"math/rand"

	"github.com/cuemby/cirrus/pkg/log"
	"github.com/cuemby/cirrus/pkg/serverless"
	"github.com/cuemby/cirrus/pkg/types"
	"github.com/google/uuid"
)

// Random is the reference scheduler: for every schedulable invocation it picks
// uniformly random compute hosts and makes whatever progress is possible
// there, preserving the original RandomServerlessScheduler's two-pass
// structure — one pass drives image placement, the other drives invocation
// starts, each drawing its own host independently — rather than folding both
// into a single decision per invocation.
type Random struct{}

// NewRandom constructs the reference random scheduler.
func NewRandom() *Random {
	return &Random{}
}

// Schedule implements serverless.Scheduler.
func (r *Random) Schedule(schedulable []*types.Invocation, state *serverless.StateView) *serverless.SchedulingDecisions {
	decisions := serverless.NewSchedulingDecisions()
	hosts := state.ComputeHosts()
	if len(hosts) == 0 {
		return decisions
	}

	r.makeImageDecisions(schedulable, state, hosts, decisions)
	r.makeInvocationDecisions(schedulable, state, hosts, decisions)
	return decisions
}

// makeImageDecisions picks a random node for each schedulable invocation and,
// if that node is missing the invocation's image, queues the next step (copy
// to disk, or load to RAM once it's on disk) needed to get it there.
func (r *Random) makeImageDecisions(schedulable []*types.Invocation, state *serverless.StateView, hosts []string, decisions *serverless.SchedulingDecisions) {
	queuedCopy := make(map[string]map[uuid.UUID]bool)
	queuedLoad := make(map[string]map[uuid.UUID]bool)

	for _, inv := range schedulable {
		image := inv.RegisteredFunction.Function.Image
		node := hosts[rand.Intn(len(hosts))]

		switch {
		case !state.IsImageOnNode(node, image.ID) && !state.IsImageBeingCopied(node, image.ID):
			if queuedCopy[node] == nil {
				queuedCopy[node] = make(map[uuid.UUID]bool)
			}
			if queuedCopy[node][image.ID] {
				continue
			}
			queuedCopy[node][image.ID] = true
			decisions.CopyToNodeDisk[node] = append(decisions.CopyToNodeDisk[node], image)

		case state.IsImageOnNode(node, image.ID) && !state.IsImageInRAM(node, image.ID) && !state.IsImageBeingLoaded(node, image.ID):
			if queuedLoad[node] == nil {
				queuedLoad[node] = make(map[uuid.UUID]bool)
			}
			if queuedLoad[node][image.ID] {
				continue
			}
			queuedLoad[node][image.ID] = true
			decisions.LoadToRAM[node] = append(decisions.LoadToRAM[node], image)
		}
	}
}

// makeInvocationDecisions picks a (new, independent) random node for each
// schedulable invocation and starts it there if the image is already resident
// in that node's RAM and the node currently has room.
func (r *Random) makeInvocationDecisions(schedulable []*types.Invocation, state *serverless.StateView, hosts []string, decisions *serverless.SchedulingDecisions) {
	cores := state.AvailableCores()
	ram := state.AvailableRAM()
	disk := state.AvailableDisk()
	assigned := make(map[uuid.UUID]bool)

	for _, inv := range schedulable {
		if assigned[inv.ID] {
			continue
		}
		image := inv.RegisteredFunction.Function.Image
		rf := inv.RegisteredFunction
		node := hosts[rand.Intn(len(hosts))]

		if !state.IsImageInRAM(node, image.ID) {
			continue
		}
		if cores[node] < 1 || ram[node] < rf.RAMLimit || disk[node] < rf.DiskLimit {
			log.WithComponent("scheduler").Debug().
				Str("node", node).Str("invocation", inv.ID.String()).
				Msg("random scheduler skipped a node without enough budget this pass")
			continue
		}

		cores[node]--
		ram[node] -= rf.RAMLimit
		disk[node] -= rf.DiskLimit
		assigned[inv.ID] = true
		decisions.StartInvocations[node] = append(decisions.StartInvocations[node], inv)
	}
}
