package schedulers

import (
	"testing"

	"github.com/cuemby/cirrus/pkg/serverless"
	"github.com/cuemby/cirrus/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newInvocation(image *types.Image, ramLimit, diskLimit int64) *types.Invocation {
	return &types.Invocation{
		ID: uuid.New(),
		RegisteredFunction: &types.RegisteredFunction{
			ID:        uuid.New(),
			Function:  &types.Function{Name: "fn", Image: image, Computation: types.Computation{Flops: 1}},
			RAMLimit:  ramLimit,
			DiskLimit: diskLimit,
		},
		State: types.InvocationSchedulable,
	}
}

func stateWithNoResidency(hosts []string, cores map[string]int, ram, disk map[string]int64) *serverless.StateView {
	return serverless.NewStateView(hosts, cores, ram, disk, nil, nil, nil, nil)
}

func TestScheduleQueuesCopyForMissingImage(t *testing.T) {
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	inv := newInvocation(image, 10, 10)

	state := stateWithNoResidency([]string{"node-0"}, map[string]int{"node-0": 4}, map[string]int64{"node-0": 1000}, map[string]int64{"node-0": 1000})

	decisions := NewRandom().Schedule([]*types.Invocation{inv}, state)
	require.Len(t, decisions.CopyToNodeDisk["node-0"], 1)
	require.Empty(t, decisions.LoadToRAM)
	require.Empty(t, decisions.StartInvocations)
}

func TestScheduleQueuesLoadWhenImageOnDiskNotInRAM(t *testing.T) {
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	inv := newInvocation(image, 10, 10)

	state := serverless.NewStateView(
		[]string{"node-0"},
		map[string]int{"node-0": 4},
		map[string]int64{"node-0": 1000},
		map[string]int64{"node-0": 1000},
		map[string]map[uuid.UUID]bool{"node-0": {image.ID: true}},
		nil, nil, nil,
	)

	decisions := NewRandom().Schedule([]*types.Invocation{inv}, state)
	require.Empty(t, decisions.CopyToNodeDisk)
	require.Len(t, decisions.LoadToRAM["node-0"], 1)
}

func TestScheduleStartsWhenImageResidentAndBudgetAvailable(t *testing.T) {
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	inv := newInvocation(image, 10, 10)

	state := serverless.NewStateView(
		[]string{"node-0"},
		map[string]int{"node-0": 4},
		map[string]int64{"node-0": 1000},
		map[string]int64{"node-0": 1000},
		map[string]map[uuid.UUID]bool{"node-0": {image.ID: true}},
		nil,
		map[string]map[uuid.UUID]bool{"node-0": {image.ID: true}},
		nil,
	)

	decisions := NewRandom().Schedule([]*types.Invocation{inv}, state)
	require.Len(t, decisions.StartInvocations["node-0"], 1)
}

func TestScheduleSkipsStartWhenBudgetExhausted(t *testing.T) {
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	inv1 := newInvocation(image, 600, 10)
	inv2 := newInvocation(image, 600, 10)

	state := serverless.NewStateView(
		[]string{"node-0"},
		map[string]int{"node-0": 4},
		map[string]int64{"node-0": 1000},
		map[string]int64{"node-0": 1000},
		map[string]map[uuid.UUID]bool{"node-0": {image.ID: true}},
		nil,
		map[string]map[uuid.UUID]bool{"node-0": {image.ID: true}},
		nil,
	)

	decisions := NewRandom().Schedule([]*types.Invocation{inv1, inv2}, state)
	require.Len(t, decisions.StartInvocations["node-0"], 1)
}

func TestScheduleWithNoHostsReturnsEmptyDecisions(t *testing.T) {
	state := serverless.NewStateView(nil, nil, nil, nil, nil, nil, nil, nil)
	decisions := NewRandom().Schedule(nil, state)
	require.Empty(t, decisions.CopyToNodeDisk)
	require.Empty(t, decisions.LoadToRAM)
	require.Empty(t, decisions.StartInvocations)
}
