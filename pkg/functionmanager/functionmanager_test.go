package functionmanager_test

import (
	"testing"
	"time"

	"github.com/cuemby/cirrus/pkg/events"
	"github.com/cuemby/cirrus/pkg/functionmanager"
	"github.com/cuemby/cirrus/pkg/platform"
	"github.com/cuemby/cirrus/pkg/serverless"
	"github.com/cuemby/cirrus/pkg/serverless/schedulers"
	"github.com/cuemby/cirrus/pkg/simclock"
	"github.com/cuemby/cirrus/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*functionmanager.FunctionManager, *simclock.Engine) {
	t.Helper()
	engine := simclock.NewEngine()
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	head := platform.Host{Name: "head", Cores: 1, RAMBytes: 1 << 30, DiskBytes: 1 << 30, FlopsPerSec: 1e9}
	node := platform.Host{Name: "node-0", Cores: 2, RAMBytes: 1 << 20, DiskBytes: 1 << 20, FlopsPerSec: 1e9}
	p := &platform.Platform{
		Head:             head,
		ComputeNodes:     []platform.Host{node},
		HeadToNode:       map[string]platform.Link{"node-0": {BandwidthBytesPerSec: 1 << 20}},
		RepositoryToHead: platform.Link{BandwidthBytesPerSec: 1 << 20},
	}

	c, err := serverless.New(p, engine, schedulers.NewRandom(), broker, serverless.Config{
		HeadDiskCapacity: 1 << 30,
		DataDir:          t.TempDir(),
	})
	require.NoError(t, err)

	return functionmanager.New(c, engine), engine
}

func TestCreateFunctionDoesNotRegister(t *testing.T) {
	fm, _ := newManager(t)
	image := &types.Image{ID: uuid.New(), SizeBytes: 10}
	fn := fm.CreateFunction("fn", types.Computation{Flops: 1}, image)
	require.Equal(t, "fn", fn.Name)
	require.Same(t, image, fn.Image)
}

func TestWaitOneReturnsSuccessfulInvocation(t *testing.T) {
	fm, _ := newManager(t)
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	fn := fm.CreateFunction("fn", types.Computation{Flops: 1e9}, image)

	rf, err := fm.RegisterFunction(fn, 10*time.Second, 10, 10, 0, 0)
	require.NoError(t, err)

	inv, err := fm.InvokeFunction(rf, &types.FunctionInput{})
	require.NoError(t, err)

	done, err := fm.WaitOne(inv)
	require.NoError(t, err)
	require.True(t, done.IsDone())
	require.False(t, done.Failed())
}

func TestWaitAllWaitsForEveryInvocation(t *testing.T) {
	fm, _ := newManager(t)
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	fn := fm.CreateFunction("fn", types.Computation{Flops: 1e6}, image)

	rf, err := fm.RegisterFunction(fn, 10*time.Second, 10, 10, 0, 0)
	require.NoError(t, err)

	var invs []*types.Invocation
	for i := 0; i < 3; i++ {
		inv, err := fm.InvokeFunction(rf, &types.FunctionInput{})
		require.NoError(t, err)
		invs = append(invs, inv)
	}

	done, err := fm.WaitAll(invs)
	require.NoError(t, err)
	for _, inv := range done {
		require.True(t, inv.IsDone())
	}
}

func TestKillThroughManagerSettlesAsHostError(t *testing.T) {
	fm, engine := newManager(t)
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	fn := fm.CreateFunction("fn", types.Computation{Flops: 1e9}, image)

	rf, err := fm.RegisterFunction(fn, 10*time.Second, 10, 10, 0, 0)
	require.NoError(t, err)

	inv, err := fm.InvokeFunction(rf, &types.FunctionInput{})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		if fm.IsDone(inv) || inv.IsRunning() {
			break
		}
		if !engine.Step() {
			break
		}
	}
	require.True(t, inv.IsRunning())

	require.NoError(t, fm.Kill(inv))
	require.True(t, fm.IsDone(inv))
	require.Equal(t, types.HostError, inv.Cause)
}

func TestStopFailsSubsequentInvocations(t *testing.T) {
	fm, _ := newManager(t)
	image := &types.Image{ID: uuid.New(), SizeBytes: 100}
	fn := fm.CreateFunction("fn", types.Computation{Flops: 1}, image)

	rf, err := fm.RegisterFunction(fn, time.Second, 10, 10, 0, 0)
	require.NoError(t, err)

	fm.Stop()
	_, err = fm.InvokeFunction(rf, &types.FunctionInput{})
	require.ErrorIs(t, err, types.ServiceDown)
}
