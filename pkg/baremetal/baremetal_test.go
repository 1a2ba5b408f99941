package baremetal

import (
	"testing"
	"time"

	"github.com/cuemby/cirrus/pkg/platform"
	"github.com/cuemby/cirrus/pkg/simclock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDispatchCompletesAfterSimulatedDuration(t *testing.T) {
	engine := simclock.NewEngine()
	svc := New(platform.Host{Name: "node-0"}, engine)

	var err error
	called := false
	svc.Dispatch(uuid.New(), 5*time.Second, func(e error) {
		called = true
		err = e
	})

	engine.Run()
	require.True(t, called)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, engine.Now())
}

func TestDispatchToDownHostFailsImmediately(t *testing.T) {
	engine := simclock.NewEngine()
	svc := New(platform.Host{Name: "node-0"}, engine)
	svc.SetDown(true)

	var gotErr error
	svc.Dispatch(uuid.New(), time.Minute, func(e error) { gotErr = e })
	engine.Run()

	require.Error(t, gotErr)
	require.Equal(t, time.Duration(0), engine.Now())
}

func TestCancelSuppressesCompletion(t *testing.T) {
	engine := simclock.NewEngine()
	svc := New(platform.Host{Name: "node-0"}, engine)

	called := false
	cancel := svc.Dispatch(uuid.New(), time.Second, func(error) { called = true })
	cancel()
	engine.Run()

	require.False(t, called)
}

func TestHostGoingDownMidFlightFailsTheAction(t *testing.T) {
	engine := simclock.NewEngine()
	svc := New(platform.Host{Name: "node-0"}, engine)

	var gotErr error
	svc.Dispatch(uuid.New(), time.Second, func(e error) { gotErr = e })
	engine.After(500*time.Millisecond, func() { svc.SetDown(true) })
	engine.Run()

	require.Error(t, gotErr)
}

func TestDispatchWithResourcesRunsLikeDispatch(t *testing.T) {
	engine := simclock.NewEngine()
	svc := New(platform.Host{Name: "node-0"}, engine)

	var called bool
	resources := ComputeResources(1, 1<<20)
	svc.DispatchWithResources(uuid.New(), time.Second, resources, func(e error) {
		called = true
		require.NoError(t, e)
	})
	engine.Run()
	require.True(t, called)
}

func TestComputeResourcesSetsSharesAndMemoryLimit(t *testing.T) {
	resources := ComputeResources(2, 1<<20)
	require.Equal(t, uint64(2048), *resources.CPU.Shares)
	require.Equal(t, int64(1<<20), *resources.Memory.Limit)
}
