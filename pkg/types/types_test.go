package types_test

import (
	"testing"

	"github.com/cuemby/cirrus/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegisteredFunctionEqualComparesByFunctionName(t *testing.T) {
	fnA := &types.Function{Name: "fn"}
	fnB := &types.Function{Name: "fn"}
	fnC := &types.Function{Name: "other"}

	rfA := &types.RegisteredFunction{ID: uuid.New(), Function: fnA}
	rfB := &types.RegisteredFunction{ID: uuid.New(), Function: fnB}
	rfC := &types.RegisteredFunction{ID: uuid.New(), Function: fnC}

	require.True(t, rfA.Equal(rfB))
	require.False(t, rfA.Equal(rfC))
}

func TestRegisteredFunctionEqualHandlesNil(t *testing.T) {
	var nilRF *types.RegisteredFunction
	rf := &types.RegisteredFunction{Function: &types.Function{Name: "fn"}}

	require.True(t, nilRF.Equal(nil))
	require.False(t, nilRF.Equal(rf))
	require.False(t, rf.Equal(nil))
}

func TestInvocationIsRunningAndIsDone(t *testing.T) {
	inv := &types.Invocation{State: types.InvocationSchedulable}
	require.False(t, inv.IsRunning())
	require.False(t, inv.IsDone())

	inv.State = types.InvocationRunning
	require.True(t, inv.IsRunning())
	require.False(t, inv.IsDone())

	inv.State = types.InvocationDone
	require.False(t, inv.IsRunning())
	require.True(t, inv.IsDone())
}

func TestInvocationFailedRequiresDoneAndCause(t *testing.T) {
	inv := &types.Invocation{State: types.InvocationDone}
	require.False(t, inv.Failed())

	inv.Cause = types.TimedOut
	require.True(t, inv.Failed())

	inv.State = types.InvocationRunning
	require.False(t, inv.Failed())
}

func TestFailureCauseIsAnError(t *testing.T) {
	var err error = types.NotEnoughSpace
	require.EqualError(t, err, "NotEnoughSpace")
}

func TestInvocationStringIncludesFunctionNameAndState(t *testing.T) {
	inv := &types.Invocation{
		ID:                 uuid.New(),
		RegisteredFunction: &types.RegisteredFunction{Function: &types.Function{Name: "fn"}},
		State:              types.InvocationRunning,
	}
	s := inv.String()
	require.Contains(t, s, "fn")
	require.Contains(t, s, "running")
}
