// Package types holds the plain data model shared by every package in cirrus:
// functions, their registrations, invocations, images, and the resource limits
// and failure causes that travel with them across actor boundaries.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Image identifies an immutable container image blob that must be resident in a
// compute node's RAM before the function that references it can run.
type Image struct {
	ID        uuid.UUID
	SizeBytes int64
}

// FunctionInput is the opaque argument handed to a Function's computation.
type FunctionInput struct {
	Payload map[string]string
}

// FunctionOutput is the opaque result produced by a Function's computation.
type FunctionOutput struct {
	Payload map[string]string
}

// Scratch is the per-invocation writable working storage a running
// computation is given, carved from its node's disk budget at exactly the
// invocation's disk_limit and destroyed the moment the computation returns.
// It is the callback's only writable location; there is no other filesystem
// handle available to it.
type Scratch interface {
	ID() uuid.UUID
	Limit() int64
	Write(sizeBytes int64) error
}

// Computation is a deterministic simulated unit of work: either a fixed duration
// expressed in FLOPs, or a pure callback over the input and the invocation's
// scratch handle that produces an output. It must never itself block or
// schedule further actors.
type Computation struct {
	Flops    float64
	Callback func(*FunctionInput, Scratch) *FunctionOutput
}

// Function is a name, a computation descriptor, and a handle to its container image.
type Function struct {
	Name        string
	Computation Computation
	Image       *Image
}

// RegisteredFunction binds a Function to a compute service with concrete,
// immutable-after-registration resource limits.
type RegisteredFunction struct {
	ID        uuid.UUID
	Function  *Function
	TimeLimit time.Duration
	DiskLimit int64
	RAMLimit  int64
	Ingress   int64
	Egress    int64
}

// Equal implements equality by name, within a compute service.
func (rf *RegisteredFunction) Equal(other *RegisteredFunction) bool {
	if rf == nil || other == nil {
		return rf == other
	}
	return rf.Function.Name == other.Function.Name
}

// InvocationState is one of the five states an Invocation monotonically advances
// through; terminal states are absorbing.
type InvocationState string

const (
	InvocationAdmitted     InvocationState = "admitted"
	InvocationImagePulling InvocationState = "image-pulling"
	InvocationSchedulable  InvocationState = "schedulable"
	InvocationRunning      InvocationState = "running"
	InvocationDone         InvocationState = "done"
)

// FailureCause is the closed taxonomy of invocation/registration failures carried
// opaquely over the wire.
type FailureCause string

const (
	FunctionNotRegistered     FailureCause = "FunctionNotRegistered"
	FunctionAlreadyRegistered FailureCause = "FunctionAlreadyRegistered"
	NotEnoughResources        FailureCause = "NotEnoughResources"
	NotEnoughSpace            FailureCause = "NotEnoughSpace"
	TimedOut                  FailureCause = "TimedOut"
	ServiceDown               FailureCause = "ServiceDown"
	HostError                 FailureCause = "HostError"
)

// Error implements the error interface so a FailureCause can travel as a Go error
// value without losing its wire identity.
func (c FailureCause) Error() string {
	return string(c)
}

// Invocation is one pending/running execution of a registered function. It is
// immutable except for State, Output, Cause, StartedAt, and EndedAt, which only
// the head controller writes; other components only ever read it.
type Invocation struct {
	ID                 uuid.UUID
	RegisteredFunction *RegisteredFunction
	Input              *FunctionInput
	NotifyPort         string

	State  InvocationState
	Output *FunctionOutput
	Cause  FailureCause

	// AdmittedAt, StartedAt, and EndedAt are simulated-clock offsets (as returned by
	// simclock.Engine.Now), not wall-clock timestamps — there is no wall clock in a
	// discrete-event simulation.
	AdmittedAt time.Duration
	StartedAt  time.Duration
	EndedAt    time.Duration
}

// IsRunning reports whether the invocation is currently executing.
func (inv *Invocation) IsRunning() bool {
	return inv.State == InvocationRunning
}

// IsDone reports whether the invocation has reached a terminal state.
func (inv *Invocation) IsDone() bool {
	return inv.State == InvocationDone
}

// Failed reports whether a done invocation ended in failure.
func (inv *Invocation) Failed() bool {
	return inv.State == InvocationDone && inv.Cause != ""
}

// String renders an invocation for logging without dumping its full input/output.
func (inv *Invocation) String() string {
	return fmt.Sprintf("invocation(%s, fn=%s, state=%s)", inv.ID, inv.RegisteredFunction.Function.Name, inv.State)
}
