// Package functionmanager is the client-side handle an application holds to
// register functions, invoke them, and wait on results, without touching the
// head controller's internal queues directly. The blocking-via-stepping idiom
// its WaitOne/WaitAll use is documented in pkg/simclock.
package functionmanager

import (
	"fmt"
	"time"

	"github.com/cuemby/cirrus/pkg/log"
	"github.com/cuemby/cirrus/pkg/serverless"
	"github.com/cuemby/cirrus/pkg/simclock"
	"github.com/cuemby/cirrus/pkg/types"
	"github.com/google/uuid"
)

// FunctionManager is a thin client over a single serverless.Controller.
type FunctionManager struct {
	controller *serverless.Controller
	engine     *simclock.Engine
	port       string
}

// New creates a FunctionManager addressed to controller, replying on its own
// notify port.
func New(controller *serverless.Controller, engine *simclock.Engine) *FunctionManager {
	return &FunctionManager{
		controller: controller,
		engine:     engine,
		port:       "client-" + uuid.NewString(),
	}
}

// CreateFunction builds a Function value; it performs no registration and
// talks to no service, keeping describing a function separate from
// registering it with a specific compute service.
func (fm *FunctionManager) CreateFunction(name string, computation types.Computation, image *types.Image) *types.Function {
	return &types.Function{Name: name, Computation: computation, Image: image}
}

// RegisterFunction registers fn with this manager's compute service.
func (fm *FunctionManager) RegisterFunction(fn *types.Function, timeLimit time.Duration, diskLimit, ramLimit, ingress, egress int64) (*types.RegisteredFunction, error) {
	return fm.controller.RegisterFunction(fn, timeLimit, diskLimit, ramLimit, ingress, egress)
}

// InvokeFunction submits one invocation of rf and returns immediately with its
// admitted handle; it does not block on completion.
func (fm *FunctionManager) InvokeFunction(rf *types.RegisteredFunction, input *types.FunctionInput) (*types.Invocation, error) {
	return fm.controller.InvokeFunction(rf, input, fm.port)
}

// IsDone reports whether inv has reached a terminal state, refreshed from the
// controller's current record of it.
func (fm *FunctionManager) IsDone(inv *types.Invocation) bool {
	current, ok := fm.controller.Invocation(inv.ID)
	if !ok {
		return false
	}
	*inv = *current
	return inv.IsDone()
}

// WaitOne blocks (by stepping the simulated clock) until inv reaches a
// terminal state, then returns it. It reports an error if the simulation runs
// out of events before that happens — which means nothing left to do will
// ever complete it.
func (fm *FunctionManager) WaitOne(inv *types.Invocation) (*types.Invocation, error) {
	ok := fm.engine.RunUntil(func() bool { return fm.IsDone(inv) })
	if !ok && !inv.IsDone() {
		return inv, fmt.Errorf("functionmanager: simulation exhausted before invocation %s completed", inv.ID)
	}
	return inv, nil
}

// WaitAll blocks until every invocation in invs has reached a terminal state,
// then returns them all — it waits for every member to finish rather than
// returning as soon as the first one does.
func (fm *FunctionManager) WaitAll(invs []*types.Invocation) ([]*types.Invocation, error) {
	allDone := func() bool {
		for _, inv := range invs {
			if !fm.IsDone(inv) {
				return false
			}
		}
		return true
	}
	if ok := fm.engine.RunUntil(allDone); !ok && !allDone() {
		return invs, fmt.Errorf("functionmanager: simulation exhausted before all %d invocations completed", len(invs))
	}
	return invs, nil
}

// Kill force-terminates a running invocation, distinct from Stop which shuts
// down the whole compute service.
func (fm *FunctionManager) Kill(inv *types.Invocation) error {
	log.WithInvocationID(inv.ID.String()).Warn().Msg("client killed invocation")
	return fm.controller.Kill(inv.ID)
}

// Stop shuts down the compute service this manager talks to; subsequent
// InvokeFunction calls fail with ServiceDown.
func (fm *FunctionManager) Stop() {
	fm.controller.Stop()
}
