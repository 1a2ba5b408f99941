// Package baremetal is a minimal single-host action runner. A Service runs one
// action — an image download, copy, load, or an invocation's compute action —
// for a simulated duration and reports completion (or failure) back through a
// callback, with no real container underneath.
package baremetal

import (
	"time"

	"github.com/cuemby/cirrus/pkg/log"
	"github.com/cuemby/cirrus/pkg/platform"
	"github.com/cuemby/cirrus/pkg/simclock"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Service runs actions on a single host.
type Service struct {
	Host   platform.Host
	engine *simclock.Engine
	down   bool
}

// New creates a bare-metal action runner bound to a host and the engine driving
// simulated time.
func New(host platform.Host, engine *simclock.Engine) *Service {
	return &Service{Host: host, engine: engine}
}

// SetDown marks the host as down or back up; actions dispatched while down
// fail immediately with a host-down error.
func (s *Service) SetDown(down bool) {
	s.down = down
}

// IsDown reports whether the host is currently marked down.
func (s *Service) IsDown() bool {
	return s.down
}

// Dispatch runs an action identified by tag for duration simulated seconds, then
// calls onDone(nil) on success or onDone(err) on failure. It returns a cancel
// function; calling it before the action's completion prevents onDone from
// firing, so a completion arriving after cancellation is silently dropped.
func (s *Service) Dispatch(tag uuid.UUID, duration time.Duration, onDone func(err error)) (cancel func()) {
	logger := log.WithHost(s.Host.Name)
	cancelled := false

	if s.down {
		logger.Warn().Str("tag", tag.String()).Msg("action dispatched to a down host")
		s.engine.After(0, func() {
			if cancelled {
				return
			}
			onDone(errHostDown{})
		})
		return func() { cancelled = true }
	}

	logger.Debug().Str("tag", tag.String()).Dur("duration", duration).Msg("action dispatched")
	s.engine.After(duration, func() {
		if cancelled {
			logger.Debug().Str("tag", tag.String()).Msg("completion of cancelled action dropped")
			return
		}
		if s.down {
			onDone(errHostDown{})
			return
		}
		onDone(nil)
	})
	return func() { cancelled = true }
}

type errHostDown struct{}

func (errHostDown) Error() string { return "host down" }

// ComputeResources expresses one invocation's enforced limits with the same
// specs.LinuxResources vocabulary a real OCI runtime would hand to a cgroup,
// without ever creating one.
func ComputeResources(cores int64, ramLimitBytes int64) *specs.LinuxResources {
	shares := uint64(cores * 1024)
	limit := ramLimitBytes
	return &specs.LinuxResources{
		CPU:    &specs.LinuxCPU{Shares: &shares},
		Memory: &specs.LinuxMemory{Limit: &limit},
	}
}

// DispatchWithResources is Dispatch plus a debug-level log line recording the
// resource envelope enforced for the action, so a running invocation's
// CPU/memory accounting is visible the way a container runtime's own logs
// would show it.
func (s *Service) DispatchWithResources(tag uuid.UUID, duration time.Duration, resources *specs.LinuxResources, onDone func(err error)) (cancel func()) {
	logger := log.WithHost(s.Host.Name)
	if resources != nil {
		event := logger.Debug().Str("tag", tag.String())
		if resources.CPU != nil && resources.CPU.Shares != nil {
			event = event.Uint64("cpu_shares", *resources.CPU.Shares)
		}
		if resources.Memory != nil && resources.Memory.Limit != nil {
			event = event.Int64("memory_limit_bytes", *resources.Memory.Limit)
		}
		event.Msg("dispatching action with resource envelope")
	}
	return s.Dispatch(tag, duration, onDone)
}
