// Package platform models the fixed hardware a simulation runs over: it
// supplies only what the core needs to turn a byte count or a FLOP count into
// a simulated duration — per-host compute speed and resource capacity, and
// per-link bandwidth/latency. Anything richer (real topology, congestion,
// routing) is out of scope.
package platform

import "time"

// Host is a named compute resource with fixed capacity and compute speed.
type Host struct {
	Name          string
	Cores         int
	RAMBytes      int64
	DiskBytes     int64
	FlopsPerSec   float64
}

// Link models the network path between two hosts with a simple bandwidth/latency
// pair.
type Link struct {
	BandwidthBytesPerSec float64
	Latency              time.Duration
}

// TransferDuration returns how long it takes to move sizeBytes over this link.
func (l Link) TransferDuration(sizeBytes int64) time.Duration {
	if sizeBytes <= 0 {
		return l.Latency
	}
	seconds := float64(sizeBytes) / l.BandwidthBytesPerSec
	return l.Latency + time.Duration(seconds*float64(time.Second))
}

// ComputeDuration returns how long it takes a host to perform a computation of
// the given FLOP count.
func (h Host) ComputeDuration(flops float64) time.Duration {
	if flops <= 0 || h.FlopsPerSec <= 0 {
		return 0
	}
	return time.Duration((flops / h.FlopsPerSec) * float64(time.Second))
}

// Platform is the fixed topology a simulation run is defined over: one head node,
// a set of compute nodes, and the links connecting the head to each of them plus a
// single link representing the remote image repository's path to the head.
type Platform struct {
	Head             Host
	ComputeNodes     []Host
	HeadToNode       map[string]Link // keyed by compute node name
	RepositoryToHead Link
}

// ComputeNode looks up a compute node by name.
func (p *Platform) ComputeNode(name string) (Host, bool) {
	for _, h := range p.ComputeNodes {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

// ComputeNodeNames returns compute node names in platform-declared order.
func (p *Platform) ComputeNodeNames() []string {
	names := make([]string, len(p.ComputeNodes))
	for i, h := range p.ComputeNodes {
		names[i] = h.Name
	}
	return names
}
