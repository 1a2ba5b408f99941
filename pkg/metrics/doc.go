// Package metrics exposes cirrus's Prometheus instrumentation.
//
// # Metrics
//
// Node resource gauges, updated by the head controller whenever a
// reservation or release changes a budget:
//
//	cirrus_node_free_cores{node}
//	cirrus_node_free_ram_bytes{node}
//	cirrus_node_free_disk_bytes{node}
//	cirrus_head_free_disk_bytes
//
// Invocation lifecycle:
//
//	cirrus_invocations_total{function, outcome}
//	  outcome is "success" or the FailureCause string of an admitted
//	  invocation that failed (NotEnoughSpace, TimedOut, HostError); calls
//	  rejected synchronously are not counted.
//	cirrus_invocation_duration_seconds{function}
//	  simulated wall time from start to completion, successful invocations only.
//	cirrus_scheduling_pass_duration_seconds
//	  real wall-clock time a single Scheduler.Schedule call took to return —
//	  useful for comparing scheduler implementations' own overhead, which is
//	  not itself part of the simulated timeline.
//
// Image pipeline stage durations, in simulated seconds:
//
//	cirrus_image_download_duration_seconds
//	cirrus_image_copy_duration_seconds{node}
//	cirrus_image_load_duration_seconds{node}
//
// # Usage
//
// Register the handler on whatever HTTP mux cmd/cirrus-sim serves:
//
//	mux.Handle("/metrics", metrics.Handler())
//
// Gauges are set directly from controller state; counters and histograms are
// recorded as the corresponding event occurs. There is no periodic collector
// goroutine: a discrete-event simulation has no wall clock ticking in the
// background to drive one, so metrics are pushed inline with the state
// transition that produces them.
package metrics
