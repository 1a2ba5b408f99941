// Package serverless is the core of cirrus: the head controller that admits
// invocations, calls a pluggable Scheduler, acts on its decisions against a
// simulated platform, and advances every Invocation through its state
// machine. It has no notion of wall-clock time — everything is driven by a
// simclock.Engine.
package serverless

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/cirrus/pkg/baremetal"
	"github.com/cuemby/cirrus/pkg/events"
	"github.com/cuemby/cirrus/pkg/log"
	"github.com/cuemby/cirrus/pkg/metrics"
	"github.com/cuemby/cirrus/pkg/platform"
	"github.com/cuemby/cirrus/pkg/simclock"
	"github.com/cuemby/cirrus/pkg/storageservice"
	"github.com/cuemby/cirrus/pkg/types"
	"github.com/google/uuid"
)

// Config carries the construction-time knobs left to the deploying harness:
// where each node's storage service persists its data, how much head-disk
// capacity backs the image repository cache, and the two enumerated tunables
// of the compute service itself.
type Config struct {
	HeadDiskCapacity  int64
	NodeStorageBudget int64 // per-node disk capacity override; 0 uses the node's platform.Host.DiskBytes
	DataDir           string

	// ContainerStartupOverhead (container_startup_overhead_seconds) is charged as
	// a sleep before a started invocation's compute action begins running, on
	// top of the compute itself. Default 0.
	ContainerStartupOverhead time.Duration

	// ScratchSpaceBufferSize (scratch_space_buffer_size) bounds the in-flight
	// transfer buffer of every node's disk store, shared by image copies and
	// per-invocation scratch writes. Default 0 (no explicit cap beyond disk
	// capacity).
	ScratchSpaceBufferSize int64
}

// Controller is the head controller: the single-threaded actor that owns all
// admission, scheduling, and resource-accounting state for one serverless
// compute service instance.
type Controller struct {
	mu sync.Mutex

	platform  *platform.Platform
	engine    *simclock.Engine
	scheduler Scheduler
	events    *events.Broker

	headStorage *storageservice.StorageService
	nodeDisk    map[string]*storageservice.StorageService
	nodeRAM     map[string]*storageservice.StorageService
	nodeExec    map[string]*baremetal.Service
	headExec    *baremetal.Service

	registeredByName map[string]*types.RegisteredFunction

	startupOverhead   time.Duration
	invocationScratch map[uuid.UUID]*storageservice.Scratch

	// Residency, keyed by image ID.
	onHeadDisk  map[uuid.UUID]bool
	downloading map[uuid.UUID]bool

	onNodeDisk    map[string]map[uuid.UUID]bool
	copyingToNode map[string]map[uuid.UUID]bool
	inNodeRAM     map[string]map[uuid.UUID]bool
	loadingToRAM  map[string]map[uuid.UUID]bool

	// Per-node budgets, decremented at decision-time and released at completion
	// (or at action failure, for reservations that never paid off).
	freeCores map[string]int
	freeRAM   map[string]int64
	freeDisk  map[string]int64
	freeHead  int64

	// Queues.
	newQueue        []*types.Invocation
	admittedByImage map[uuid.UUID][]*types.Invocation
	schedulable     []*types.Invocation
	running         map[uuid.UUID]*types.Invocation
	finished        []*types.Invocation
	computeHandles  map[uuid.UUID]computeHandle

	stopped bool
}

// New builds a Controller over a fixed platform, wiring one storage service and
// one bare-metal action runner per node (head included).
func New(p *platform.Platform, engine *simclock.Engine, scheduler Scheduler, broker *events.Broker, cfg Config) (*Controller, error) {
	headStorage, err := storageservice.New("head", cfg.DataDir, cfg.HeadDiskCapacity, 0)
	if err != nil {
		return nil, fmt.Errorf("serverless: head storage: %w", err)
	}

	c := &Controller{
		platform:           p,
		engine:             engine,
		scheduler:          scheduler,
		events:             broker,
		headStorage:        headStorage,
		nodeDisk:           make(map[string]*storageservice.StorageService),
		nodeRAM:            make(map[string]*storageservice.StorageService),
		nodeExec:           make(map[string]*baremetal.Service),
		headExec:           baremetal.New(p.Head, engine),
		registeredByName:   make(map[string]*types.RegisteredFunction),
		startupOverhead:    cfg.ContainerStartupOverhead,
		invocationScratch:  make(map[uuid.UUID]*storageservice.Scratch),
		onHeadDisk:         make(map[uuid.UUID]bool),
		downloading:        make(map[uuid.UUID]bool),
		onNodeDisk:         make(map[string]map[uuid.UUID]bool),
		copyingToNode:      make(map[string]map[uuid.UUID]bool),
		inNodeRAM:          make(map[string]map[uuid.UUID]bool),
		loadingToRAM:       make(map[string]map[uuid.UUID]bool),
		freeCores:          make(map[string]int),
		freeRAM:            make(map[string]int64),
		freeDisk:           make(map[string]int64),
		freeHead:           cfg.HeadDiskCapacity,
		admittedByImage:    make(map[uuid.UUID][]*types.Invocation),
		running:            make(map[uuid.UUID]*types.Invocation),
		computeHandles:     make(map[uuid.UUID]computeHandle),
	}

	for _, host := range p.ComputeNodes {
		diskCap := host.DiskBytes
		if cfg.NodeStorageBudget > 0 {
			diskCap = cfg.NodeStorageBudget
		}
		disk, err := storageservice.New(host.Name+"-disk", cfg.DataDir, diskCap, cfg.ScratchSpaceBufferSize)
		if err != nil {
			return nil, fmt.Errorf("serverless: node %s disk: %w", host.Name, err)
		}
		ram, err := storageservice.New(host.Name+"-ram", cfg.DataDir, host.RAMBytes, 0)
		if err != nil {
			return nil, fmt.Errorf("serverless: node %s ram: %w", host.Name, err)
		}
		c.nodeDisk[host.Name] = disk
		c.nodeRAM[host.Name] = ram
		c.nodeExec[host.Name] = baremetal.New(host, engine)

		c.onNodeDisk[host.Name] = make(map[uuid.UUID]bool)
		c.copyingToNode[host.Name] = make(map[uuid.UUID]bool)
		c.inNodeRAM[host.Name] = make(map[uuid.UUID]bool)
		c.loadingToRAM[host.Name] = make(map[uuid.UUID]bool)

		c.freeCores[host.Name] = host.Cores
		c.freeRAM[host.Name] = host.RAMBytes
		c.freeDisk[host.Name] = diskCap
	}

	metrics.RegisterComponent("platform", true, "")
	metrics.RegisterComponent("scheduler", true, "")
	metrics.RegisterComponent("headStorage", true, "")

	return c, nil
}

// RegisterFunction binds fn to this compute service with the given resource
// limits, failing with FunctionAlreadyRegistered or NotEnoughResources.
func (c *Controller) RegisterFunction(fn *types.Function, timeLimit time.Duration, diskLimit, ramLimit, ingress, egress int64) (*types.RegisteredFunction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.registeredByName[fn.Name]; exists {
		return nil, types.FunctionAlreadyRegistered
	}

	maxRAM := int64(0)
	for _, h := range c.platform.ComputeNodes {
		if h.RAMBytes > maxRAM {
			maxRAM = h.RAMBytes
		}
	}
	if ramLimit > maxRAM {
		return nil, types.NotEnoughResources
	}

	rf := &types.RegisteredFunction{
		ID:        uuid.New(),
		Function:  fn,
		TimeLimit: timeLimit,
		DiskLimit: diskLimit,
		RAMLimit:  ramLimit,
		Ingress:   ingress,
		Egress:    egress,
	}
	c.registeredByName[fn.Name] = rf
	log.WithFunctionName(fn.Name).Info().Msg("function registered")
	c.publish(events.EventFunctionRegistered, fmt.Sprintf("function %s registered", fn.Name), map[string]string{"function": fn.Name})
	return rf, nil
}

// InvokeFunction admits a new invocation of rf with the given input, failing
// immediately with FunctionNotRegistered if rf does not belong to this
// service.
func (c *Controller) InvokeFunction(rf *types.RegisteredFunction, input *types.FunctionInput, notifyPort string) (*types.Invocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, types.ServiceDown
	}
	current, ok := c.registeredByName[rf.Function.Name]
	if !ok || !current.Equal(rf) || current.ID != rf.ID {
		return nil, types.FunctionNotRegistered
	}

	inv := &types.Invocation{
		ID:                 uuid.New(),
		RegisteredFunction: rf,
		Input:              input,
		NotifyPort:         notifyPort,
		State:              types.InvocationAdmitted,
		AdmittedAt:         c.engine.Now(),
	}
	c.newQueue = append(c.newQueue, inv)
	log.WithInvocationID(inv.ID.String()).Info().Msg("invocation admitted")
	c.publish(events.EventInvocationAdmitted, fmt.Sprintf("invocation %s admitted", inv.ID), map[string]string{"function": rf.Function.Name})

	c.runPipeline()
	return inv, nil
}

// Stop marks the service down; further InvokeFunction calls fail with
// ServiceDown.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	metrics.UpdateComponent("platform", false, "service stopped")
	metrics.UpdateComponent("scheduler", false, "service stopped")
}

// runPipeline is the main loop body: admit, build a state snapshot, consult
// the scheduler, then act on its decisions. Callers must hold c.mu.
func (c *Controller) runPipeline() {
	defer c.syncGauges()

	c.admit()
	if len(c.schedulable) == 0 {
		return
	}
	state := c.snapshot()
	timer := metrics.NewTimer()
	decisions := c.scheduler.Schedule(append([]*types.Invocation(nil), c.schedulable...), state)
	timer.ObserveDuration(metrics.SchedulingPassDuration)
	if decisions == nil {
		return
	}
	c.act(decisions)
}

// syncGauges publishes current budgets to Prometheus. Called unconditionally
// at the end of every pipeline pass rather than at each individual mutation
// site, which would scatter gauge-set calls through admit/act/completion
// handlers for no externally visible benefit.
func (c *Controller) syncGauges() {
	metrics.FreeHeadDiskBytes.Set(float64(c.freeHead))
	for node, cores := range c.freeCores {
		metrics.FreeCores.WithLabelValues(node).Set(float64(cores))
		metrics.FreeRAMBytes.WithLabelValues(node).Set(float64(c.freeRAM[node]))
		metrics.FreeDiskBytes.WithLabelValues(node).Set(float64(c.freeDisk[node]))
	}
}

// admit drains the new queue, routing each invocation by its image's
// residency on head disk.
func (c *Controller) admit() {
	queue := c.newQueue
	c.newQueue = nil

	for _, inv := range queue {
		image := inv.RegisteredFunction.Function.Image
		switch {
		case c.onHeadDisk[image.ID]:
			inv.State = types.InvocationSchedulable
			c.schedulable = append(c.schedulable, inv)
		case c.downloading[image.ID]:
			inv.State = types.InvocationImagePulling
			c.admittedByImage[image.ID] = append(c.admittedByImage[image.ID], inv)
		default:
			if image.SizeBytes > c.freeHead {
				c.failInvocation(inv, types.NotEnoughSpace)
				continue
			}
			c.freeHead -= image.SizeBytes
			c.downloading[image.ID] = true
			inv.State = types.InvocationImagePulling
			c.admittedByImage[image.ID] = []*types.Invocation{inv}
			c.startImageDownload(image)
		}
	}
}

func (c *Controller) startImageDownload(image *types.Image) {
	duration := c.platform.RepositoryToHead.TransferDuration(image.SizeBytes)
	metrics.ImageDownloadDuration.Observe(duration.Seconds())
	tag := uuid.New()
	c.headExec.Dispatch(tag, duration, func(err error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.onImageDownloadDone(image, err)
	})
}

func (c *Controller) onImageDownloadDone(image *types.Image, err error) {
	delete(c.downloading, image.ID)
	waiters := c.admittedByImage[image.ID]
	delete(c.admittedByImage, image.ID)

	if err != nil {
		c.freeHead += image.SizeBytes
		for _, inv := range waiters {
			c.failInvocation(inv, types.HostError)
		}
		c.runPipeline()
		return
	}

	if putErr := c.headStorage.Put(image.ID, image.SizeBytes); putErr != nil {
		log.Logger.Error().Err(putErr).Msg("head storage put failed after successful download")
	}
	c.onHeadDisk[image.ID] = true
	c.publish(events.EventImageDownloaded, fmt.Sprintf("image %s downloaded to head", image.ID), nil)
	for _, inv := range waiters {
		inv.State = types.InvocationSchedulable
		c.schedulable = append(c.schedulable, inv)
	}
	c.runPipeline()
}

// snapshot builds a read-only StateView copy of current residency and budgets.
func (c *Controller) snapshot() *StateView {
	return NewStateView(
		c.platform.ComputeNodeNames(),
		c.freeCores, c.freeRAM, c.freeDisk,
		c.onNodeDisk, c.copyingToNode, c.inNodeRAM, c.loadingToRAM,
	)
}

// act validates and applies a scheduler's decisions: any entry that would
// violate an invariant is dropped with a warning rather than applied.
func (c *Controller) act(d *SchedulingDecisions) {
	logger := log.Logger.With().Str("component", "serverless").Logger()

	for node, images := range d.CopyToNodeDisk {
		if _, ok := c.onNodeDisk[node]; !ok {
			logger.Warn().Str("node", node).Msg("scheduler named an unknown node in CopyToNodeDisk")
			continue
		}
		for _, image := range images {
			if c.onNodeDisk[node][image.ID] || c.copyingToNode[node][image.ID] {
				logger.Warn().Str("node", node).Str("image", image.ID.String()).Msg("duplicate copy decision dropped")
				continue
			}
			if !c.onHeadDisk[image.ID] {
				logger.Warn().Str("node", node).Str("image", image.ID.String()).Msg("copy of an image not yet on head disk dropped")
				continue
			}
			if image.SizeBytes > c.freeDisk[node] {
				logger.Warn().Str("node", node).Str("image", image.ID.String()).Msg("copy dropped: not enough node disk space")
				continue
			}
			c.freeDisk[node] -= image.SizeBytes
			c.copyingToNode[node][image.ID] = true
			c.startImageCopy(node, image)
		}
	}

	for node, images := range d.LoadToRAM {
		if _, ok := c.inNodeRAM[node]; !ok {
			logger.Warn().Str("node", node).Msg("scheduler named an unknown node in LoadToRAM")
			continue
		}
		for _, image := range images {
			if c.inNodeRAM[node][image.ID] || c.loadingToRAM[node][image.ID] {
				logger.Warn().Str("node", node).Str("image", image.ID.String()).Msg("duplicate load decision dropped")
				continue
			}
			if !c.onNodeDisk[node][image.ID] {
				logger.Warn().Str("node", node).Str("image", image.ID.String()).Msg("load of an image not yet on node disk dropped")
				continue
			}
			if image.SizeBytes > c.freeRAM[node] {
				logger.Warn().Str("node", node).Str("image", image.ID.String()).Msg("load dropped: not enough node RAM")
				continue
			}
			c.freeRAM[node] -= image.SizeBytes
			c.loadingToRAM[node][image.ID] = true
			c.startImageLoad(node, image)
		}
	}

	assigned := make(map[uuid.UUID]bool)
	var stillSchedulable []*types.Invocation
	byID := make(map[uuid.UUID]*types.Invocation, len(c.schedulable))
	for _, inv := range c.schedulable {
		byID[inv.ID] = inv
	}

	for node, invs := range d.StartInvocations {
		host, ok := c.platform.ComputeNode(node)
		if !ok {
			logger.Warn().Str("node", node).Msg("scheduler named an unknown node in StartInvocations")
			continue
		}
		for _, inv := range invs {
			cur, known := byID[inv.ID]
			if !known || assigned[inv.ID] {
				logger.Warn().Str("invocation", inv.ID.String()).Msg("start decision for an unknown or already-started invocation dropped")
				continue
			}
			image := inv.RegisteredFunction.Function.Image
			rf := inv.RegisteredFunction
			if !c.inNodeRAM[node][image.ID] {
				logger.Warn().Str("node", node).Str("invocation", inv.ID.String()).Msg("start dropped: image not in node RAM")
				continue
			}
			if c.freeCores[node] < 1 || c.freeRAM[node] < rf.RAMLimit || c.freeDisk[node] < rf.DiskLimit {
				logger.Warn().Str("node", node).Str("invocation", inv.ID.String()).Msg("start dropped: insufficient node budget")
				continue
			}
			c.freeCores[node]--
			c.freeRAM[node] -= rf.RAMLimit
			c.freeDisk[node] -= rf.DiskLimit
			assigned[inv.ID] = true
			cur.State = types.InvocationRunning
			cur.StartedAt = c.engine.Now()
			c.running[cur.ID] = cur
			c.publish(events.EventInvocationStarted, fmt.Sprintf("invocation %s started on %s", cur.ID, node), map[string]string{"node": node})
			c.dispatchCompute(host, node, cur)
		}
	}

	for _, inv := range c.schedulable {
		if !assigned[inv.ID] {
			stillSchedulable = append(stillSchedulable, inv)
		}
	}
	c.schedulable = stillSchedulable
}

func (c *Controller) startImageCopy(node string, image *types.Image) {
	link := c.platform.HeadToNode[node]
	duration := link.TransferDuration(image.SizeBytes)
	metrics.ObserveImageCopyDuration(node, duration.Seconds())
	tag := uuid.New()
	c.nodeExec[node].Dispatch(tag, duration, func(err error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.onImageCopyDone(node, image, err)
	})
}

func (c *Controller) onImageCopyDone(node string, image *types.Image, err error) {
	delete(c.copyingToNode[node], image.ID)
	if err != nil {
		c.freeDisk[node] += image.SizeBytes
		c.runPipeline()
		return
	}
	if putErr := c.nodeDisk[node].Put(image.ID, image.SizeBytes); putErr != nil {
		log.Logger.Error().Err(putErr).Msg("node disk put failed after successful copy")
	}
	c.onNodeDisk[node][image.ID] = true
	c.publish(events.EventImageCopied, fmt.Sprintf("image %s copied to %s", image.ID, node), map[string]string{"node": node})
	c.runPipeline()
}

func (c *Controller) startImageLoad(node string, image *types.Image) {
	host, _ := c.platform.ComputeNode(node)
	duration := diskReadDuration(host, image.SizeBytes)
	metrics.ObserveImageLoadDuration(node, duration.Seconds())
	tag := uuid.New()
	c.nodeExec[node].Dispatch(tag, duration, func(err error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.onImageLoadDone(node, image, err)
	})
}

// diskReadDuration approximates a node's local disk read into RAM. The
// platform model names no separate local I/O bandwidth figure, so this
// assumes a fixed local read throughput instead.
func diskReadDuration(host platform.Host, sizeBytes int64) time.Duration {
	const assumedLocalBandwidthBytesPerSec = 2 * 1024 * 1024 * 1024
	if sizeBytes <= 0 {
		return 0
	}
	return time.Duration(float64(sizeBytes) / assumedLocalBandwidthBytesPerSec * float64(time.Second))
}

func (c *Controller) onImageLoadDone(node string, image *types.Image, err error) {
	delete(c.loadingToRAM[node], image.ID)
	if err != nil {
		c.freeRAM[node] += image.SizeBytes
		c.runPipeline()
		return
	}
	if putErr := c.nodeRAM[node].Put(image.ID, image.SizeBytes); putErr != nil {
		log.Logger.Error().Err(putErr).Msg("node ram put failed after successful load")
	}
	c.inNodeRAM[node][image.ID] = true
	c.publish(events.EventImageLoaded, fmt.Sprintf("image %s loaded into %s RAM", image.ID, node), map[string]string{"node": node})
	c.runPipeline()
}

// computeHandle tracks an in-flight compute action so it can be force-killed
// by a client (FunctionManager.Kill) independently of its own timeout.
type computeHandle struct {
	node    string
	cancel  func()
	settled *bool
}

// dispatchCompute creates the invocation's scratch storage and schedules its
// compute action, after first sleeping for the configured container startup
// overhead. A computeHandle is registered for the whole window — startup
// sleep included — so Kill can reach an invocation before its compute action
// has even started.
func (c *Controller) dispatchCompute(host platform.Host, node string, inv *types.Invocation) {
	rf := inv.RegisteredFunction

	scratch, err := c.nodeDisk[node].NewScratch(rf.DiskLimit)
	if err != nil {
		log.Logger.Error().Err(err).Str("node", node).Str("invocation", inv.ID.String()).Msg("failed to create scratch storage for invocation")
		delete(c.running, inv.ID)
		c.releaseInvocationBudget(node, inv)
		c.finishInvocation(inv, types.NotEnoughSpace)
		return
	}
	c.invocationScratch[inv.ID] = scratch

	settled := false
	cancelled := false
	c.computeHandles[inv.ID] = computeHandle{node: node, cancel: func() { cancelled = true }, settled: &settled}

	c.engine.After(c.startupOverhead, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if settled || cancelled {
			return
		}
		c.startCompute(host, node, inv, &settled)
	})
}

// startCompute runs after the container startup overhead has elapsed: it
// dispatches the actual bare-metal compute action and arms the time_limit
// timeout against it.
func (c *Controller) startCompute(host platform.Host, node string, inv *types.Invocation, settled *bool) {
	rf := inv.RegisteredFunction
	duration := host.ComputeDuration(rf.Function.Computation.Flops)
	tag := uuid.New()
	resources := baremetal.ComputeResources(1, rf.RAMLimit)

	cancel := c.nodeExec[node].DispatchWithResources(tag, duration, resources, func(err error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if *settled {
			return
		}
		*settled = true
		delete(c.computeHandles, inv.ID)
		c.onComputeDone(node, inv, err)
	})

	c.computeHandles[inv.ID] = computeHandle{node: node, cancel: cancel, settled: settled}

	if rf.TimeLimit > 0 {
		c.engine.After(rf.TimeLimit, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if *settled {
				return
			}
			*settled = true
			delete(c.computeHandles, inv.ID)
			cancel()
			c.onComputeTimeout(node, inv)
		})
	}
}

// Kill force-terminates a running invocation on the client's request, as
// distinct from Stop (which shuts down the whole service). A killed
// invocation never produces output; it is reported to the caller as a
// HostError, the closest fit in the closed FailureCause taxonomy for "this
// invocation did not run to completion through no fault of the function
// itself".
func (c *Controller) Kill(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.computeHandles[id]
	if !ok || *h.settled {
		return fmt.Errorf("serverless: invocation %s is not currently running", id)
	}
	*h.settled = true
	delete(c.computeHandles, id)
	h.cancel()

	inv, ok := c.running[id]
	if !ok {
		return fmt.Errorf("serverless: invocation %s is not currently running", id)
	}
	delete(c.running, id)
	c.destroyScratch(id)
	c.releaseInvocationBudget(h.node, inv)
	c.finishInvocation(inv, types.HostError)
	return nil
}

func (c *Controller) onComputeDone(node string, inv *types.Invocation, err error) {
	scratch := c.invocationScratch[inv.ID]
	c.releaseInvocationBudget(node, inv)
	delete(c.running, inv.ID)

	if err != nil {
		c.destroyScratch(inv.ID)
		c.finishInvocation(inv, types.HostError)
		return
	}

	rf := inv.RegisteredFunction
	if rf.Function.Computation.Callback != nil {
		inv.Output = rf.Function.Computation.Callback(inv.Input, scratch)
	}
	c.destroyScratch(inv.ID)
	inv.State = types.InvocationDone
	inv.EndedAt = c.engine.Now()
	c.finished = append(c.finished, inv)
	metrics.ObserveInvocationDuration(rf.Function.Name, (inv.EndedAt - inv.StartedAt).Seconds())
	metrics.IncInvocationOutcome(rf.Function.Name, "success")
	c.publish(events.EventInvocationComplete, fmt.Sprintf("invocation %s completed", inv.ID), map[string]string{"node": node})
	c.runPipeline()
}

// destroyScratch releases an invocation's scratch allocation, if it has one.
// It is a no-op for invocations that failed before a scratch was ever created.
func (c *Controller) destroyScratch(id uuid.UUID) {
	scratch, ok := c.invocationScratch[id]
	if !ok {
		return
	}
	delete(c.invocationScratch, id)
	if err := scratch.Delete(); err != nil {
		log.Logger.Error().Err(err).Str("invocation", id.String()).Msg("failed to delete scratch storage")
	}
}

func (c *Controller) onComputeTimeout(node string, inv *types.Invocation) {
	c.destroyScratch(inv.ID)
	c.releaseInvocationBudget(node, inv)
	delete(c.running, inv.ID)
	c.finishInvocation(inv, types.TimedOut)
}

func (c *Controller) releaseInvocationBudget(node string, inv *types.Invocation) {
	rf := inv.RegisteredFunction
	c.freeCores[node]++
	c.freeRAM[node] += rf.RAMLimit
	c.freeDisk[node] += rf.DiskLimit
}

// failInvocation fails an invocation that never reached running (admission or
// image-pull stage).
func (c *Controller) failInvocation(inv *types.Invocation, cause types.FailureCause) {
	inv.State = types.InvocationDone
	inv.Cause = cause
	inv.EndedAt = c.engine.Now()
	c.finished = append(c.finished, inv)
	metrics.IncInvocationOutcome(inv.RegisteredFunction.Function.Name, string(cause))
	c.publish(events.EventInvocationFailed, fmt.Sprintf("invocation %s failed: %s", inv.ID, cause), map[string]string{"cause": string(cause)})
}

// finishInvocation fails a running invocation, matching failInvocation's
// bookkeeping but named separately since it is reached from a different phase
// of the lifecycle.
func (c *Controller) finishInvocation(inv *types.Invocation, cause types.FailureCause) {
	inv.State = types.InvocationDone
	inv.Cause = cause
	inv.EndedAt = c.engine.Now()
	c.finished = append(c.finished, inv)
	metrics.IncInvocationOutcome(inv.RegisteredFunction.Function.Name, string(cause))
	c.publish(events.EventInvocationFailed, fmt.Sprintf("invocation %s failed: %s", inv.ID, cause), map[string]string{"cause": string(cause)})
	c.runPipeline()
}

func (c *Controller) publish(t events.EventType, msg string, meta map[string]string) {
	if c.events == nil {
		return
	}
	c.events.Publish(&events.Event{ID: uuid.NewString(), Type: t, Message: msg, Metadata: meta})
}

// Invocation returns the controller's own live record of an invocation (not a
// copy) for callers that only hold its ID (pkg/functionmanager's isDone/waitOne).
func (c *Controller) Invocation(id uuid.UUID) (*types.Invocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inv, ok := c.running[id]; ok {
		return inv, true
	}
	for _, inv := range c.finished {
		if inv.ID == id {
			return inv, true
		}
	}
	for _, inv := range c.schedulable {
		if inv.ID == id {
			return inv, true
		}
	}
	for _, list := range c.admittedByImage {
		for _, inv := range list {
			if inv.ID == id {
				return inv, true
			}
		}
	}
	return nil, false
}
