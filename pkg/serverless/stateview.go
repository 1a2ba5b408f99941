package serverless

import "github.com/google/uuid"

// StateView is the read-only snapshot of system state handed to a Scheduler.
// It is a copy taken immediately before a scheduling call; the scheduler must
// not mutate it, and the controller only mutates its own live state after
// Schedule returns.
type StateView struct {
	hosts []string

	availableCores map[string]int
	availableRAM   map[string]int64
	availableDisk  map[string]int64

	onNodeDisk    map[string]map[uuid.UUID]bool
	copyingToNode map[string]map[uuid.UUID]bool
	inNodeRAM     map[string]map[uuid.UUID]bool
	loadingToRAM  map[string]map[uuid.UUID]bool
}

// NewStateView builds a StateView from raw residency and budget maps, copying
// each input so later mutation by the caller cannot leak into the snapshot.
// It is the controller's own construction path (see snapshot) and is exported
// so a Scheduler implementation's tests can build fixtures without a live
// Controller.
func NewStateView(
	hosts []string,
	availableCores map[string]int,
	availableRAM, availableDisk map[string]int64,
	onNodeDisk, copyingToNode, inNodeRAM, loadingToRAM map[string]map[uuid.UUID]bool,
) *StateView {
	v := &StateView{
		hosts:          append([]string(nil), hosts...),
		availableCores: make(map[string]int, len(availableCores)),
		availableRAM:   make(map[string]int64, len(availableRAM)),
		availableDisk:  make(map[string]int64, len(availableDisk)),
		onNodeDisk:     make(map[string]map[uuid.UUID]bool, len(onNodeDisk)),
		copyingToNode:  make(map[string]map[uuid.UUID]bool, len(copyingToNode)),
		inNodeRAM:      make(map[string]map[uuid.UUID]bool, len(inNodeRAM)),
		loadingToRAM:   make(map[string]map[uuid.UUID]bool, len(loadingToRAM)),
	}
	for k, n := range availableCores {
		v.availableCores[k] = n
	}
	for k, n := range availableRAM {
		v.availableRAM[k] = n
	}
	for k, n := range availableDisk {
		v.availableDisk[k] = n
	}
	for k, m := range onNodeDisk {
		v.onNodeDisk[k] = copySet(m)
	}
	for k, m := range copyingToNode {
		v.copyingToNode[k] = copySet(m)
	}
	for k, m := range inNodeRAM {
		v.inNodeRAM[k] = copySet(m)
	}
	for k, m := range loadingToRAM {
		v.loadingToRAM[k] = copySet(m)
	}
	return v
}

// ComputeHosts returns compute node names in platform-declared order.
func (v *StateView) ComputeHosts() []string {
	out := make([]string, len(v.hosts))
	copy(out, v.hosts)
	return out
}

// AvailableCores returns free cores per node.
func (v *StateView) AvailableCores() map[string]int {
	out := make(map[string]int, len(v.availableCores))
	for k, n := range v.availableCores {
		out[k] = n
	}
	return out
}

// AvailableRAM returns free RAM bytes per node.
func (v *StateView) AvailableRAM() map[string]int64 {
	out := make(map[string]int64, len(v.availableRAM))
	for k, n := range v.availableRAM {
		out[k] = n
	}
	return out
}

// AvailableDisk returns free disk bytes per node.
func (v *StateView) AvailableDisk() map[string]int64 {
	out := make(map[string]int64, len(v.availableDisk))
	for k, n := range v.availableDisk {
		out[k] = n
	}
	return out
}

// IsImageOnNode reports whether image is fully present on node's disk.
func (v *StateView) IsImageOnNode(node string, image uuid.UUID) bool {
	return v.onNodeDisk[node][image]
}

// IsImageBeingCopied reports whether image is currently being copied to node's disk.
func (v *StateView) IsImageBeingCopied(node string, image uuid.UUID) bool {
	return v.copyingToNode[node][image]
}

// IsImageInRAM reports whether image is resident in node's RAM.
func (v *StateView) IsImageInRAM(node string, image uuid.UUID) bool {
	return v.inNodeRAM[node][image]
}

// IsImageBeingLoaded reports whether image is currently being loaded into node's RAM.
func (v *StateView) IsImageBeingLoaded(node string, image uuid.UUID) bool {
	return v.loadingToRAM[node][image]
}

// ImagesBeingCopied returns the set of images currently copying to node's disk.
func (v *StateView) ImagesBeingCopied(node string) map[uuid.UUID]bool {
	return copySet(v.copyingToNode[node])
}

// ImagesBeingLoaded returns the set of images currently loading into node's RAM.
func (v *StateView) ImagesBeingLoaded(node string) map[uuid.UUID]bool {
	return copySet(v.loadingToRAM[node])
}

func copySet(src map[uuid.UUID]bool) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
