package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/cirrus/pkg/platform"
	"github.com/cuemby/cirrus/pkg/types"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ScenarioConfig is the YAML shape a `run` invocation loads: a platform
// topology, a catalog of functions to register, and a workload of invocations
// to submit against them. There is no running service to apply it to, so
// loading a scenario directly builds the platform and function catalog
// in-process rather than shipping them over a client connection.
type ScenarioConfig struct {
	Platform    PlatformConfig     `yaml:"platform"`
	Functions   []FunctionConfig   `yaml:"functions"`
	Invocations []InvocationConfig `yaml:"invocations"`
}

// PlatformConfig describes the fixed topology a run executes over.
type PlatformConfig struct {
	Head             HostConfig            `yaml:"head"`
	ComputeNodes     []HostConfig          `yaml:"computeNodes"`
	HeadToNode       map[string]LinkConfig `yaml:"headToNode"`
	RepositoryToHead LinkConfig            `yaml:"repositoryToHead"`
}

// HostConfig describes one head or compute node.
type HostConfig struct {
	Name        string  `yaml:"name"`
	Cores       int     `yaml:"cores"`
	RAMBytes    int64   `yaml:"ramBytes"`
	DiskBytes   int64   `yaml:"diskBytes"`
	FlopsPerSec float64 `yaml:"flopsPerSec"`
}

// LinkConfig describes one network path's bandwidth/latency.
type LinkConfig struct {
	BandwidthBytesPerSec float64 `yaml:"bandwidthBytesPerSec"`
	LatencySeconds       float64 `yaml:"latencySeconds"`
}

func (l LinkConfig) toLink() platform.Link {
	return platform.Link{
		BandwidthBytesPerSec: l.BandwidthBytesPerSec,
		Latency:              time.Duration(l.LatencySeconds * float64(time.Second)),
	}
}

func (h HostConfig) toHost() platform.Host {
	return platform.Host{
		Name:        h.Name,
		Cores:       h.Cores,
		RAMBytes:    h.RAMBytes,
		DiskBytes:   h.DiskBytes,
		FlopsPerSec: h.FlopsPerSec,
	}
}

// FunctionConfig describes one function to register with the compute service,
// including the resource image it runs out of and the limits it's registered
// under.
type FunctionConfig struct {
	Name             string  `yaml:"name"`
	ImageSizeBytes   int64   `yaml:"imageSizeBytes"`
	Flops            float64 `yaml:"flops"`
	TimeLimitSeconds float64 `yaml:"timeLimitSeconds"`
	DiskLimit        int64   `yaml:"diskLimit"`
	RAMLimit         int64   `yaml:"ramLimit"`
	Ingress          int64   `yaml:"ingress"`
	Egress           int64   `yaml:"egress"`
}

// InvocationConfig describes a batch of invocations of one registered function.
type InvocationConfig struct {
	Function string            `yaml:"function"`
	Count    int               `yaml:"count"`
	Payload  map[string]string `yaml:"payload"`
}

// loadScenario reads and parses a scenario file from disk.
func loadScenario(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return &cfg, nil
}

// buildPlatform turns a PlatformConfig into the platform.Platform the
// controller is constructed over.
func buildPlatform(cfg PlatformConfig) (*platform.Platform, error) {
	p := &platform.Platform{
		Head:             cfg.Head.toHost(),
		RepositoryToHead: cfg.RepositoryToHead.toLink(),
		HeadToNode:       make(map[string]platform.Link, len(cfg.ComputeNodes)),
	}
	for _, nc := range cfg.ComputeNodes {
		p.ComputeNodes = append(p.ComputeNodes, nc.toHost())
		link, ok := cfg.HeadToNode[nc.Name]
		if !ok {
			return nil, fmt.Errorf("compute node %q has no headToNode link configured", nc.Name)
		}
		p.HeadToNode[nc.Name] = link.toLink()
	}
	return p, nil
}

// functionCatalog is the set of types.Function values built from a scenario's
// function list, keyed by name so invocations can look theirs up.
type functionCatalog map[string]*types.Function

func buildFunctionCatalog(cfgs []FunctionConfig) functionCatalog {
	catalog := make(functionCatalog, len(cfgs))
	for _, fc := range cfgs {
		image := &types.Image{ID: uuid.New(), SizeBytes: fc.ImageSizeBytes}
		catalog[fc.Name] = &types.Function{
			Name: fc.Name,
			Computation: types.Computation{
				Flops: fc.Flops,
			},
			Image: image,
		}
	}
	return catalog
}
