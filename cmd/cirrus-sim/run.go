package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/cirrus/pkg/events"
	"github.com/cuemby/cirrus/pkg/functionmanager"
	"github.com/cuemby/cirrus/pkg/log"
	"github.com/cuemby/cirrus/pkg/metrics"
	"github.com/cuemby/cirrus/pkg/serverless"
	"github.com/cuemby/cirrus/pkg/serverless/schedulers"
	"github.com/cuemby/cirrus/pkg/simclock"
	"github.com/cuemby/cirrus/pkg/types"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario to completion",
	Long: `Run loads a scenario file describing a platform, a function catalog, and a
workload of invocations, drives the simulation to completion, and reports
simulated-time statistics for every invocation.

Examples:
  # Run a scenario and serve its metrics while it runs
  cirrus-sim run -f scenario.yaml --metrics-addr :9090`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "Scenario YAML file (required)")
	runCmd.Flags().String("data-dir", "./cirrus-data", "Directory for simulated storage-service state")
	runCmd.Flags().String("metrics-addr", "", "If set, serve Prometheus metrics on this address while the scenario runs")
	runCmd.Flags().Int64("head-disk-bytes", 0, "Head node disk capacity override (0 uses the scenario's head host)")
	runCmd.Flags().Duration("container-startup-overhead", 0, "Sleep charged before a started invocation's compute action begins")
	runCmd.Flags().Int64("scratch-buffer-bytes", 0, "Bounds the in-flight transfer buffer of every node's disk store (0 means no explicit cap)")
	_ = runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	headDiskOverride, _ := cmd.Flags().GetInt64("head-disk-bytes")
	startupOverhead, _ := cmd.Flags().GetDuration("container-startup-overhead")
	scratchBufferBytes, _ := cmd.Flags().GetInt64("scratch-buffer-bytes")

	scenario, err := loadScenario(file)
	if err != nil {
		return err
	}

	p, err := buildPlatform(scenario.Platform)
	if err != nil {
		return fmt.Errorf("failed to build platform: %w", err)
	}

	headDiskCapacity := p.Head.DiskBytes
	if headDiskOverride > 0 {
		headDiskCapacity = headDiskOverride
	}

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	engine := simclock.NewEngine()
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	scheduler := schedulers.NewRandom()

	controller, err := serverless.New(p, engine, scheduler, broker, serverless.Config{
		HeadDiskCapacity:         headDiskCapacity,
		DataDir:                  dataDir,
		ContainerStartupOverhead: startupOverhead,
		ScratchSpaceBufferSize:   scratchBufferBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to build controller: %w", err)
	}

	fm := functionmanager.New(controller, engine)
	catalog := buildFunctionCatalog(scenario.Functions)

	registered := make(map[string]*types.RegisteredFunction, len(scenario.Functions))
	for _, fc := range scenario.Functions {
		fn := catalog[fc.Name]
		rf, err := fm.RegisterFunction(fn, time.Duration(fc.TimeLimitSeconds*float64(time.Second)), fc.DiskLimit, fc.RAMLimit, fc.Ingress, fc.Egress)
		if err != nil {
			return fmt.Errorf("failed to register function %q: %w", fc.Name, err)
		}
		registered[fc.Name] = rf
		log.WithFunctionName(fc.Name).Info().Msg("registered function for run")
	}

	var invocations []*types.Invocation
	for _, ic := range scenario.Invocations {
		rf, ok := registered[ic.Function]
		if !ok {
			return fmt.Errorf("invocation batch references unregistered function %q", ic.Function)
		}
		for i := 0; i < ic.Count; i++ {
			inv, err := fm.InvokeFunction(rf, &types.FunctionInput{Payload: ic.Payload})
			if err != nil {
				return fmt.Errorf("failed to invoke %q: %w", ic.Function, err)
			}
			invocations = append(invocations, inv)
		}
	}

	invocations, err = fm.WaitAll(invocations)
	if err != nil {
		return fmt.Errorf("run did not complete cleanly: %w", err)
	}

	reportResults(invocations, engine.Now())
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	log.WithComponent("metrics").Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithComponent("metrics").Error().Err(err).Msg("metrics server exited")
	}
}

func reportResults(invocations []*types.Invocation, wallClock time.Duration) {
	succeeded, failed := 0, 0
	for _, inv := range invocations {
		if inv.Failed() {
			failed++
		} else {
			succeeded++
		}
	}
	fmt.Printf("simulation finished at t=%s\n", wallClock)
	fmt.Printf("invocations: %d total, %d succeeded, %d failed\n", len(invocations), succeeded, failed)
	for _, inv := range invocations {
		if inv.Failed() {
			fmt.Printf("  %s: FAILED (%s)\n", inv.ID, inv.Cause)
			continue
		}
		fmt.Printf("  %s: ok, admitted=%s started=%s ended=%s\n", inv.ID, inv.AdmittedAt, inv.StartedAt, inv.EndedAt)
	}
}
