// Package planner selects a per-stage resource configuration (accelerator tier,
// batch size, replica count) for a multi-stage inference pipeline that maximizes
// throughput while keeping end-to-end latency and hourly cost within bounds.
//
// # Reading Guide
//
// Start with these files:
//   - config.go: StageConfig, the immutable PipelineConfig, Estimate and Constraints
//   - greedy.go: bottleneck-driven hill climbing over the action set in actions.go
//   - bruteforce.go: exhaustive search over every per-stage combination
//
// # Architecture
//
// The planner package defines interfaces and the two search strategies;
// supporting implementations live in sub-packages:
//   - planner/netcalc/: arrival traces and network-calculus delay bounds
//   - planner/profile/: a YAML profile that implements Catalogue and Estimator
//   - planner/workload/: synthetic arrival trace generation
//   - planner/trace/: search trace recording and summaries
//   - planner/metrics/: Prometheus counters for search progress
//
// # Key Interfaces
//
//   - Catalogue: enumerate stage configs and apply accelerator/batch upgrades
//   - Estimator: estimate stage and pipeline latency, throughput and cost
//   - WaitModel: queueing wait for a given service throughput
//   - Reporter: observe search progress (logging, trace, metrics)
//
// Searches never log or print; everything observable goes through a Reporter
// supplied with WithReporter.
package planner
