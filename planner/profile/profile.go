// Package profile implements planner.Catalogue and planner.Estimator from a
// YAML performance profile: the pipeline topology plus, for every stage, the
// measured latency and throughput of each (cloud, accelerator, batch size).
package profile

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner"
)

// Profile is a loaded, validated performance profile. It is immutable after
// Parse and safe for concurrent use.
type Profile struct {
	Pipeline PipelineSpec                    `yaml:"pipeline"`
	Clouds   map[string][]string             `yaml:"clouds"` // cloud → accelerators, cheapest tier first
	Stages   map[string][]AcceleratorProfile `yaml:"stages"`

	index    map[accelKey]*AcceleratorProfile
	pipeline *planner.Pipeline
}

// PipelineSpec describes the pipeline topology.
type PipelineSpec struct {
	Name         string             `yaml:"name"`
	Stages       []string           `yaml:"stages"`
	Edges        [][]string         `yaml:"edges"`
	ScaleFactors map[string]float64 `yaml:"scale_factors"`
}

// AcceleratorProfile holds one stage's measurements on one accelerator.
type AcceleratorProfile struct {
	Cloud       string         `yaml:"cloud"`
	Accelerator string         `yaml:"accelerator"`
	Cost        float64        `yaml:"cost"` // dollars per replica-hour
	Batches     []BatchProfile `yaml:"batches"`
}

// BatchProfile is the per-replica performance at one batch size.
type BatchProfile struct {
	BatchSize  int     `yaml:"batch_size"`
	Latency    float64 `yaml:"latency"`    // seconds
	Throughput float64 `yaml:"throughput"` // requests per second
}

type accelKey struct {
	stage, cloud, accelerator string
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a profile strictly, validates it, and builds its lookup index.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	p.build()
	return &p, nil
}

// Validate checks topology, rankings, and measurements.
func (p *Profile) Validate() error {
	pipe, err := p.Pipeline.toPipeline()
	if err != nil {
		return err
	}
	if err := pipe.Validate(); err != nil {
		return err
	}
	for stage, f := range p.Pipeline.ScaleFactors {
		if !slices.Contains(pipe.Stages, stage) {
			return fmt.Errorf("scale factor for unknown stage %q", stage)
		}
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("scale factor for stage %q must be a finite value > 0, got %f", stage, f)
		}
	}
	if len(p.Clouds) == 0 {
		return fmt.Errorf("profile declares no clouds")
	}
	for cloud, ranking := range p.Clouds {
		if len(ranking) == 0 {
			return fmt.Errorf("cloud %q has an empty accelerator ranking", cloud)
		}
		for i, a := range ranking {
			if slices.Contains(ranking[:i], a) {
				return fmt.Errorf("cloud %q ranks accelerator %q twice", cloud, a)
			}
		}
	}
	for stage := range p.Stages {
		if !slices.Contains(pipe.Stages, stage) {
			return fmt.Errorf("measurements for unknown stage %q", stage)
		}
	}
	for _, stage := range pipe.Stages {
		accels := p.Stages[stage]
		if len(accels) == 0 {
			return fmt.Errorf("stage %q has no measurements", stage)
		}
		seen := make(map[accelKey]bool, len(accels))
		for _, a := range accels {
			if err := p.validateAccelerator(stage, a); err != nil {
				return err
			}
			key := accelKey{stage, a.Cloud, a.Accelerator}
			if seen[key] {
				return fmt.Errorf("stage %q measures %s/%s twice", stage, a.Cloud, a.Accelerator)
			}
			seen[key] = true
		}
	}
	return nil
}

func (p *Profile) validateAccelerator(stage string, a AcceleratorProfile) error {
	ranking, ok := p.Clouds[a.Cloud]
	if !ok {
		return fmt.Errorf("stage %q uses undeclared cloud %q", stage, a.Cloud)
	}
	if !slices.Contains(ranking, a.Accelerator) {
		return fmt.Errorf("stage %q uses accelerator %q not ranked for cloud %q", stage, a.Accelerator, a.Cloud)
	}
	// A free tier makes adding replicas always feasible.
	if a.Cost <= 0 || math.IsNaN(a.Cost) || math.IsInf(a.Cost, 0) {
		return fmt.Errorf("stage %q on %s/%s: cost must be a finite value > 0, got %f", stage, a.Cloud, a.Accelerator, a.Cost)
	}
	if len(a.Batches) == 0 {
		return fmt.Errorf("stage %q on %s/%s has no batch measurements", stage, a.Cloud, a.Accelerator)
	}
	sizes := make(map[int]bool, len(a.Batches))
	for _, b := range a.Batches {
		if b.BatchSize < 1 {
			return fmt.Errorf("stage %q on %s/%s: batch_size must be >= 1, got %d", stage, a.Cloud, a.Accelerator, b.BatchSize)
		}
		if sizes[b.BatchSize] {
			return fmt.Errorf("stage %q on %s/%s: batch size %d measured twice", stage, a.Cloud, a.Accelerator, b.BatchSize)
		}
		sizes[b.BatchSize] = true
		if b.Latency < 0 || math.IsNaN(b.Latency) || math.IsInf(b.Latency, 0) {
			return fmt.Errorf("stage %q on %s/%s batch %d: latency must be a finite value >= 0, got %f",
				stage, a.Cloud, a.Accelerator, b.BatchSize, b.Latency)
		}
		if b.Throughput <= 0 || math.IsNaN(b.Throughput) || math.IsInf(b.Throughput, 0) {
			return fmt.Errorf("stage %q on %s/%s batch %d: throughput must be a finite value > 0, got %f",
				stage, a.Cloud, a.Accelerator, b.BatchSize, b.Throughput)
		}
	}
	return nil
}

func (s PipelineSpec) toPipeline() (*planner.Pipeline, error) {
	pipe := &planner.Pipeline{Name: s.Name, Stages: slices.Clone(s.Stages)}
	for i, e := range s.Edges {
		if len(e) != 2 {
			return nil, fmt.Errorf("edge %d must have exactly 2 stages, got %d", i, len(e))
		}
		pipe.Edges = append(pipe.Edges, [2]string{e[0], e[1]})
	}
	return pipe, nil
}

// build sorts batch measurements and indexes accelerator profiles.
func (p *Profile) build() {
	p.pipeline, _ = p.Pipeline.toPipeline()
	p.index = make(map[accelKey]*AcceleratorProfile)
	for stage, accels := range p.Stages {
		for i := range accels {
			a := &accels[i]
			slices.SortFunc(a.Batches, func(x, y BatchProfile) int { return x.BatchSize - y.BatchSize })
			p.index[accelKey{stage, a.Cloud, a.Accelerator}] = a
		}
	}
}

// Topology returns the pipeline described by the profile. Callers must not
// modify the returned value.
func (p *Profile) Topology() *planner.Pipeline { return p.pipeline }

// ScaleFactors returns a copy of the per-stage scale factors.
func (p *Profile) ScaleFactors() planner.ScaleFactors {
	out := make(planner.ScaleFactors, len(p.Pipeline.ScaleFactors))
	for k, v := range p.Pipeline.ScaleFactors {
		out[k] = v
	}
	return out
}

// CloudNames returns the declared clouds in sorted order.
func (p *Profile) CloudNames() []string {
	names := make([]string, 0, len(p.Clouds))
	for c := range p.Clouds {
		names = append(names, c)
	}
	slices.Sort(names)
	return names
}

// lookup returns the measurements for cfg's stage, cloud, accelerator and batch size.
func (p *Profile) lookup(cfg planner.StageConfig) (*AcceleratorProfile, BatchProfile, bool) {
	a, ok := p.index[accelKey{cfg.Stage, cfg.Cloud, cfg.Accelerator}]
	if !ok {
		return nil, BatchProfile{}, false
	}
	i, found := slices.BinarySearchFunc(a.Batches, cfg.BatchSize, func(b BatchProfile, size int) int {
		return b.BatchSize - size
	})
	if !found {
		return a, BatchProfile{}, false
	}
	return a, a.Batches[i], true
}
