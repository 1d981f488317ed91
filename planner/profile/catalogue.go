package profile

import (
	"fmt"
	"slices"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner"
)

// EnumerateConfigs lists every measured configuration of stage with 1..maxReplicas
// replicas, ordered by cloud name, accelerator tier, batch size, then replicas.
func (p *Profile) EnumerateConfigs(stage string, maxReplicas int) ([]planner.StageConfig, error) {
	if maxReplicas < 1 {
		return nil, fmt.Errorf("max replicas must be >= 1, got %d", maxReplicas)
	}
	if _, ok := p.Stages[stage]; !ok {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	var out []planner.StageConfig
	for _, cloud := range p.CloudNames() {
		for _, accel := range p.Clouds[cloud] {
			a, ok := p.index[accelKey{stage, cloud, accel}]
			if !ok {
				continue
			}
			for _, b := range a.Batches {
				for r := 1; r <= maxReplicas; r++ {
					out = append(out, planner.StageConfig{
						Stage:       stage,
						Cloud:       cloud,
						Accelerator: accel,
						BatchSize:   b.BatchSize,
						Replicas:    r,
					})
				}
			}
		}
	}
	return out, nil
}

// UpgradeAccelerator moves cfg to the next accelerator in its cloud's ranking
// that the stage was measured on. The batch size is kept when measured there;
// otherwise the largest measured size below it is used, or the smallest
// measured size when none is below.
func (p *Profile) UpgradeAccelerator(cfg planner.StageConfig) (planner.StageConfig, error) {
	if _, _, ok := p.lookup(cfg); !ok {
		return planner.StageConfig{}, fmt.Errorf("%w: %s is not profiled", planner.ErrInvalidConfig, cfg)
	}
	ranking := p.Clouds[cfg.Cloud]
	tier := slices.Index(ranking, cfg.Accelerator)
	for _, accel := range ranking[tier+1:] {
		a, ok := p.index[accelKey{cfg.Stage, cfg.Cloud, accel}]
		if !ok {
			continue
		}
		next := cfg
		next.Accelerator = accel
		next.BatchSize = closestBatch(a.Batches, cfg.BatchSize)
		return next, nil
	}
	return planner.StageConfig{}, fmt.Errorf("%w: %s is on the top accelerator tier", planner.ErrExhausted, cfg)
}

// IncreaseBatchSize moves cfg to the next larger batch size measured on its accelerator.
func (p *Profile) IncreaseBatchSize(cfg planner.StageConfig) (planner.StageConfig, error) {
	a, _, ok := p.lookup(cfg)
	if !ok {
		return planner.StageConfig{}, fmt.Errorf("%w: %s is not profiled", planner.ErrInvalidConfig, cfg)
	}
	for _, b := range a.Batches {
		if b.BatchSize > cfg.BatchSize {
			next := cfg
			next.BatchSize = b.BatchSize
			return next, nil
		}
	}
	return planner.StageConfig{}, fmt.Errorf("%w: %s is at the largest batch size", planner.ErrExhausted, cfg)
}

// closestBatch picks want if measured, else the largest smaller size, else the smallest.
// batches is sorted ascending and non-empty.
func closestBatch(batches []BatchProfile, want int) int {
	chosen := batches[0].BatchSize
	for _, b := range batches {
		if b.BatchSize > want {
			break
		}
		chosen = b.BatchSize
	}
	return chosen
}
