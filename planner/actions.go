package planner

import "fmt"

// Action is one step the greedy search may apply to the bottleneck stage.
type Action int

const (
	ActionUpgradeAccelerator Action = iota
	ActionIncreaseBatchSize
	ActionAddReplica
)

// Actions lists every action in evaluation order. Throughput ties between
// candidates resolve to the earlier action.
var Actions = []Action{ActionUpgradeAccelerator, ActionIncreaseBatchSize, ActionAddReplica}

func (a Action) String() string {
	switch a {
	case ActionUpgradeAccelerator:
		return "upgrade-accelerator"
	case ActionIncreaseBatchSize:
		return "increase-batch-size"
	case ActionAddReplica:
		return "add-replica"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Apply returns the stage config produced by a, without modifying cfg.
// Catalogue errors, including ErrExhausted, pass through unchanged.
func (a Action) Apply(cat Catalogue, cfg StageConfig) (StageConfig, error) {
	switch a {
	case ActionUpgradeAccelerator:
		return cat.UpgradeAccelerator(cfg)
	case ActionIncreaseBatchSize:
		return cat.IncreaseBatchSize(cfg)
	case ActionAddReplica:
		return cfg.WithReplicas(cfg.Replicas + 1), nil
	}
	return StageConfig{}, fmt.Errorf("unknown action %d", int(a))
}
