package planner

import (
	"fmt"
)

// Pipeline is a directed acyclic graph of named stages.
type Pipeline struct {
	Name   string
	Stages []string    // declaration order; bottleneck ties resolve to the earliest
	Edges  [][2]string // (from, to)
}

// ScaleFactors maps a stage to the fraction of pipeline queries that reach it.
// A missing stage has scale factor 1.
type ScaleFactors map[string]float64

// Of returns the scale factor of stage.
func (s ScaleFactors) Of(stage string) float64 {
	if f, ok := s[stage]; ok {
		return f
	}
	return 1
}

// Validate checks stage names are unique, edges reference known stages, and
// the graph is acyclic.
func (p *Pipeline) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline %q has no stages", p.Name)
	}
	known := make(map[string]bool, len(p.Stages))
	for _, s := range p.Stages {
		if s == "" {
			return fmt.Errorf("pipeline %q has an unnamed stage", p.Name)
		}
		if known[s] {
			return fmt.Errorf("pipeline %q declares stage %q twice", p.Name, s)
		}
		known[s] = true
	}
	for _, e := range p.Edges {
		for _, end := range e {
			if !known[end] {
				return fmt.Errorf("pipeline %q edge %s->%s references unknown stage %q", p.Name, e[0], e[1], end)
			}
		}
	}
	if _, err := p.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}

// TopologicalOrder returns the stages ordered so that every edge points forward.
// Among ready stages the declaration order is kept.
func (p *Pipeline) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(p.Stages))
	next := make(map[string][]string, len(p.Stages))
	for _, e := range p.Edges {
		indegree[e[1]]++
		next[e[0]] = append(next[e[0]], e[1])
	}

	order := make([]string, 0, len(p.Stages))
	done := make(map[string]bool, len(p.Stages))
	for len(order) < len(p.Stages) {
		progressed := false
		for _, s := range p.Stages {
			if done[s] || indegree[s] > 0 {
				continue
			}
			done[s] = true
			order = append(order, s)
			for _, n := range next[s] {
				indegree[n]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("pipeline %q contains a cycle", p.Name)
		}
	}
	return order, nil
}

// Predecessors returns the stages with an edge into stage.
func (p *Pipeline) Predecessors(stage string) []string {
	var out []string
	for _, e := range p.Edges {
		if e[1] == stage {
			out = append(out, e[0])
		}
	}
	return out
}

// HasStageSet reports whether cfg configures exactly the pipeline's stages.
func (p *Pipeline) HasStageSet(cfg PipelineConfig) bool {
	if cfg.Len() != len(p.Stages) {
		return false
	}
	for _, s := range p.Stages {
		if _, ok := cfg.Get(s); !ok {
			return false
		}
	}
	return true
}
