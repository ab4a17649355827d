package engine

import "runtime"

// Planner bounds how many backtest runs execute at once
type Planner struct {
	MaxWorkers int
}

func NewPlanner(maxWorkers int) *Planner {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	return &Planner{MaxWorkers: maxWorkers}
}

// Workers is the pool size for jobs runs
func (p *Planner) Workers(jobs int) int {
	if jobs < p.MaxWorkers {
		return jobs
	}
	return p.MaxWorkers
}
