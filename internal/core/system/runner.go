package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each frame. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool

	// elapsed holds how long each phase took during the last Tick.
	elapsed map[Phase]time.Duration
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		elapsed: make(map[Phase]time.Duration),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Len() int { return len(r.systems) }

// Tick runs every system once.
func (r *Runner) Tick(dt float32) {
	r.ensureSorted()
	clear(r.elapsed)
	for _, s := range r.systems {
		start := time.Now()
		s.Update(dt)
		r.elapsed[s.Phase()] += time.Since(start)
	}
}

// TickPhase runs only the systems registered for phase.
func (r *Runner) TickPhase(phase Phase, dt float32) {
	r.ensureSorted()
	start := time.Now()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
	r.elapsed[phase] = time.Since(start)
}

// Elapsed reports how long phase took the last time it ran.
func (r *Runner) Elapsed(phase Phase) time.Duration { return r.elapsed[phase] }

func (r *Runner) ensureSorted() {
	if r.sorted {
		return
	}
	sort.SliceStable(r.systems, func(i, j int) bool {
		return r.systems[i].Phase() < r.systems[j].Phase()
	})
	r.sorted = true
}
