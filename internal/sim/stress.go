package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/tinyrange/plic/internal/plic"
	"github.com/tinyrange/plic/internal/trace"
)

// StressOptions configures a randomized run.
type StressOptions struct {
	// Iterations is the number of source assertions to generate.
	Iterations int
	Seed       uint64
	// Progress, if set, is called once per iteration.
	Progress func()
}

// StressResult summarises a randomized run.
type StressResult struct {
	Asserted   int
	Dispatched int
	Completed  int
	Faults     int
	Unhandled  []string
}

type stressSource struct {
	controller string
	source     uint32
	edge       bool
}

// Stress configures every source of every controller with a random
// priority and trigger mode and a clearing handler, then asserts random
// sources. m must be booted and have no handlers connected.
func (m *Machine) Stress(opts StressOptions) (StressResult, error) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var sources []stressSource
	for _, c := range m.Group.Controllers() {
		cfg := c.Config()
		dev := m.devices[c.Name()]
		for id := uint32(1); id < cfg.NumSources; id++ {
			edge := cfg.EdgeTrigger && rng.IntN(2) == 0
			dev.SetTrigger(id, edge)
			if err := m.ConnectRecorder(c.Name(), id, true); err != nil {
				return StressResult{}, err
			}
			prio := 1 + rng.Uint32N(max(cfg.MaxPriority, 1))
			if err := c.SetPriority(id, prio); err != nil {
				return StressResult{}, err
			}
			if got, _ := c.Priority(id); got != min(prio, cfg.MaxPriority) {
				return StressResult{}, fmt.Errorf("sim: %s source %d: priority %d read back as %d", c.Name(), id, prio, got)
			}
			if err := c.Enable(id); err != nil {
				return StressResult{}, err
			}
			sources = append(sources, stressSource{controller: c.Name(), source: id, edge: edge})
		}
	}
	if len(sources) == 0 {
		return StressResult{}, fmt.Errorf("sim: no sources to stress")
	}

	var res StressResult
	for i := 0; i < opts.Iterations; i++ {
		s := sources[rng.IntN(len(sources))]
		dev := m.devices[s.controller]
		if s.edge {
			dev.Pulse(s.source)
		} else {
			dev.SetIRQ(s.source, true)
		}
		res.Asserted++
		if opts.Progress != nil {
			opts.Progress()
		}
	}

	res.Dispatched = m.Trace.Count(plic.EventDispatch.String())
	res.Completed = m.Trace.Count(plic.EventComplete.String())
	res.Faults = len(m.CPU.Faults())
	for _, s := range sources {
		dev := m.devices[s.controller]
		if dev.Pending(s.source) || dev.InService(s.source) {
			res.Unhandled = append(res.Unhandled, fmt.Sprintf("%s:%d", s.controller, s.source))
		}
	}
	if res.Dispatched != res.Completed {
		return res, fmt.Errorf("sim: %d dispatches but %d completions", res.Dispatched, res.Completed)
	}
	if m.Trace.Count(trace.KindHandler) != res.Dispatched {
		return res, fmt.Errorf("sim: handler count does not match dispatch count")
	}
	return res, nil
}
