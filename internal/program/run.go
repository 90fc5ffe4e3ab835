package program

import (
	"github.com/pkg/errors"

	"github.com/yeatsec/LoihiLSD/internal/config"
	"github.com/yeatsec/LoihiLSD/internal/sim"
	"github.com/yeatsec/LoihiLSD/internal/telemetry"
)

// Run builds and drives a parsed Program end to end: cfg selects the
// queue/numeric mode the chip is built with and the scheduler knobs it
// runs under (spec.md §5, §9), and the returned telemetry.Result is the
// wire-ready trace/utilization contract spec.md §6 names for a
// downstream plotting harness. This is the engine's whole external
// surface short of that harness.
func (p *Program) Run(cfg config.Config, opts ...sim.Option) (telemetry.Result, error) {
	if err := cfg.Validate(); err != nil {
		return telemetry.Result{}, errors.Wrap(err, "program: run")
	}
	c, err := p.Build(cfg.Numeric(), cfg.QueueCapacity, cfg.Mode())
	if err != nil {
		return telemetry.Result{}, errors.Wrap(err, "program: run")
	}
	allOpts := append([]sim.Option{sim.WithConfig(cfg)}, opts...)
	s := sim.NewSimController(c, p.TMax, allOpts...)
	s.Run()
	return s.Result(), nil
}
