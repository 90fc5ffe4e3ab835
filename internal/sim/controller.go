// Package sim drives a chip.Chip through the two-phase timestep/op-step
// scheduler spec.md §4.6 specifies: operate() loops op-steps until every
// core and router reports ready, tic_toc halves the router service rate
// relative to the core rate, then next_timestep() advances simulated
// time.
package sim

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/yeatsec/LoihiLSD/internal/chip"
	"github.com/yeatsec/LoihiLSD/internal/config"
	"github.com/yeatsec/LoihiLSD/internal/telemetry"
)

// SimController owns a built chip and drives it to tmax, recording the
// traces spec.md §6 names as the external interface.
type SimController struct {
	chip *chip.Chip
	tmax int

	tstep      int
	cycleCount int

	opStepCeiling int
	sampleUtil    bool
	logger        *zap.Logger

	// numericMode/queueMode label Result() output; set via WithConfig,
	// defaulting to config.Default()'s choices.
	numericMode string
	queueMode   string

	// voltages[core][t] is the last-added neuron's voltage at timestep t
	// (spec.md §6 "last_nrn_voltages").
	voltages *mat.Dense

	utilSamples []mat.Dense
}

// Option configures a SimController at construction.
type Option func(*SimController)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *SimController) { s.logger = logger }
}

// WithOpStepCeiling overrides the default op-step safety ceiling
// (spec.md §5: "assert the inner loop does not exceed a configurable
// op-step ceiling per timestep").
func WithOpStepCeiling(n int) Option {
	return func(s *SimController) { s.opStepCeiling = n }
}

// WithUtilSampling enables router utilization sampling on every tic
// phase (spec.md §4.6 "optionally sample utilization").
func WithUtilSampling(enabled bool) Option {
	return func(s *SimController) { s.sampleUtil = enabled }
}

// WithConfig applies a loaded build-time configuration (internal/config):
// the op-step ceiling, utilization sampling toggle, and the numeric/queue
// mode labels Result() reports. The chip itself must already have been
// built with cfg.Numeric()/cfg.Mode() — WithConfig only carries the
// labels and scheduler knobs forward to the run's output.
func WithConfig(cfg config.Config) Option {
	return func(s *SimController) {
		s.opStepCeiling = cfg.OpStepCeiling
		s.sampleUtil = cfg.SampleUtilization
		s.numericMode = cfg.NumericMode
		s.queueMode = cfg.QueueMode
	}
}

// NewSimController wires a SimController around a built chip and its
// declared timestep horizon.
func NewSimController(c *chip.Chip, tmax int, opts ...Option) *SimController {
	defaults := config.Default()
	s := &SimController{
		chip:          c,
		tmax:          tmax,
		opStepCeiling: defaults.OpStepCeiling,
		logger:        telemetry.Nop(),
		numericMode:   defaults.NumericMode,
		queueMode:     defaults.QueueMode,
		voltages:      mat.NewDense(len(c.Cores()), tmax, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CycleCount returns the total op-step count executed so far — the
// "cycle count" spec.md §4.6 uses in speedup comparisons.
func (s *SimController) CycleCount() int { return s.cycleCount }

// TStep returns the current global timestep.
func (s *SimController) TStep() int { return s.tstep }

// LastNeuronVoltages returns the n_cores x tmax trace matrix (spec.md
// §6).
func (s *SimController) LastNeuronVoltages() *mat.Dense { return s.voltages }

// UtilSamples returns every sampled router utilization snapshot, in
// sample order, when WithUtilSampling was enabled.
func (s *SimController) UtilSamples() []mat.Dense { return s.utilSamples }

// Result packages the run so far into the wire-ready telemetry.Result
// (spec.md §6's external trace/result contract), ready for
// telemetry.EncodeResult.
func (s *SimController) Result() telemetry.Result {
	return telemetry.NewResult(s.numericMode, s.queueMode, s.tmax, s.cycleCount, s.voltages, s.utilSamples)
}

// Operate runs one timestep (spec.md §4.6): loops op-steps — every core
// operates each op-step, routers operate (and advance their op-step
// state) only on alternating "tic" phases — until every component
// reports ready, then crosses the timestep boundary.
func (s *SimController) Operate() {
	if s.tstep >= s.tmax {
		return
	}

	ticToc := true
	opSteps := 0
	cores := s.chip.Cores()
	routers := s.chip.Routers()

	for !s.allReady(cores, routers) {
		if opSteps >= s.opStepCeiling {
			s.logger.Error("op-step ceiling exceeded",
				zap.Int("tstep", s.tstep), zap.Int("ceiling", s.opStepCeiling))
			panic(fmt.Sprintf("sim: op-step ceiling %d exceeded at tstep %d", s.opStepCeiling, s.tstep))
		}

		for _, c := range cores {
			c.Operate()
		}

		if ticToc {
			for _, r := range routers {
				r.NextOpStep()
			}
			for _, r := range routers {
				r.Operate()
			}
			if s.sampleUtil {
				s.sampleUtilization(routers)
			}
		}
		ticToc = !ticToc

		opSteps++
		s.cycleCount++
	}

	for i, c := range cores {
		s.voltages.Set(i, s.tstep, float64(c.LastVoltage()))
	}

	for _, c := range cores {
		c.NextTimestep()
	}
	for _, r := range routers {
		r.NextTimestep()
	}
	s.tstep++
}

// Run calls Operate until the timestep horizon is reached.
func (s *SimController) Run() {
	for s.tstep < s.tmax {
		s.Operate()
	}
}

func (s *SimController) allReady(cores []*chip.Core, routers []*chip.Router) bool {
	for _, c := range cores {
		if !c.Ready() {
			return false
		}
	}
	for _, r := range routers {
		if !r.Ready() {
			return false
		}
	}
	return true
}

func (s *SimController) sampleUtilization(routers []*chip.Router) {
	for _, r := range routers {
		s.utilSamples = append(s.utilSamples, *r.Util())
	}
}
