package chip

import (
	"math"

	"github.com/pkg/errors"
)

// NeuronDescriptor is one parsed `neuron` record (spec.md §6). Vmax is
// implicitly +Inf, matching the grammar's documented default.
type NeuronDescriptor struct {
	NrnID     int
	X, Y      int
	DecayU    float32
	DecayV    float32
	Vth       float32
	Bias      float32
	BiasDelay uint32
	Vmin      float32
}

// SynapseDescriptor is one parsed `synapse` record (spec.md §6).
type SynapseDescriptor struct {
	SrcNrnID  int
	DstNrnID  int
	Weight    float32
	DelayPre  uint32
	DelayPost uint32
}

// ChipProgrammer maps neuron and synapse descriptors onto cores and
// axons (spec.md §4.7, "documented as the input contract only" in
// spec.md §2 — SPEC_FULL builds the mapping, since §8 scenario S3 needs
// a runnable end-to-end loader). Descriptors accumulate via AddNeuron/
// AddSynapse; Build freezes shapes and validates every invariant spec.md
// §4.4 names, failing fast with a line-free structural error (the
// textual-format line numbers, when available, are attached by the
// internal/program loader that calls this type).
type ChipProgrammer struct {
	neurons   map[int]NeuronDescriptor
	neuronIDs []int // insertion order, for deterministic error messages
	synapses  []SynapseDescriptor
}

// NewChipProgrammer returns an empty programmer.
func NewChipProgrammer() *ChipProgrammer {
	return &ChipProgrammer{neurons: make(map[int]NeuronDescriptor)}
}

// AddNeuron records a neuron descriptor. Duplicate nrn_id is a
// programming error.
func (p *ChipProgrammer) AddNeuron(d NeuronDescriptor) error {
	if _, exists := p.neurons[d.NrnID]; exists {
		return errors.Errorf("duplicate neuron id %d", d.NrnID)
	}
	if d.X < 0 || d.Y < 0 {
		return errors.Errorf("neuron %d: negative coordinate (%d,%d)", d.NrnID, d.X, d.Y)
	}
	p.neurons[d.NrnID] = d
	p.neuronIDs = append(p.neuronIDs, d.NrnID)
	return nil
}

// AddSynapse records a synapse descriptor. Delay range checks run here;
// cross-neuron checks (axon fan-in/out budgets, the delay_post+delay
// overflow rule) run in Build once every neuron is known.
func (p *ChipProgrammer) AddSynapse(d SynapseDescriptor) error {
	if d.DelayPre < MinDelay || d.DelayPre > MaxDelay {
		return errors.Errorf("synapse %d->%d: delay_pre %d out of [%d,%d]", d.SrcNrnID, d.DstNrnID, d.DelayPre, MinDelay, MaxDelay)
	}
	if d.DelayPost < MinDelay || d.DelayPost > MaxDelay {
		return errors.Errorf("synapse %d->%d: delay_post %d out of [%d,%d]", d.SrcNrnID, d.DstNrnID, d.DelayPost, MinDelay, MaxDelay)
	}
	p.synapses = append(p.synapses, d)
	return nil
}

// coreLayout is the per-core bookkeeping Build assembles before
// allocating the real Chip.
type coreLayout struct {
	coord     Coord
	localIdx  map[int]int // global nrn_id -> index within this core
	order     []int       // global nrn_id in AddNeuron order (stable local index assignment)
}

// Build freezes the accumulated program into a fully wired Chip. No
// partial chip is ever returned: any validation failure returns
// (nil, err).
func (p *ChipProgrammer) Build(mode NumericMode, queueCapacity int, queueMode Mode) (*Chip, error) {
	if len(p.neurons) == 0 {
		return nil, errors.New("program has no neurons")
	}

	layouts := make(map[Coord]*coreLayout)
	width, height := 0, 0
	// Local indices follow AddNeuron order, so each core's last local
	// neuron is its last-added one (the neuron its trace records).
	for _, id := range p.neuronIDs {
		d := p.neurons[id]
		coord := Coord{X: d.X, Y: d.Y}
		l, ok := layouts[coord]
		if !ok {
			l = &coreLayout{coord: coord, localIdx: make(map[int]int)}
			layouts[coord] = l
		}
		l.localIdx[id] = len(l.order)
		l.order = append(l.order, id)
		if d.X+1 > width {
			width = d.X + 1
		}
		if d.Y+1 > height {
			height = d.Y + 1
		}
	}

	coreSizes := make(map[Coord]int, len(layouts))
	for coord, l := range layouts {
		if len(l.order) > CompartmentsPerCore {
			return nil, errors.Errorf("core (%d,%d): %d neurons exceeds CompartmentsPerCore=%d", coord.X, coord.Y, len(l.order), CompartmentsPerCore)
		}
		coreSizes[coord] = len(l.order)
	}

	chip := buildTopology(width, height, coreSizes, mode, queueCapacity, queueMode)

	for coord, l := range layouts {
		core := chip.CoreAt(coord.X, coord.Y)
		for idx, id := range l.order {
			d := p.neurons[id]
			core.decayU[idx] = d.DecayU
			core.decayV[idx] = d.DecayV
			core.vth[idx] = d.Vth
			core.vmin[idx] = d.Vmin
			core.vmax[idx] = float32(math.Inf(1))
			core.bias[idx] = d.Bias
			core.biasDelay[idx] = d.BiasDelay
		}
	}

	// axonOutGroups dedupes (dstCore, delayPre) pairs per source neuron so
	// one spike carries the full fan-out of synapses for that pairing,
	// matching the hardware model of one axon per source neuron
	// (spec.md §3's axon_out/axon_in split).
	type groupKey struct {
		core  Coord
		delay uint32
	}
	axonOutGroups := make(map[Coord]map[int]map[groupKey]bool) // core -> localSrcIdx -> group -> seen

	for _, syn := range p.synapses {
		srcDesc, ok := p.neurons[syn.SrcNrnID]
		if !ok {
			return nil, errors.Errorf("synapse references unknown src neuron %d", syn.SrcNrnID)
		}
		dstDesc, ok := p.neurons[syn.DstNrnID]
		if !ok {
			return nil, errors.Errorf("synapse references unknown dst neuron %d", syn.DstNrnID)
		}
		srcCoord := Coord{X: srcDesc.X, Y: srcDesc.Y}
		dstCoord := Coord{X: dstDesc.X, Y: dstDesc.Y}
		srcIdx := layouts[srcCoord].localIdx[syn.SrcNrnID]
		dstIdx := layouts[dstCoord].localIdx[syn.DstNrnID]

		// Open Question 3 (spec.md §9): delay_post + msg.delay >= MaxDelay
		// is a load-time error. A message's Delay starts at delay_pre and
		// only decreases, and it can be consumed in the same timestep it
		// was emitted, so the binding check is delay_post + delay_pre.
		if syn.DelayPost+syn.DelayPre >= MaxDelay {
			return nil, errors.Errorf("synapse %d->%d: delay_post=%d + delay_pre=%d leaves no room in the ring buffer (MaxDelay=%d)", syn.SrcNrnID, syn.DstNrnID, syn.DelayPost, syn.DelayPre, MaxDelay)
		}

		axonID := uint32(syn.SrcNrnID)
		srcCore := chip.CoreAt(srcCoord.X, srcCoord.Y)
		dstCore := chip.CoreAt(dstCoord.X, dstCoord.Y)

		if axonOutGroups[srcCoord] == nil {
			axonOutGroups[srcCoord] = make(map[int]map[groupKey]bool)
		}
		if axonOutGroups[srcCoord][srcIdx] == nil {
			axonOutGroups[srcCoord][srcIdx] = make(map[groupKey]bool)
		}
		key := groupKey{core: dstCoord, delay: syn.DelayPre}
		if !axonOutGroups[srcCoord][srcIdx][key] {
			axonOutGroups[srcCoord][srcIdx][key] = true
			srcCore.axonOut[uint32(srcIdx)] = append(srcCore.axonOut[uint32(srcIdx)], AxonOutEntry{
				DstCore:  dstCoord,
				AxonIDs:  []uint32{axonID},
				DelayPre: syn.DelayPre,
			})
		}

		dstCore.axonIn[axonID] = append(dstCore.axonIn[axonID], SynapseState{
			DstNeuron: uint32(dstIdx),
			Weight:    syn.Weight,
			DelayPost: syn.DelayPost,
		})
	}

	for coord := range layouts {
		core := chip.CoreAt(coord.X, coord.Y)
		if len(core.axonIn) > MaxAxonIn {
			return nil, errors.Errorf("core (%d,%d): %d distinct in-axons exceeds MaxAxonIn=%d", coord.X, coord.Y, len(core.axonIn), MaxAxonIn)
		}
		totalFanIn := 0
		for _, list := range core.axonIn {
			totalFanIn += len(list)
		}
		if totalFanIn > MaxFanInState {
			return nil, errors.Errorf("core (%d,%d): %d total synapses exceeds MaxFanInState=%d", coord.X, coord.Y, totalFanIn, MaxFanInState)
		}
		totalFanOut := 0
		for _, list := range core.axonOut {
			totalFanOut += len(list)
		}
		if totalFanOut > MaxAxonOut {
			return nil, errors.Errorf("core (%d,%d): %d total out-axon entries exceeds MaxAxonOut=%d", coord.X, coord.Y, totalFanOut, MaxAxonOut)
		}
	}

	return chip, nil
}
