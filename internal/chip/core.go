package chip

import "fmt"

// SynapseState is one entry of a core's axon_in table: a synapse landing
// on dstNeuron with the given weight and post-delay (spec.md §3).
type SynapseState struct {
	DstNeuron uint32
	Weight    float32
	DelayPost uint32
}

// AxonOutEntry is one entry of a core's axon_out table: an outgoing
// projection to a destination core's axon bundle, with the pre-delay
// applied before the message even enters the NoC (spec.md §3).
type AxonOutEntry struct {
	DstCore  Coord
	AxonIDs  []uint32
	DelayPre uint32
}

// Core is a bank of up to CompartmentsPerCore LIF neuron compartments
// sharing a single NoC attachment point (spec.md §3, §4.4).
type Core struct {
	id       Coord
	nNeurons int
	mode     NumericMode

	decayU, decayV   []float32
	vth, vmin, vmax  []float32
	bias             []float32
	biasDelay        []uint32

	current, voltage []float32

	// input is the circular ring of post-synaptic currents, MaxDelay rows
	// of nNeurons each. ringBase is the physical slot currently playing
	// the role of relative row 0 ("this timestep").
	input    [MaxDelay][]float32
	ringBase int

	axonIn  map[uint32][]SynapseState
	axonOut map[uint32][]AxonOutEntry

	curNrn   uint32
	curTstep uint32

	inBuffer  *Queue // fed by the co-located router's Local arbiter
	outBuffer *Queue // drained into the co-located router's Local input queue
	noCSink   *Queue // process_noc's destination: router.Input(DirLocal)
}

// newCore allocates a zero-initialized compartment bank for nNeurons
// neurons (spec.md §3 "Lifecycle": prepare_computation freezes shapes and
// zero-initializes state). capacity/mode size the core's two buffers.
func newCore(id Coord, nNeurons int, mode NumericMode, bufCapacity int, bufMode Mode) *Core {
	if nNeurons > CompartmentsPerCore {
		panic(fmt.Sprintf("chip: core %v requests %d neurons, exceeds CompartmentsPerCore=%d", id, nNeurons, CompartmentsPerCore))
	}
	c := &Core{
		id:        id,
		nNeurons:  nNeurons,
		mode:      mode,
		decayU:    make([]float32, nNeurons),
		decayV:    make([]float32, nNeurons),
		vth:       make([]float32, nNeurons),
		vmin:      make([]float32, nNeurons),
		vmax:      make([]float32, nNeurons),
		bias:      make([]float32, nNeurons),
		biasDelay: make([]uint32, nNeurons),
		current:   make([]float32, nNeurons),
		voltage:   make([]float32, nNeurons),
		axonIn:    make(map[uint32][]SynapseState),
		axonOut:   make(map[uint32][]AxonOutEntry),
		inBuffer:  NewQueue(fmt.Sprintf("core-in@%d,%d", id.X, id.Y), bufCapacity, bufMode, noopDecoder{}),
		outBuffer: NewQueue(fmt.Sprintf("core-out@%d,%d", id.X, id.Y), bufCapacity, bufMode, noopDecoder{}),
	}
	for row := range c.input {
		c.input[row] = make([]float32, nNeurons)
	}
	return c
}

// wireNoCSink attaches the co-located router's Local input queue as this
// core's NoC-bound sink.
func (c *Core) wireNoCSink(sink *Queue) { c.noCSink = sink }

// InBuffer returns this core's in_buffer (wired as the router's Local
// arbiter sink).
func (c *Core) InBuffer() *Queue { return c.inBuffer }

// ring returns the physical row backing relative row r (0 = "this
// timestep"), per the circular layout in spec.md §3/§4.4.
func (c *Core) ring(r int) []float32 {
	return c.input[(c.ringBase+r)%MaxDelay]
}

// ID returns the core's mesh coordinate.
func (c *Core) ID() Coord { return c.id }

// NNeurons returns the number of live compartments.
func (c *Core) NNeurons() int { return c.nNeurons }

// CurNrn returns the op-step program counter, in [0, nNeurons].
func (c *Core) CurNrn() uint32 { return c.curNrn }

// LastVoltage returns voltage[nNeurons-1], the per-timestep trace value
// spec.md §6 records for every core. A core with no neurons reports 0.
func (c *Core) LastVoltage() float32 {
	if c.nNeurons == 0 {
		return 0
	}
	return c.voltage[c.nNeurons-1]
}

// Voltage returns the current voltage of neuron i (test/diagnostic use).
func (c *Core) Voltage(i int) float32 { return c.voltage[i] }

// Operate runs one op-step: process_neuron, process_noc, process_msg, in
// that fixed order (spec.md §4.4).
func (c *Core) Operate() {
	c.processNeuron()
	c.processNoC()
	c.processMsg()
}

// processNeuron fires iff cur_nrn < n_neurons and out_buffer has room for
// at least one more message (spec.md §4.4). If a spike's axon_out fan-out
// cannot fully fit in out_buffer, the step halts mid-enqueue without
// advancing cur_nrn — the next op-step retries this same neuron, exactly
// as spec.md §4.4 step 4 and scenario S4 document, even though current
// and voltage were already updated this attempt.
func (c *Core) processNeuron() {
	if c.curNrn >= uint32(c.nNeurons) || c.outBuffer.IsFull(1) {
		return
	}
	i := c.curNrn

	c.current[i] = c.mode.DecayMultiply(c.current[i], c.decayU[i]) + c.ring(0)[i]

	cb := c.current[i]
	if c.curTstep >= c.biasDelay[i] {
		cb += c.bias[i]
	}

	c.voltage[i] = clip(c.mode.DecayMultiply(c.voltage[i], c.decayV[i])+cb, c.vmin[i], c.vmax[i])

	if c.voltage[i] > c.vth[i] {
		c.voltage[i] = 0
		for _, out := range c.axonOut[i] {
			if c.outBuffer.IsFull(1) {
				return // halt: cur_nrn does not advance, retried next op-step
			}
			c.outBuffer.Enqueue(NewSpikeMessage(out.DstCore, out.AxonIDs, out.DelayPre))
		}
	}

	c.curNrn++
}

// processNoC moves at most one message from out_buffer into the
// co-located router's Local input queue, iff out_buffer is nonempty and
// that sink has room (spec.md §4.4).
func (c *Core) processNoC() {
	if c.outBuffer.IsEmpty() || c.noCSink.IsFull(1) {
		return
	}
	msg := c.outBuffer.Dequeue()
	c.noCSink.Enqueue(msg)
}

// processMsg drains one message from in_buffer, if any, and injects its
// weighted contribution into the ring buffer at row (delay_post +
// msg.delay) for every synapse on every addressed axon (spec.md §4.4).
func (c *Core) processMsg() {
	if c.inBuffer.IsEmpty() {
		return
	}
	msg := c.inBuffer.Dequeue()
	for _, ax := range msg.AxonIDs {
		for _, s := range c.axonIn[ax] {
			row := int(s.DelayPost) + int(msg.Delay)
			c.ring(row)[s.DstNeuron] += s.Weight
		}
	}
}

// Ready reports whether this core may cross a timestep boundary: the
// op-step counter has swept every neuron, and both buffers are ready
// (spec.md §4.4).
func (c *Core) Ready() bool {
	return c.curNrn == uint32(c.nNeurons) && c.inBuffer.Ready() && c.outBuffer.Ready()
}

// NextTimestep requires Ready(), advances the circular input buffer
// (shifting row 0 out and zeroing the new tail row), decrements delays
// on both buffers (the same invariant every other queue in the fabric
// upholds — spec.md §3's "decremented once per global timestep" binds
// every in-flight message, not only those inside router queues), and
// resets cur_nrn for the next timestep.
func (c *Core) NextTimestep() {
	if !c.Ready() {
		panic(fmt.Sprintf("chip: core %v NextTimestep called while not ready", c.id))
	}
	outgoing := c.ringBase
	c.ringBase = (c.ringBase + 1) % MaxDelay
	tail := c.input[outgoing]
	for i := range tail {
		tail[i] = 0
	}
	c.inBuffer.DecDelays()
	c.outBuffer.DecDelays()
	c.curNrn = 0
	c.curTstep++
}
