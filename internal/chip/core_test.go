package chip

import "testing"

func newTestCore(t *testing.T, n int, bufCapacity int) *Core {
	t.Helper()
	c := newCore(Coord{X: 0, Y: 0}, n, FloatMode{}, bufCapacity, ModeFIFO)
	c.wireNoCSink(NewQueue("nocsink", bufCapacity, ModeFIFO, noopDecoder{}))
	return c
}

func TestCore_ProcessNeuron_BiasDrivesVoltageUp(t *testing.T) {
	c := newTestCore(t, 1, 4)
	c.decayU[0] = 0.5
	c.decayV[0] = 1.0
	c.vth[0] = 100.0
	c.vmax[0] = 1e9
	c.bias[0] = 30.0

	c.processNeuron()

	if c.voltage[0] != 30.0 {
		t.Fatalf("want voltage 30 after one bias-driven tick, got %f", c.voltage[0])
	}
	if c.curNrn != 1 {
		t.Fatalf("cur_nrn should advance past the only neuron, got %d", c.curNrn)
	}
}

func TestCore_ProcessNeuron_SpikeResetsVoltageAndEmits(t *testing.T) {
	c := newTestCore(t, 1, 4)
	c.decayV[0] = 1.0
	c.vth[0] = 10.0
	c.vmax[0] = 1e9
	c.bias[0] = 30.0
	c.axonOut[0] = []AxonOutEntry{{DstCore: Coord{X: 1, Y: 0}, AxonIDs: []uint32{7}, DelayPre: 2}}

	c.processNeuron()

	if c.voltage[0] != 0 {
		t.Fatalf("voltage should reset to 0 after crossing threshold, got %f", c.voltage[0])
	}
	if c.outBuffer.Len() != 1 {
		t.Fatalf("want one spike enqueued to out_buffer, got %d", c.outBuffer.Len())
	}
}

func TestCore_ProcessNeuron_BelowThreshold_NoSpike(t *testing.T) {
	c := newTestCore(t, 1, 4)
	c.decayV[0] = 1.0
	c.vth[0] = 100.0
	c.vmax[0] = 1e9
	c.bias[0] = 30.0
	c.axonOut[0] = []AxonOutEntry{{DstCore: Coord{X: 1, Y: 0}, AxonIDs: []uint32{7}, DelayPre: 2}}

	c.processNeuron()

	if c.outBuffer.Len() != 0 {
		t.Fatal("subthreshold voltage must not emit a spike")
	}
}

func TestCore_ProcessNeuron_BiasDelay_GatesBiasUntilTimestep(t *testing.T) {
	c := newTestCore(t, 1, 4)
	c.decayV[0] = 1.0
	c.vth[0] = 1e9
	c.vmax[0] = 1e9
	c.bias[0] = 30.0
	c.biasDelay[0] = 3
	c.curTstep = 0

	c.processNeuron()

	if c.voltage[0] != 0 {
		t.Fatalf("bias should not apply before bias_delay elapses, got voltage %f", c.voltage[0])
	}
}

func TestCore_ProcessNeuron_Backpressure_HaltsWithoutAdvancing(t *testing.T) {
	// S4 from spec.md §8: out_buffer capacity 1, neuron spikes every tick,
	// cur_nrn must not advance on an op-step where out_buffer is full.
	c := newTestCore(t, 1, 1)
	c.decayV[0] = 1.0
	c.vth[0] = 10.0
	c.vmax[0] = 1e9
	c.bias[0] = 30.0
	c.axonOut[0] = []AxonOutEntry{
		{DstCore: Coord{X: 1, Y: 0}, AxonIDs: []uint32{1}, DelayPre: 1},
		{DstCore: Coord{X: 1, Y: 0}, AxonIDs: []uint32{2}, DelayPre: 1},
	}

	c.processNeuron() // spikes: first axon_out entry fills the capacity-1 out_buffer, second halts

	if c.curNrn != 0 {
		t.Fatalf("cur_nrn must not advance when out_buffer fills mid-spike, got %d", c.curNrn)
	}
	if c.outBuffer.Len() != 1 {
		t.Fatalf("want exactly 1 message enqueued before the halt, got %d", c.outBuffer.Len())
	}
}

func TestCore_ProcessNeuron_SelfStallsWhenOutBufferFull(t *testing.T) {
	c := newTestCore(t, 1, 1)
	c.outBuffer.Enqueue(NewSpikeMessage(Coord{X: 1, Y: 0}, []uint32{0}, 5))
	c.vth[0] = 1e9
	c.vmax[0] = 1e9

	c.processNeuron()

	if c.curNrn != 0 {
		t.Fatal("a full out_buffer must prevent any neuron tick from starting")
	}
}

func TestCore_ProcessMsg_InjectsIntoRingAtCombinedDelay(t *testing.T) {
	c := newTestCore(t, 2, 4)
	c.axonIn[9] = []SynapseState{{DstNeuron: 1, Weight: -50.0, DelayPost: 16}}
	c.inBuffer.Enqueue(NewSpikeMessage(Coord{X: 0, Y: 0}, []uint32{9}, 4))

	c.processMsg()

	if c.ring(20)[1] != -50.0 {
		t.Fatalf("want -50.0 injected at ring row delay_post+msg.delay=20, got %f", c.ring(20)[1])
	}
}

func TestCore_ProcessNoC_MovesOneMessageWhenSinkHasRoom(t *testing.T) {
	c := newTestCore(t, 1, 4)
	c.outBuffer.Enqueue(NewSpikeMessage(Coord{X: 1, Y: 0}, []uint32{0}, 5))

	c.processNoC()

	if c.outBuffer.Len() != 0 {
		t.Fatal("process_noc should have drained the one queued message")
	}
	if c.noCSink.Len() != 1 {
		t.Fatal("process_noc should have delivered the message to the NoC sink")
	}
}

func TestCore_Ready_RequiresFullSweepAndBothBuffersReady(t *testing.T) {
	c := newTestCore(t, 2, 4)
	if c.Ready() {
		t.Fatal("core should not be ready before cur_nrn sweeps every neuron")
	}
	c.curNrn = 2
	if !c.Ready() {
		t.Fatal("core with cur_nrn==nNeurons and empty buffers should be ready")
	}
}

func TestCore_NextTimestep_AdvancesRingAndResetsCurNrn(t *testing.T) {
	c := newTestCore(t, 1, 4)
	c.curNrn = 1
	c.ring(0)[0] = 42.0

	c.NextTimestep()

	if c.curNrn != 0 {
		t.Errorf("cur_nrn should reset to 0 after NextTimestep, got %d", c.curNrn)
	}
	// relative row 0 is now what was row 1, which starts zeroed
	if c.ring(0)[0] != 0 {
		t.Errorf("new relative row 0 should be a fresh (zeroed) ring slot")
	}
	if c.curTstep != 1 {
		t.Errorf("cur_tstep should increment, got %d", c.curTstep)
	}
}

func TestCore_NextTimestep_PanicsWhenNotReady(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling NextTimestep before the core is ready")
		}
	}()
	c := newTestCore(t, 2, 4)
	c.NextTimestep()
}
