package chip

// Arbiter is a per-output-direction round-robin arbiter over a router's
// five input queues (spec.md §4.2). It keeps a rotating pointer so
// fairness is deterministic across op-steps, the same shape as the
// teacher's BranchPredictor counters: small fixed state, advanced only
// on a win.
type Arbiter struct {
	direction Direction
	sink      *Queue
	inputs    [5]*Queue // indexed by Direction-1 (DirNorth..DirLocal)
	startInd  int
}

// newArbiter builds an Arbiter for one output direction. inputs is the
// owning router's five input queues in fixed (N,E,S,W,Local) order.
func newArbiter(dir Direction, sink *Queue, inputs [5]*Queue) *Arbiter {
	return &Arbiter{direction: dir, sink: sink, inputs: inputs}
}

// Arbitrate runs one op-step of arbitration for this output direction
// (spec.md §4.2): if the sink isn't full, scan input queues starting
// just after startInd, wrapping once. The first queue whose head wants
// this direction and hasn't already traveled this op-step wins; its
// message moves from input to sink, and startInd advances past it.
//
// At most one winner per call, and a winning queue's message is moved
// exactly once — the sink's own Enqueue sets TraveledThisOpStep, so a
// message cannot win a second output's arbitration in the same op-step
// even if some other input aliased it (it can't: each message lives in
// exactly one queue at a time).
func (a *Arbiter) Arbitrate() {
	if a.sink.IsFull(1) {
		return
	}
	for i := 0; i < len(a.inputs); i++ {
		idx := (a.startInd + 1 + i) % len(a.inputs)
		in := a.inputs[idx]
		if in == nil {
			continue
		}
		dir, traveled := in.PeekRequest()
		if dir != a.direction || traveled {
			continue
		}
		msg := in.Dequeue()
		a.sink.Enqueue(msg)
		a.startInd = idx
		return
	}
}

// Crossbar composes one Arbiter per output direction and fires them all,
// in the fixed (N,E,S,W,Local) order, once per op-step (spec.md §4.2).
type Crossbar struct {
	arbiters [5]*Arbiter
}

func newCrossbar(arbiters [5]*Arbiter) *Crossbar {
	return &Crossbar{arbiters: arbiters}
}

// Fire arbitrates every output direction, in fixed order.
func (x *Crossbar) Fire() {
	for _, a := range x.arbiters {
		a.Arbitrate()
	}
}
