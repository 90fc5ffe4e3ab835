package chip

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// dirIndex maps a port direction to its [5]*Queue slot.
func dirIndex(d Direction) int {
	switch d {
	case DirNorth:
		return 0
	case DirEast:
		return 1
	case DirSouth:
		return 2
	case DirWest:
		return 3
	case DirLocal:
		return 4
	default:
		panic("chip: dirIndex of DirNop")
	}
}

// Router is a five-port (N, E, S, W, Local) NoC router owning five input
// queues and five output sink references, with X-then-Y dimension-order
// decoding (spec.md §4.3).
type Router struct {
	id     Coord
	inputs [5]*Queue // N, E, S, W, Local, keyed by dirIndex
	sinks  [5]*Queue // this router's outputs; may be a neighbor's input,
	                 // an edge sink, or the co-located core's in_buffer (Local)
	xbar *Crossbar
}

// newRouter allocates a router's five input queues (capacity and mode
// shared across the chip) wired to decode via this router's own
// coordinate. Sinks and the crossbar are attached afterward by Chip, once
// every router in the mesh exists (spec.md §9, "arena-and-index").
func newRouter(id Coord, capacity int, mode Mode) *Router {
	r := &Router{id: id}
	names := [5]string{"N", "E", "S", "W", "Local"}
	for i := range names {
		name := fmt.Sprintf("%s@%d,%d", names[i], id.X, id.Y)
		r.inputs[i] = NewQueue(name, capacity, mode, routerDecoder{routerID: id})
	}
	return r
}

// Input returns the router's input queue for the given direction.
func (r *Router) Input(d Direction) *Queue { return r.inputs[dirIndex(d)] }

// wireSink attaches this router's output reference for d.
func (r *Router) wireSink(d Direction, sink *Queue) { r.sinks[dirIndex(d)] = sink }

// wireCrossbar finishes construction once all five sinks are attached.
func (r *Router) wireCrossbar() {
	var arbiters [5]*Arbiter
	for i, dir := range directionOrder {
		arbiters[i] = newArbiter(dir, r.sinks[dirIndex(dir)], r.inputs)
	}
	r.xbar = newCrossbar(arbiters)
}

// Operate fires the crossbar: one arbitration pass over every output
// direction (spec.md §4.3).
func (r *Router) Operate() {
	r.xbar.Fire()
}

// NextOpStep clears traveled flags and runs delay-1 promotion on every
// input queue (spec.md §4.3). Per spec.md §9's adopted resolution of
// Open Question 1, the scheduler calls this only on the router
// ("tic_toc") phase of the op-step loop, not on every op-step.
func (r *Router) NextOpStep() {
	for _, q := range r.inputs {
		q.NextOpStep()
	}
}

// Ready reports whether every input queue may cross a timestep boundary.
func (r *Router) Ready() bool {
	for _, q := range r.inputs {
		if !q.Ready() {
			return false
		}
	}
	return true
}

// NextTimestep requires Ready() and decrements delays on every input
// queue (spec.md §4.3).
func (r *Router) NextTimestep() {
	if !r.Ready() {
		panic("chip: Router.NextTimestep called while not ready")
	}
	for _, q := range r.inputs {
		q.DecDelays()
	}
}

// Util returns a 3x3 compass-layout occupancy matrix: North/South/East/
// West occupancy on the edges, Local occupancy at the center, corners
// zero (spec.md §4.3 "telemetry sink"). This places Local at (1,1) rather
// than the original noc_utils.py get_util()'s (2,0); spec.md itself is
// silent on the exact cell, and this layout is the one pinned by
// TestRouter_Util_CompassLayout.
func (r *Router) Util() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 1, r.inputs[dirIndex(DirNorth)].Util())
	m.Set(2, 1, r.inputs[dirIndex(DirSouth)].Util())
	m.Set(1, 0, r.inputs[dirIndex(DirWest)].Util())
	m.Set(1, 2, r.inputs[dirIndex(DirEast)].Util())
	m.Set(1, 1, r.inputs[dirIndex(DirLocal)].Util())
	return m
}

// ID returns this router's mesh coordinate.
func (r *Router) ID() Coord { return r.id }
