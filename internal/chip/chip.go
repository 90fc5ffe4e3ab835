package chip

// edgeSinkCapacity is generous because edge sinks are diagnostic
// captures, never replayed into the mesh, and never expected to be
// drained (spec.md §4.5, §7 "message loss at mesh edges").
const edgeSinkCapacity = 1 << 20

// Chip owns every router and core in the mesh and the static wiring
// graph between them (spec.md §3 "Ownership", §4.5). Components never
// hold pointers to each other directly; Router and Core hold *Queue
// references resolved once at build time, matching spec.md §9's
// "arena-and-index" guidance — here the arena is simply the Chip's own
// router/core slices, and every cross-reference is a *Queue pointer into
// one of those slices' owned state, never re-allocated afterward.
type Chip struct {
	width, height int
	routers       []*Router // index: x + y*width
	cores         []*Core   // same indexing
	edgeSinks     [5]*Queue // keyed by Direction; DirLocal unused
}

// Width and Height report the mesh dimensions.
func (c *Chip) Width() int  { return c.width }
func (c *Chip) Height() int { return c.height }

func (c *Chip) index(x, y int) int { return x + y*c.width }

// RouterAt returns the router at (x,y).
func (c *Chip) RouterAt(x, y int) *Router { return c.routers[c.index(x, y)] }

// CoreAt returns the core at (x,y).
func (c *Chip) CoreAt(x, y int) *Core { return c.cores[c.index(x, y)] }

// Cores returns every core in a fixed, deterministic visit order
// (row-major) — the order the scheduler (spec.md §4.6) iterates in.
func (c *Chip) Cores() []*Core { return c.cores }

// Routers returns every router in the same fixed visit order.
func (c *Chip) Routers() []*Router { return c.routers }

// EdgeSink returns the direction-keyed edge sink queue (spec.md §4.5).
func (c *Chip) EdgeSink(d Direction) *Queue { return c.edgeSinks[dirIndex(d)] }

// buildTopology constructs the H x W mesh: one router and one core per
// cell, routers wired N/E/S/W to their neighbors (or an edge sink at the
// mesh border), Local wired to the co-located core, per spec.md §4.5.
// coreSizes gives each cell's neuron count (0 is legal: an unused tile
// still routes traffic).
func buildTopology(width, height int, coreSizes map[Coord]int, mode NumericMode, queueCapacity int, queueMode Mode) *Chip {
	chip := &Chip{width: width, height: height}
	chip.routers = make([]*Router, width*height)
	chip.cores = make([]*Core, width*height)

	for _, dir := range []Direction{DirNorth, DirEast, DirSouth, DirWest} {
		chip.edgeSinks[dirIndex(dir)] = NewQueue("edge-"+dir.String(), edgeSinkCapacity, ModeFIFO, edgeSinkDecoder{})
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			id := Coord{X: x, Y: y}
			chip.routers[chip.index(x, y)] = newRouter(id, queueCapacity, queueMode)
			n := coreSizes[id]
			chip.cores[chip.index(x, y)] = newCore(id, n, mode, queueCapacity, queueMode)
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := chip.RouterAt(x, y)

			if x > 0 {
				r.wireSink(DirWest, chip.RouterAt(x-1, y).Input(DirEast))
			} else {
				r.wireSink(DirWest, chip.edgeSinks[dirIndex(DirWest)])
			}
			if x < width-1 {
				r.wireSink(DirEast, chip.RouterAt(x+1, y).Input(DirWest))
			} else {
				r.wireSink(DirEast, chip.edgeSinks[dirIndex(DirEast)])
			}
			if y < height-1 {
				r.wireSink(DirNorth, chip.RouterAt(x, y+1).Input(DirSouth))
			} else {
				r.wireSink(DirNorth, chip.edgeSinks[dirIndex(DirNorth)])
			}
			if y > 0 {
				r.wireSink(DirSouth, chip.RouterAt(x, y-1).Input(DirNorth))
			} else {
				r.wireSink(DirSouth, chip.edgeSinks[dirIndex(DirSouth)])
			}

			core := chip.CoreAt(x, y)
			r.wireSink(DirLocal, core.InBuffer())
			core.wireNoCSink(r.Input(DirLocal))

			r.wireCrossbar()
		}
	}

	return chip
}
