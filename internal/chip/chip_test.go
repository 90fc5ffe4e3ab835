package chip

import "testing"

func TestBuildTopology_InteriorRoutersWireToNeighbors(t *testing.T) {
	c := buildTopology(3, 3, nil, FloatMode{}, 4, ModeFIFO)

	center := c.RouterAt(1, 1)
	east := c.RouterAt(2, 1)

	center.sinks[dirIndex(DirEast)].Enqueue(NewSpikeMessage(Coord{X: 2, Y: 1}, []uint32{0}, 5))

	if east.inputs[dirIndex(DirWest)].Len() != 1 {
		t.Fatal("center router's East sink should be the East neighbor's West input queue")
	}
}

func TestBuildTopology_BorderRoutersWireToEdgeSinks(t *testing.T) {
	c := buildTopology(2, 2, nil, FloatMode{}, 4, ModeFIFO)

	corner := c.RouterAt(0, 0)
	corner.sinks[dirIndex(DirWest)].Enqueue(NewSpikeMessage(Coord{X: -1, Y: 0}, []uint32{0}, 5))
	corner.sinks[dirIndex(DirSouth)].Enqueue(NewSpikeMessage(Coord{X: 0, Y: -1}, []uint32{0}, 5))

	if c.EdgeSink(DirWest).Len() != 1 {
		t.Fatal("west border router should wire its West sink to the West edge sink")
	}
	if c.EdgeSink(DirSouth).Len() != 1 {
		t.Fatal("south border router should wire its South sink to the South edge sink")
	}
}

func TestBuildTopology_LocalWiresRouterAndCoreTogether(t *testing.T) {
	coreSizes := map[Coord]int{{X: 0, Y: 0}: 1}
	c := buildTopology(1, 1, coreSizes, FloatMode{}, 4, ModeFIFO)

	router := c.RouterAt(0, 0)
	core := c.CoreAt(0, 0)

	router.sinks[dirIndex(DirLocal)].Enqueue(NewSpikeMessage(Coord{X: 0, Y: 0}, []uint32{0}, 5))
	if core.InBuffer().Len() != 1 {
		t.Fatal("router's Local sink should be the co-located core's in_buffer")
	}

	core.noCSink.Enqueue(NewSpikeMessage(Coord{X: 0, Y: 0}, []uint32{0}, 5))
	if router.inputs[dirIndex(DirLocal)].Len() != 1 {
		t.Fatal("core's NoC sink should be the co-located router's Local input queue")
	}
}

func TestBuildTopology_UnsizedCoreDefaultsToZeroNeurons(t *testing.T) {
	c := buildTopology(2, 2, nil, FloatMode{}, 4, ModeFIFO)
	if c.CoreAt(1, 1).NNeurons() != 0 {
		t.Error("a cell absent from coreSizes should still route traffic with zero neurons")
	}
}

// TestEdgeSink_DropsMessageAimedOffMesh reproduces spec.md §8 scenario
// S5: a message destined for a coordinate west of (0,0) resolves to
// DirWest at the (0,0) router, is arbitrated onto the West edge sink
// rather than re-entering the fabric, and is counted as dropped.
func TestEdgeSink_DropsMessageAimedOffMesh(t *testing.T) {
	c := buildTopology(2, 2, nil, FloatMode{}, 4, ModeFIFO)
	corner := c.RouterAt(0, 0)

	corner.inputs[dirIndex(DirSouth)].Enqueue(NewSpikeMessage(Coord{X: -1, Y: 0}, []uint32{0}, 5))
	corner.NextOpStep()
	corner.Operate()

	sink := c.EdgeSink(DirWest)
	if sink.Len() != 1 {
		t.Fatalf("message aimed off the west edge should land in the west edge sink, got len=%d", sink.Len())
	}
	if sink.Dropped() != 1 {
		t.Fatalf("west edge sink should record exactly one drop, got %d", sink.Dropped())
	}

	if corner.inputs[dirIndex(DirNorth)].Len() != 0 ||
		corner.inputs[dirIndex(DirEast)].Len() != 0 ||
		corner.inputs[dirIndex(DirSouth)].Len() != 0 {
		t.Fatal("a message resolved to the west edge must never re-enter any of the router's own input queues")
	}
}
