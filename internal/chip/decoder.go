package chip

// decoder is the pluggable "decode-on-enqueue" hook (spec.md §9,
// "Pluggable decoders"). The reference model attaches a closure per
// queue instance; here each wiring site picks one of a fixed set of
// tagged strategies instead, so there is no runtime dispatch beyond a
// small type switch — the chip's wiring graph is static once built.
type decoder interface {
	decode(msg *SpikeMessage)
}

// noopDecoder leaves DirTag untouched. Used for queues that never
// re-decode a message they receive (e.g. a core's in_buffer, which
// receives only Local-tagged messages already at their destination).
type noopDecoder struct{}

func (noopDecoder) decode(*SpikeMessage) {}

// edgeSinkDecoder marks messages that fell off the mesh border. They are
// diagnostic captures and never re-enter the fabric, so decoding is a
// no-op beyond recording that this message has, in fact, traveled.
type edgeSinkDecoder struct{}

func (edgeSinkDecoder) decode(*SpikeMessage) {}

// routerDecoder implements X-then-Y dimension-order routing (spec.md
// §4.2): a message destined for the router's own coordinate decodes to
// Local; otherwise it resolves the X displacement first, then Y.
type routerDecoder struct {
	routerID Coord
}

func (d routerDecoder) decode(msg *SpikeMessage) {
	delta := msg.DstCore.Sub(d.routerID)
	switch {
	case delta.X == 0 && delta.Y == 0:
		msg.DirTag = DirLocal
	case delta.X != 0:
		if delta.X > 0 {
			msg.DirTag = DirEast
		} else {
			msg.DirTag = DirWest
		}
	default: // delta.X == 0 && delta.Y != 0
		if delta.Y > 0 {
			msg.DirTag = DirNorth
		} else {
			msg.DirTag = DirSouth
		}
	}
}
