// Package program implements the textual chip-program loader: the
// "external collaborator" spec.md §2 documents as out of scope for the
// execution engine itself, but which scenario S3 needs in order to run
// end to end (spec.md §6, §8).
package program

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/yeatsec/LoihiLSD/internal/chip"
)

// Program is the parsed, not-yet-built result of reading a program file:
// a timestep horizon plus the neuron and synapse descriptors to hand to
// a chip.ChipProgrammer.
type Program struct {
	TMax     int
	Neurons  []chip.NeuronDescriptor
	Synapses []chip.SynapseDescriptor
}

// Parse reads the line-oriented grammar of spec.md §6:
//
//	simcontroller tmax
//	neuron nrn_id x y decay_u decay_v vth bias bias_delay vmin
//	synapse src_nrn_id dst_nrn_id weight delay_pre delay_post
//
// Blank lines, lines beginning with '#', and any line whose first token
// is not one of the three keywords above are ignored. Every malformed
// recognized line fails fast with the 1-based line number attached
// (spec.md §7, "fail fast... naming the offending line").
func Parse(r io.Reader) (*Program, error) {
	p := &Program{TMax: -1}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "simcontroller":
			tmax, err := parseSimController(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			p.TMax = tmax
		case "neuron":
			n, err := parseNeuron(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			p.Neurons = append(p.Neurons, n)
		case "synapse":
			s, err := parseSynapse(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			p.Synapses = append(p.Synapses, s)
		default:
			// unrecognized keyword: ignored per the grammar's documented
			// forward-compatibility rule
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if p.TMax <= 0 {
		return nil, errors.New("program has no simcontroller line with a positive tmax")
	}
	return p, nil
}

func parseSimController(fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, errors.Errorf("simcontroller: want 1 field, got %d", len(fields)-1)
	}
	tmax, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, errors.Wrap(err, "simcontroller: tmax")
	}
	if tmax <= 0 {
		return 0, errors.Errorf("simcontroller: tmax must be positive, got %d", tmax)
	}
	return tmax, nil
}

func parseNeuron(fields []string) (chip.NeuronDescriptor, error) {
	var d chip.NeuronDescriptor
	if len(fields) != 10 {
		return d, errors.Errorf("neuron: want 9 fields, got %d", len(fields)-1)
	}
	nrnID, err := strconv.Atoi(fields[1])
	if err != nil {
		return d, errors.Wrap(err, "neuron: nrn_id")
	}
	ints, err := parseInts(fields[2], fields[3])
	if err != nil {
		return d, errors.Wrap(err, "neuron: x/y")
	}
	floats, err := parseFloats(fields[4], fields[5], fields[6], fields[7], fields[9])
	if err != nil {
		return d, errors.Wrap(err, "neuron: decay_u/decay_v/vth/bias/vmin")
	}
	biasDelay, err := strconv.Atoi(fields[8])
	if err != nil || biasDelay < 0 {
		return d, errors.Errorf("neuron: bias_delay must be a non-negative integer, got %q", fields[8])
	}
	d = chip.NeuronDescriptor{
		NrnID:     nrnID,
		X:         ints[0],
		Y:         ints[1],
		DecayU:    floats[0],
		DecayV:    floats[1],
		Vth:       floats[2],
		Bias:      floats[3],
		BiasDelay: uint32(biasDelay),
		Vmin:      floats[4],
	}
	return d, nil
}

func parseSynapse(fields []string) (chip.SynapseDescriptor, error) {
	var d chip.SynapseDescriptor
	if len(fields) != 6 {
		return d, errors.Errorf("synapse: want 5 fields, got %d", len(fields)-1)
	}
	src, err := strconv.Atoi(fields[1])
	if err != nil {
		return d, errors.Wrap(err, "synapse: src_nrn_id")
	}
	dst, err := strconv.Atoi(fields[2])
	if err != nil {
		return d, errors.Wrap(err, "synapse: dst_nrn_id")
	}
	weight, err := strconv.ParseFloat(fields[3], 32)
	if err != nil {
		return d, errors.Wrap(err, "synapse: weight")
	}
	delayPre, err := strconv.Atoi(fields[4])
	if err != nil {
		return d, errors.Wrap(err, "synapse: delay_pre")
	}
	delayPost, err := strconv.Atoi(fields[5])
	if err != nil {
		return d, errors.Wrap(err, "synapse: delay_post")
	}
	d = chip.SynapseDescriptor{
		SrcNrnID:  src,
		DstNrnID:  dst,
		Weight:    float32(weight),
		DelayPre:  uint32(delayPre),
		DelayPost: uint32(delayPost),
	}
	return d, nil
}

func parseInts(fields ...string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(fields ...string) ([]float32, error) {
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", f)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// Build accumulates the parsed program into a chip.ChipProgrammer and
// freezes it into a runnable Chip.
func (p *Program) Build(mode chip.NumericMode, queueCapacity int, queueMode chip.Mode) (*chip.Chip, error) {
	cp := chip.NewChipProgrammer()
	for _, n := range p.Neurons {
		if err := cp.AddNeuron(n); err != nil {
			return nil, errors.Wrap(err, "program")
		}
	}
	for _, s := range p.Synapses {
		if err := cp.AddSynapse(s); err != nil {
			return nil, errors.Wrap(err, "program")
		}
	}
	return cp.Build(mode, queueCapacity, queueMode)
}
