package telemetry

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// Result is the external trace/result contract spec.md §6 names:
// per-core, per-timestep last-neuron voltage traces plus any sampled
// router utilization snapshots, packaged for a downstream plotting
// harness (explicitly out of scope here, spec.md §2).
type Result struct {
	NumericMode string      `msgpack:"numeric_mode"`
	QueueMode   string      `msgpack:"queue_mode"`
	TMax        int         `msgpack:"tmax"`
	CycleCount  int         `msgpack:"cycle_count"`
	Voltages    [][]float64 `msgpack:"voltages"`     // [core][t]
	UtilSamples [][][]float64 `msgpack:"util_samples"` // [sample][3][3]
}

// NewResult packages a voltage matrix and a slice of utilization
// snapshots into the wire-ready Result shape.
func NewResult(numericMode, queueMode string, tmax, cycleCount int, voltages *mat.Dense, samples []mat.Dense) Result {
	r := Result{
		NumericMode: numericMode,
		QueueMode:   queueMode,
		TMax:        tmax,
		CycleCount:  cycleCount,
	}
	if voltages != nil {
		nCores, nT := voltages.Dims()
		r.Voltages = make([][]float64, nCores)
		for i := 0; i < nCores; i++ {
			r.Voltages[i] = make([]float64, nT)
			for t := 0; t < nT; t++ {
				r.Voltages[i][t] = voltages.At(i, t)
			}
		}
	}
	if len(samples) > 0 {
		r.UtilSamples = make([][][]float64, len(samples))
		for s := range samples {
			rows, cols := samples[s].Dims()
			grid := make([][]float64, rows)
			for i := 0; i < rows; i++ {
				grid[i] = make([]float64, cols)
				for j := 0; j < cols; j++ {
					grid[i][j] = samples[s].At(i, j)
				}
			}
			r.UtilSamples[s] = grid
		}
	}
	return r
}

// EncodeResult serializes a Result to msgpack bytes.
func EncodeResult(r Result) ([]byte, error) {
	b, err := msgpack.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "telemetry: encode result")
	}
	return b, nil
}

// DecodeResult deserializes msgpack bytes produced by EncodeResult.
func DecodeResult(b []byte) (Result, error) {
	var r Result
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Result{}, errors.Wrap(err, "telemetry: decode result")
	}
	return r, nil
}
