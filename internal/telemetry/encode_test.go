package telemetry

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEncodeDecodeResult_RoundTrips(t *testing.T) {
	voltages := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	samples := []mat.Dense{*mat.NewDense(3, 3, nil)}

	r := NewResult("float32", "fifo", 3, 42, voltages, samples)

	b, err := EncodeResult(r)
	if err != nil {
		t.Fatalf("EncodeResult: %v", err)
	}

	got, err := DecodeResult(b)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}

	if got.NumericMode != "float32" || got.QueueMode != "fifo" || got.TMax != 3 || got.CycleCount != 42 {
		t.Fatalf("scalar fields did not round-trip: %+v", got)
	}
	if len(got.Voltages) != 2 || len(got.Voltages[0]) != 3 {
		t.Fatalf("voltage matrix shape did not round-trip: %+v", got.Voltages)
	}
	if got.Voltages[1][2] != 6 {
		t.Errorf("want Voltages[1][2]=6, got %v", got.Voltages[1][2])
	}
	if len(got.UtilSamples) != 1 {
		t.Fatalf("want 1 util sample, got %d", len(got.UtilSamples))
	}
}

func TestNewResult_NilVoltagesAndNoSamples(t *testing.T) {
	r := NewResult("fixed12.23", "priority", 0, 0, nil, nil)
	if r.Voltages != nil {
		t.Error("nil voltage matrix should produce a nil Voltages field")
	}
	if r.UtilSamples != nil {
		t.Error("no samples should produce a nil UtilSamples field")
	}
}
