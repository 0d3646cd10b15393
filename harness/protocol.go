package harness

import (
	"fmt"
	"regexp"
	"strconv"
)

// ProtocolVersion identifies the stdout layout benchmark binaries emit.
// Version 1 is at least MeasurementArity numeric tokens, of which the
// first MeasurementArity are read positionally in the order of the
// Measurement index constants.
const ProtocolVersion = 1

// MeasurementArity is the number of numeric tokens a v1 binary prints.
const MeasurementArity = 10

// Positions of the v1 tokens inside a Measurement.
const (
	KeygenCyclesAvg = iota
	KeygenCyclesStddev
	KeygenMsAvg
	SignCyclesAvg
	SignCyclesStddev
	SignMsAvg
	SignatureSize
	VerifyCyclesAvg
	VerifyCyclesStddev
	VerifyMsAvg
)

// Measurement is the raw positional tuple parsed from a binary's output.
type Measurement [MeasurementArity]float64

var numberPattern = regexp.MustCompile(`[0-9]+\.?[0-9]*|\.[0-9]+`)

// Summary projects the raw measurement onto the reported fields.
// The signature size sits between the sign and verify groups in the
// raw layout.
func (m Measurement) Summary() Summary {
	return Summary{
		KeygenKCycles: m[KeygenCyclesAvg],
		KeygenMs:      m[KeygenMsAvg],
		SignKCycles:   m[SignCyclesAvg],
		SignMs:        m[SignMsAvg],
		VerifyKCycles: m[VerifyCyclesAvg],
		VerifyMs:      m[VerifyMsAvg],
		SizeBytes:     m[SignatureSize],
	}
}

// ExtractNumbers returns every numeric token in out, in order.
func ExtractNumbers(out []byte) []float64 {
	tokens := numberPattern.FindAll(out, -1)
	values := make([]float64, 0, len(tokens))

	for _, tok := range tokens {
		v, err := strconv.ParseFloat(string(tok), 64)
		if err != nil {
			// The pattern only admits decimal literals, so this is an
			// overflow of an absurdly long digit run.
			continue
		}

		values = append(values, v)
	}

	return values
}

// ParseMeasurement parses v1 protocol output for target.
func ParseMeasurement(target string, out []byte) (Measurement, error) {
	var m Measurement

	values := ExtractNumbers(out)
	if len(values) < MeasurementArity {
		return m, &InsufficientDataError{
			Target: target,
			Got:    len(values),
			Want:   MeasurementArity,
		}
	}

	copy(m[:], values[:MeasurementArity])

	return m, nil
}

func (m Measurement) String() string {
	return fmt.Sprintf("%v", [MeasurementArity]float64(m))
}
