// Package harness manages execution of per-variant signature scheme
// benchmark binaries and collects their measurements.
package harness

// Summary holds the seven values reported for one benchmarked variant.
// Cycle counts are in thousands of cycles, times in milliseconds.
type Summary struct {
	KeygenKCycles float64 `json:"keygen_kcycles"`
	KeygenMs      float64 `json:"keygen_ms"`
	SignKCycles   float64 `json:"sign_kcycles"`
	SignMs        float64 `json:"sign_ms"`
	VerifyKCycles float64 `json:"verify_kcycles"`
	VerifyMs      float64 `json:"verify_ms"`
	SizeBytes     float64 `json:"size_bytes"`
}

// Values returns the summary as an ordered tuple:
// keygen cycles, keygen ms, sign cycles, sign ms, verify cycles,
// verify ms, signature size.
func (s Summary) Values() [7]float64 {
	return [7]float64{
		s.KeygenKCycles, s.KeygenMs,
		s.SignKCycles, s.SignMs,
		s.VerifyKCycles, s.VerifyMs,
		s.SizeBytes,
	}
}

// Record is the result of benchmarking one variant of a family.
type Record struct {
	Name    string  `json:"name"`
	Summary Summary `json:"summary"`
}
