// control/export.go
// Author: momentics <momentics@gmail.com>
//
// Canonical CBOR export of counter snapshots, so two identical snapshots
// always produce identical bytes.

package control

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("control: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCBOR serializes the snapshot.
func (s Snapshot) MarshalCBOR() ([]byte, error) {
	type plain Snapshot
	return cborEncMode.Marshal(plain(s))
}

// UnmarshalSnapshot decodes a snapshot produced by MarshalCBOR.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	type plain Snapshot
	var p plain
	if err := cbor.Unmarshal(data, &p); err != nil {
		return Snapshot{}, fmt.Errorf("control: unmarshal snapshot: %w", err)
	}
	return Snapshot(p), nil
}

// Report is the full diagnostics document: counters plus probe output.
type Report struct {
	Counters Snapshot       `cbor:"counters"`
	Probes   map[string]any `cbor:"probes,omitempty"`
}

// MarshalReport serializes a report.
func MarshalReport(r Report) ([]byte, error) {
	type plain Snapshot
	return cborEncMode.Marshal(struct {
		Counters plain          `cbor:"counters"`
		Probes   map[string]any `cbor:"probes,omitempty"`
	}{plain(r.Counters), r.Probes})
}

// UnmarshalReport decodes a report produced by MarshalReport.
func UnmarshalReport(data []byte) (Report, error) {
	type plain Snapshot
	var raw struct {
		Counters plain          `cbor:"counters"`
		Probes   map[string]any `cbor:"probes,omitempty"`
	}
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return Report{}, fmt.Errorf("control: unmarshal report: %w", err)
	}
	return Report{Counters: Snapshot(raw.Counters), Probes: raw.Probes}, nil
}
