package curve

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the current serialization version.
const SnapshotVersion = 1

// Kind labels a serialized curve.
type Kind string

const (
	KindYield  Kind = "yield"
	KindCredit Kind = "credit"
)

// Snapshot is the serialized form of a curve: knot times and zero rates.
type Snapshot struct {
	Version int       `json:"version"`
	Kind    Kind      `json:"kind"`
	Times   []float64 `json:"times"`
	Rates   []float64 `json:"rates"`
}

func snapshotOf(kind Kind, c *Curve) Snapshot {
	return Snapshot{Version: SnapshotVersion, Kind: kind, Times: c.Times(), Rates: c.Rates()}
}

// Snapshot returns the serializable form of the yield curve.
func (c *YieldCurve) Snapshot() Snapshot { return snapshotOf(KindYield, c.Curve) }

// Snapshot returns the serializable form of the credit curve.
func (c *CreditCurve) Snapshot() Snapshot { return snapshotOf(KindCredit, c.Curve) }

func (s Snapshot) check(kind Kind) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported snapshot version %d", ErrInvalidArgument, s.Version)
	}
	if s.Kind != kind {
		return fmt.Errorf("%w: snapshot kind %q, want %q", ErrInvalidArgument, s.Kind, kind)
	}
	return nil
}

// YieldCurve rebuilds a yield curve from the snapshot.
func (s Snapshot) YieldCurve() (*YieldCurve, error) {
	if err := s.check(KindYield); err != nil {
		return nil, fmt.Errorf("Snapshot.YieldCurve: %w", err)
	}
	return NewYieldCurve(s.Times, s.Rates)
}

// CreditCurve rebuilds a credit curve from the snapshot.
func (s Snapshot) CreditCurve() (*CreditCurve, error) {
	if err := s.check(KindCredit); err != nil {
		return nil, fmt.Errorf("Snapshot.CreditCurve: %w", err)
	}
	return NewCreditCurve(s.Times, s.Rates)
}

func (c *YieldCurve) MarshalJSON() ([]byte, error) { return json.Marshal(c.Snapshot()) }

func (c *CreditCurve) MarshalJSON() ([]byte, error) { return json.Marshal(c.Snapshot()) }

func (c *YieldCurve) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	yc, err := s.YieldCurve()
	if err != nil {
		return err
	}
	*c = *yc
	return nil
}

func (c *CreditCurve) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	cc, err := s.CreditCurve()
	if err != nil {
		return err
	}
	*c = *cc
	return nil
}
