package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/meenmo/isdacds/bond"
	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/pricer"
)

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("node 2: %w", calibrate.ErrCalibrationArbitrage), "arbitrage"},
		{fmt.Errorf("solve: %w", calibrate.ErrNoConvergence), "no_convergence"},
		{calibrate.ErrInvalidArgument, "invalid_argument"},
		{fmt.Errorf("HazardRate: %w", &bond.OutOfRangeError{Price: 1.2, Bound: 1.1, Limit: "risk-free price"}), "out_of_range"},
		{pricer.ErrExpired, "expired"},
		{errors.New("boom"), "other"},
	}
	for _, tc := range tests {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := New()
	r.RecordCalibration(nil)
	r.RecordCalibration(nil)
	r.RecordCalibration(fmt.Errorf("x: %w", calibrate.ErrCalibrationArbitrage))
	r.RecordTrades(5)
	if err := r.Time("price", func() error { return nil }); err != nil {
		t.Fatalf("Time: %v", err)
	}
	r.RecordLatency("calibrate", 3*time.Millisecond)

	if got := testutil.ToFloat64(r.calibrations.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok calibrations %g", got)
	}
	if got := testutil.ToFloat64(r.calibrations.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed calibrations %g", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("arbitrage")); got != 1 {
		t.Fatalf("arbitrage errors %g", got)
	}
	if got := testutil.ToFloat64(r.trades); got != 5 {
		t.Fatalf("trades %g", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 2 {
		t.Fatalf("%d latency series, want 2", n)
	}
	// a second recorder registers without panicking
	_ = New()
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.RecordTrades(3)
	path := filepath.Join(t.TempDir(), "isdacds.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "isdacds_trades_priced_total 3") {
		t.Fatalf("textfile missing trade count:\n%s", b)
	}
}
