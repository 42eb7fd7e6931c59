package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, stdin string, args ...string) (int, []byte, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.Bytes(), stderr.String()
}

func TestCalibrate(t *testing.T) {
	t.Parallel()

	code, out, stderr := runCmd(t, "", "calibrate", "-input", "testdata/calibrate.json")
	if code != 0 {
		t.Fatalf("exit %d: %s %s", code, out, stderr)
	}
	var got struct {
		CreditCurve struct {
			Kind  string    `json:"kind"`
			Times []float64 `json:"times"`
			Rates []float64 `json:"rates"`
		} `json:"credit_curve"`
		Pillars []struct {
			Tenor     string  `json:"tenor"`
			Maturity  string  `json:"maturity"`
			ParSpread float64 `json:"par_spread"`
			Residual  float64 `json:"residual"`
		} `json:"pillars"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, out)
	}
	if got.CreditCurve.Kind != "credit" || len(got.CreditCurve.Times) != 7 || len(got.Pillars) != 7 {
		t.Fatalf("unexpected output %s", out)
	}
	for _, p := range got.Pillars {
		if math.Abs(p.Residual) > 1e-10 {
			t.Fatalf("pillar %s residual %g", p.Tenor, p.Residual)
		}
	}
	if got.Pillars[4].Maturity != "2016-06-20" {
		t.Fatalf("5Y maturity %s", got.Pillars[4].Maturity)
	}
	if math.Abs(got.Pillars[0].ParSpread-0.005) > 1e-12 {
		t.Fatalf("6M par spread %g", got.Pillars[0].ParSpread)
	}
	if !strings.Contains(stderr, "calibrated credit curve") {
		t.Fatalf("missing info log: %q", stderr)
	}
}

func TestPrice(t *testing.T) {
	t.Parallel()

	metricsPath := filepath.Join(t.TempDir(), "cds.prom")
	code, out, stderr := runCmd(t, "", "price", "-input", "testdata/price.json", "-metrics", metricsPath)
	if code != 0 {
		t.Fatalf("exit %d: %s %s", code, out, stderr)
	}
	var got struct {
		Valuations []struct {
			ID             string  `json:"id"`
			CleanPV        float64 `json:"clean_pv"`
			ParSpread      float64 `json:"par_spread"`
			AccruedDays    int     `json:"accrued_days"`
			CashSettlement string  `json:"cash_settlement"`
			Price          string  `json:"price"`
		} `json:"valuations"`
		TotalPV string `json:"total_pv"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, out)
	}
	if len(got.Valuations) != 4 {
		t.Fatalf("%d valuations", len(got.Valuations))
	}
	a, d := got.Valuations[0], got.Valuations[3]
	if a.ID != "A" || d.ID != "D" || a.CleanPV != d.CleanPV || a.CashSettlement != d.CashSettlement || a.Price != d.Price {
		t.Fatalf("default coupon and notional not applied: %+v vs %+v", a, d)
	}
	// the 5Y pillar was quoted at the trade's coupon
	if math.Abs(a.ParSpread-0.01) > 1e-10 || math.Abs(a.CleanPV) > 1e-10 {
		t.Fatalf("5Y trade at par: %+v", a)
	}
	if a.AccruedDays != 85 {
		t.Fatalf("accrued days %d", a.AccruedDays)
	}
	// a 5% coupon over a ~90bp curve is paid upfront to the buyer
	if got.Valuations[1].CleanPV >= 0 {
		t.Fatalf("high-coupon trade %+v", got.Valuations[1])
	}

	b, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	for _, want := range []string{`isdacds_calibrations_total{outcome="ok"} 1`, "isdacds_trades_priced_total 4"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("metrics missing %q:\n%s", want, b)
		}
	}
}

func TestCS01(t *testing.T) {
	t.Parallel()

	code, out, stderr := runCmd(t, "", "cs01", "-input", "testdata/cs01.json")
	if code != 0 {
		t.Fatalf("exit %d: %s %s", code, out, stderr)
	}
	type bucket struct {
		Label    string  `json:"label"`
		Bumped   float64 `json:"bumped"`
		Analytic float64 `json:"analytic"`
	}
	var got struct {
		ParallelCS01 bucket   `json:"parallel_cs01"`
		BucketedCS01 []bucket `json:"bucketed_cs01"`
		BucketedIR01 []bucket `json:"bucketed_ir01"`
		MarketIR01   []bucket `json:"market_ir01"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, out)
	}
	if len(got.BucketedCS01) != 4 || len(got.MarketIR01) != 5 {
		t.Fatalf("unexpected output %s", out)
	}
	// about 3.6 years of risky annuity on 10mm per bp
	if got.ParallelCS01.Bumped < 3000 || got.ParallelCS01.Bumped > 4000 {
		t.Fatalf("parallel CS01 %g", got.ParallelCS01.Bumped)
	}
	for _, b := range append(got.BucketedCS01, got.BucketedIR01...) {
		if math.Abs(b.Bumped-b.Analytic) > 1e-3*math.Abs(b.Analytic)+1e-3 {
			t.Fatalf("bucket %s: bumped %g, analytic %g", b.Label, b.Bumped, b.Analytic)
		}
	}
	if got.BucketedCS01[3].Analytic != 0 {
		t.Fatalf("7Y bucket of a 4Y trade is %g", got.BucketedCS01[3].Analytic)
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	if code, _, _ := runCmd(t, ""); code != 2 {
		t.Fatalf("no args: exit %d", code)
	}
	if code, _, stderr := runCmd(t, "", "swap"); code != 2 || !strings.Contains(stderr, "unknown command") {
		t.Fatalf("unknown command: exit %d, %q", code, stderr)
	}
	if code, _, _ := runCmd(t, "", "help"); code != 0 {
		t.Fatalf("help: exit %d", code)
	}
	if code, _, _ := runCmd(t, "", "price", "-h"); code != 0 {
		t.Fatalf("price -h: exit %d", code)
	}

	tests := []struct {
		name, stdin, want string
		args              []string
	}{
		{"bad json", "{", "failed to parse JSON input", []string{"price"}},
		{"no trade date", `{"trades":[{"id":"A","tenor":"5Y"}]}`, "TradeDate", []string{"price"}},
		{"no trades", `{"trade_date":"2011-06-13"}`, "Trades", []string{"price"}},
		{"bad quote type", `{"trade_date":"2011-06-13","credit_curve":{"quotes":[{"tenor":"5Y","type":"bid"}]}}`, "oneof", []string{"calibrate"}},
		{"no quotes", `{"trade_date":"2011-06-13","yield_curve":{"times":[1],"rates":[0.01]}}`, "quotes is required", []string{"calibrate"}},
		{"no credit curve", `{"trade_date":"2011-06-13","yield_curve":{"times":[1],"rates":[0.01]},"trades":[{"id":"A","tenor":"5Y"}]}`, "either curve or quotes", []string{"price"}},
		{"bad calendar", `{"trade_date":"2011-06-13","calendar":"MARS","trades":[{"id":"A","tenor":"5Y"}]}`, "unknown calendar", []string{"price"}},
	}
	for _, tc := range tests {
		code, out, _ := runCmd(t, tc.stdin, tc.args...)
		var got struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(out, &got); err != nil || code != 1 || !strings.Contains(got.Error, tc.want) {
			t.Fatalf("%s: exit %d, output %s", tc.name, code, out)
		}
	}
}

func TestConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("pricing:\n  formula: OriginalISDA\nportfolio:\n  workers: 1\nlogging:\n  level: error\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(bad, []byte("pricing:\n  formula: trapezoid\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	code, out, stderr := runCmd(t, "", "price", "-input", "testdata/price.json", "-config", good)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, out)
	}
	if stderr != "" {
		t.Fatalf("info logs at error level: %q", stderr)
	}
	code, out, _ = runCmd(t, "", "price", "-input", "testdata/price.json", "-config", bad)
	if code != 1 || !bytes.Contains(out, []byte("invalid configuration")) {
		t.Fatalf("bad config: exit %d, %s", code, out)
	}
}
