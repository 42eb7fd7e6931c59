package risk

import (
	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/isdacds/cmd/cds/internal/common"
	"github.com/meenmo/isdacds/pricer"
)

func parSpreads(m *common.Market, formula pricer.AccrualOnDefaultFormula) ([]float64, error) {
	p := pricer.NewAnalyticPricer(formula)
	out := make([]float64, len(m.Pillars))
	for i, c := range m.Pillars {
		s, err := p.ParSpread(c, m.Yield, m.Credit)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func sum(v []float64) float64 { return floats.Sum(v) }
