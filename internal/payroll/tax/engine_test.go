package tax

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paycore/payroll-backend/internal/payroll/repository"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// tableSource serves brackets from memory, mirroring the seeded default
// table.
type tableSource struct {
	brackets []repository.TaxBracket
}

func (s *tableSource) FindBracket(_ context.Context, amount float64) (*repository.TaxBracket, error) {
	for i := range s.brackets {
		if s.brackets[i].MinSalary <= amount && s.brackets[i].MaxSalary > amount {
			return &s.brackets[i], nil
		}
	}
	return nil, nil
}

func defaultTable() *tableSource {
	return &tableSource{brackets: []repository.TaxBracket{
		{MinSalary: 0, MaxSalary: 5000, Rate: 0, Deduction: 0},
		{MinSalary: 5000, MaxSalary: 8000, Rate: 0.03, Deduction: 0},
		{MinSalary: 8000, MaxSalary: 17000, Rate: 0.10, Deduction: 210},
		{MinSalary: 17000, MaxSalary: 30000, Rate: 0.20, Deduction: 1410},
		{MinSalary: 30000, MaxSalary: 40000, Rate: 0.25, Deduction: 2660},
		{MinSalary: 40000, MaxSalary: 60000, Rate: 0.30, Deduction: 4410},
		{MinSalary: 60000, MaxSalary: 85000, Rate: 0.35, Deduction: 7160},
		{MinSalary: 85000, MaxSalary: 1e15, Rate: 0.45, Deduction: 15160},
	}}
}

func newTestEngine() *Engine {
	return NewEngine(defaultTable(), logger.New("test", "development"))
}

func TestComputeTaxBrackets(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name    string
		taxable float64
		want    float64
	}{
		{"zero income", 0, 0},
		{"below threshold", 4999.99, 0},
		{"first taxed bracket lower edge", 5000, 0},
		{"first taxed bracket", 6000, 30},
		{"middle bracket", 12000, 190},
		{"bracket boundary", 8000, 0}, // (8000-8000)*0.10-210 floored at 0
		{"upper bracket", 25000, 190},  // (25000-17000)*0.20-1410
		{"top bracket", 150000, 14090}, // (150000-85000)*0.45-15160
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.ComputeTax(context.Background(), tt.taxable)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestComputeTaxNeverNegative(t *testing.T) {
	engine := newTestEngine()

	for _, taxable := range []float64{0, 5000, 8000, 8100, 17000, 30000, 40000, 60000, 85000} {
		got, err := engine.ComputeTax(context.Background(), taxable)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0, "taxable %v", taxable)
	}
}

func TestComputeTaxMonotonicWithinBracket(t *testing.T) {
	engine := newTestEngine()

	pairs := [][2]float64{
		{8000, 16999}, {17000, 29999}, {5000, 7999}, {85000, 200000},
	}
	for _, p := range pairs {
		lo, err := engine.ComputeTax(context.Background(), p[0])
		require.NoError(t, err)
		hi, err := engine.ComputeTax(context.Background(), p[1])
		require.NoError(t, err)
		assert.LessOrEqual(t, lo, hi, "tax(%v) must not exceed tax(%v)", p[0], p[1])
	}
}

func TestComputeTaxBracketCoverage(t *testing.T) {
	src := defaultTable()

	for x := 0.0; x < 120000; x += 137.5 {
		matches := 0
		for _, b := range src.brackets {
			if b.MinSalary <= x && b.MaxSalary > x {
				matches++
			}
		}
		require.Equal(t, 1, matches, "amount %v must match exactly one bracket", x)
	}
}

func TestComputeTaxInvalidAmountFailsSoft(t *testing.T) {
	engine := newTestEngine()

	for _, taxable := range []float64{-100, math.NaN(), math.Inf(1)} {
		got, err := engine.ComputeTax(context.Background(), taxable)
		require.NoError(t, err)
		assert.Zero(t, got)
	}
}

func TestComputeTaxNoBracketFailsSoft(t *testing.T) {
	engine := NewEngine(&tableSource{}, logger.New("test", "development"))

	got, err := engine.ComputeTax(context.Background(), 12000)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 3.14, Round2(3.14159), 1e-9)
	assert.InDelta(t, 2.72, Round2(2.71828), 1e-9)
	assert.InDelta(t, -4900.13, Round2(-4900.126), 1e-9)
	assert.Zero(t, Round2(0))
}
