// Package tax implements the progressive income tax calculation over the
// bracket table.
package tax

import (
	"context"
	"math"

	"github.com/paycore/payroll-backend/internal/payroll/repository"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/paycore/payroll-backend/pkg/validation"
)

// BracketSource looks up the bracket covering a taxable amount.
type BracketSource interface {
	FindBracket(ctx context.Context, amount float64) (*repository.TaxBracket, error)
}

// Engine computes tax owed for a taxable amount.
type Engine struct {
	brackets BracketSource
	logger   *logger.Logger
}

// NewEngine creates a new tax engine
func NewEngine(brackets BracketSource, log *logger.Logger) *Engine {
	return &Engine{
		brackets: brackets,
		logger:   log.WithComponent("tax"),
	}
}

// ComputeTax returns the tax owed on the given taxable amount, rounded to
// 2 decimals and never negative. Malformed input (NaN, infinite or
// negative) yields 0 with a warning rather than a failure: a bad number
// must not abort a whole payroll run.
func (e *Engine) ComputeTax(ctx context.Context, taxable float64) (float64, error) {
	if !validation.IsValidAmount(taxable) {
		e.logger.Warn().Float64("taxable", taxable).Msg("invalid taxable amount, treating tax as 0")
		return 0, nil
	}

	bracket, err := e.brackets.FindBracket(ctx, taxable)
	if err != nil {
		return 0, err
	}
	if bracket == nil {
		// The default table covers all non-negative amounts; reachable
		// only with a hand-edited bracket table.
		e.logger.Warn().Float64("taxable", taxable).Msg("no tax bracket matches amount")
		return 0, nil
	}

	// The bracket's own lower bound is the zero-point for its marginal
	// rate; the quick deduction folds in the lower brackets.
	tax := (taxable-bracket.MinSalary)*bracket.Rate - bracket.Deduction
	if tax < 0 {
		tax = 0
	}
	return Round2(tax), nil
}

// Round2 rounds a currency amount to 2 decimal places, half away from
// zero, the conventional currency rounding.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
