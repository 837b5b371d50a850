// Package tax computes the derived tax block for an invoice. The rules are
// Colombian: a fixed 19% VAT (IVA), plus withholding-at-source (retefuente)
// and municipal industry tax (ICA) at per-invoice percentage rates.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/dfmorales/facturas-backend/pkg/errors"
)

// VATRate is fixed and not configurable per invoice.
var VATRate = decimal.NewFromFloat(0.19)

var hundred = decimal.NewFromInt(100)

// Input carries the base amount and the per-invoice percentage selectors.
// Percentages are expressed in percentage points (2.5 means 2.5%).
type Input struct {
	Amount         decimal.Decimal
	WithholdingPct decimal.Decimal
	MunicipalPct   decimal.Decimal
}

// Assessment is the derived tax block merged into the invoice before
// persistence. All values are rounded to 2 decimal places, half-up.
type Assessment struct {
	VAT          decimal.Decimal
	Withholding  decimal.Decimal
	MunicipalTax decimal.Decimal
}

// Assess computes the tax block for the given input. It is pure: no I/O and
// no mutation of the input. A zero amount yields a zero block.
func Assess(in Input) (Assessment, error) {
	if in.Amount.IsNegative() {
		return Assessment{}, errors.New(errors.CodeValidation, "amount must be non-negative")
	}
	if in.WithholdingPct.IsNegative() || in.MunicipalPct.IsNegative() {
		return Assessment{}, errors.New(errors.CodeValidation, "tax percentages must be non-negative")
	}

	return Assessment{
		VAT:          round2(in.Amount.Mul(VATRate)),
		Withholding:  round2(in.Amount.Mul(in.WithholdingPct).Div(hundred)),
		MunicipalTax: round2(in.Amount.Mul(in.MunicipalPct).Div(hundred)),
	}, nil
}

// round2 rounds half away from zero to 2 decimal places. For the
// non-negative values produced here that is standard half-up rounding.
func round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
