package price

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/rounding"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func grossItem(total, taxAmount, rate string) Calculated {
	return Calculated{
		UnitPrice:  dec(total),
		TotalPrice: dec(total),
		Quantity:   1,
		CalculatedTaxes: tax.CalculatedTaxes{
			{Rate: dec(rate), Tax: dec(taxAmount), Price: dec(total)},
		},
		TaxRules: tax.SingleRule(dec(rate)),
	}
}

func TestAggregateMergesTaxesByRate(t *testing.T) {
	items := []Calculated{
		grossItem("100.00", "9.09", "10"),
		grossItem("50.00", "4.55", "10"),
		grossItem("21.40", "3.42", "19"),
	}
	cp := Aggregate(items, nil, tax.StatusGross, rounding.DefaultTotalConfig())

	require.True(t, cp.TotalPrice.Equal(dec("171.40")), "total = %s", cp.TotalPrice)
	require.True(t, cp.PositionPrice.Equal(dec("171.40")))
	require.Len(t, cp.CalculatedTaxes, 2)
	require.True(t, cp.CalculatedTaxes[0].Rate.Equal(dec("10")))
	require.True(t, cp.CalculatedTaxes[0].Tax.Equal(dec("13.64")))
	require.True(t, cp.CalculatedTaxes[1].Rate.Equal(dec("19")))
}

func TestAggregateNetFromGross(t *testing.T) {
	cp := Aggregate([]Calculated{grossItem("100.00", "9.09", "10")}, nil, tax.StatusGross, rounding.DefaultTotalConfig())
	require.True(t, cp.NetPrice.Equal(dec("90.91")), "net = %s", cp.NetPrice)
	// Tax split invariant: net + taxes == total.
	require.True(t, cp.NetPrice.Add(cp.CalculatedTaxes.TotalTax()).Equal(cp.TotalPrice))
}

func TestAggregateDeliveryIncludedInTotalNotPosition(t *testing.T) {
	items := []Calculated{grossItem("100.00", "9.09", "10")}
	delivery := []Calculated{grossItem("4.90", "0.45", "10")}
	cp := Aggregate(items, delivery, tax.StatusGross, rounding.DefaultTotalConfig())
	require.True(t, cp.PositionPrice.Equal(dec("100.00")))
	require.True(t, cp.TotalPrice.Equal(dec("104.90")))
	require.True(t, cp.CalculatedTaxes.TotalTax().Equal(dec("9.54")))
}

func TestAggregateRawTotalWithCoarseRounding(t *testing.T) {
	coarse := rounding.Config{Decimals: 2, Interval: dec("0.05")}
	cp := Aggregate([]Calculated{grossItem("100.02", "9.09", "10")}, nil, tax.StatusGross, coarse)
	require.True(t, cp.TotalPrice.Equal(dec("100.00")), "total = %s", cp.TotalPrice)
	require.True(t, cp.RawTotal.Equal(dec("100.02")))
}
