package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/rounding"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCalculator() Calculator {
	return Calculator{Rounding: rounding.DefaultItemConfig()}
}

func TestCalculateTaxFree(t *testing.T) {
	taxes := newCalculator().Calculate(dec("100.00"), SingleRule(dec("19")), StatusTaxFree)
	require.Empty(t, taxes)
}

func TestCalculateGrossSingleRate(t *testing.T) {
	taxes := newCalculator().Calculate(dec("100.00"), SingleRule(dec("10")), StatusGross)
	require.Len(t, taxes, 1)
	require.True(t, taxes[0].Rate.Equal(dec("10")))
	require.True(t, taxes[0].Tax.Equal(dec("9.09")), "tax = %s", taxes[0].Tax)
	require.True(t, taxes[0].Price.Equal(dec("100.00")))
}

func TestCalculateNetSingleRate(t *testing.T) {
	taxes := newCalculator().Calculate(dec("90.91"), SingleRule(dec("10")), StatusNet)
	require.Len(t, taxes, 1)
	require.True(t, taxes[0].Tax.Equal(dec("9.09")), "tax = %s", taxes[0].Tax)
}

func TestCalculateProportionalDistribution(t *testing.T) {
	rules := Rules{
		{Rate: dec("19"), Percentage: dec("60")},
		{Rate: dec("7"), Percentage: dec("40")},
	}
	taxes := newCalculator().Calculate(dec("100.00"), rules, StatusGross)
	require.Len(t, taxes, 2)
	// Sorted by rate ascending.
	require.True(t, taxes[0].Rate.Equal(dec("7")))
	require.True(t, taxes[0].Price.Equal(dec("40.00")))
	require.True(t, taxes[0].Tax.Equal(dec("2.62")), "7%% tax = %s", taxes[0].Tax)
	require.True(t, taxes[1].Rate.Equal(dec("19")))
	require.True(t, taxes[1].Price.Equal(dec("60.00")))
	require.True(t, taxes[1].Tax.Equal(dec("9.58")), "19%% tax = %s", taxes[1].Tax)
}

func TestCalculatePartialCoverage(t *testing.T) {
	// Shares below 100% leave the remainder untaxed.
	rules := Rules{{Rate: dec("19"), Percentage: dec("50")}}
	taxes := newCalculator().Calculate(dec("100.00"), rules, StatusGross)
	require.Len(t, taxes, 1)
	require.True(t, taxes[0].Price.Equal(dec("50.00")))
}

func TestCalculateMergesEqualRates(t *testing.T) {
	rules := Rules{
		{Rate: dec("19"), Percentage: dec("30")},
		{Rate: dec("19"), Percentage: dec("70")},
	}
	taxes := newCalculator().Calculate(dec("100.00"), rules, StatusNet)
	require.Len(t, taxes, 1)
	require.True(t, taxes[0].Price.Equal(dec("100.00")))
	require.True(t, taxes[0].Tax.Equal(dec("19.00")), "tax = %s", taxes[0].Tax)
}

func TestMergeKeepsRateOrder(t *testing.T) {
	a := CalculatedTaxes{{Rate: dec("19"), Tax: dec("1.90"), Price: dec("10.00")}}
	b := CalculatedTaxes{
		{Rate: dec("7"), Tax: dec("0.70"), Price: dec("10.00")},
		{Rate: dec("19"), Tax: dec("3.80"), Price: dec("20.00")},
	}
	merged := a.Merge(b)
	require.Len(t, merged, 2)
	require.True(t, merged[0].Rate.Equal(dec("7")))
	require.True(t, merged[1].Tax.Equal(dec("5.70")))
	require.True(t, merged[1].Price.Equal(dec("30.00")))
}
