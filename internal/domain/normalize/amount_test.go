package normalize_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw       string
		want      string
		heuristic string
	}{
		{"1,250,000.00", "1250000", normalize.HeuristicRightmostDecimal},
		{"1.250.000,00", "1250000", normalize.HeuristicRightmostDecimal},
		{"1250000", "1250000", normalize.HeuristicNoSeparator},
		{"$ 1.250.000", "1250000", normalize.HeuristicThousandsOnly},
		{"1.500", "1500", normalize.HeuristicThousandsOnly},
		{"1,5", "1.5", normalize.HeuristicSingleDecimal},
		{"1234.56", "1234.56", normalize.HeuristicSingleDecimal},
		{"25,000.00000", "25000", normalize.HeuristicRightmostDecimal},
		{"0.500", "0.5", normalize.HeuristicRightmostDecimal},
		{"1.234.56", "1234.56", normalize.HeuristicRightmostDecimal},
		{"(1.234)", "-1234", normalize.HeuristicThousandsOnly},
		{"-45.678,9", "-45678.9", normalize.HeuristicRightmostDecimal},
		{"45678-", "-45678", normalize.HeuristicNoSeparator},
		{"0.125", "0.13", normalize.HeuristicRightmostDecimal},
		// el primer grupo de miles tiene a lo sumo 3 dígitos
		{"1234.567", "1234.57", normalize.HeuristicRightmostDecimal},
		{"1234,567", "1234.57", normalize.HeuristicRightmostDecimal},
		{"123.456", "123456", normalize.HeuristicThousandsOnly},
		{"12.345.678", "12345678", normalize.HeuristicThousandsOnly},
		{"1234.567.890", "1234567.89", normalize.HeuristicRightmostDecimal},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := normalize.ParseAmount(tc.raw)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got.Value), "esperado %s, obtenido %s", tc.want, got.Value)
			assert.Equal(t, tc.heuristic, got.Heuristic)
		})
	}
}

func TestParseAmount_Errores(t *testing.T) {
	for _, raw := range []string{"", "abc", "$", "1.2.3,4,5", "12x"} {
		_, err := normalize.ParseAmount(raw)
		assert.Error(t, err, raw)
	}
}

// Formatear un monto normalizado y volver a normalizarlo produce el mismo valor.
func TestParseAmount_RoundTrip(t *testing.T) {
	for _, raw := range []string{"1,250,000.00", "1.250.000,00", "0,5", "(987.654,32)", "12", "7.000.000", "0.01"} {
		first, err := normalize.ParseAmount(raw)
		require.NoError(t, err, raw)
		second, err := normalize.ParseAmount(normalize.FormatAmount(first.Value))
		require.NoError(t, err, raw)
		assert.True(t, first.Value.Equal(second.Value), "%s: %s != %s", raw, first.Value, second.Value)
		assert.Equal(t, normalize.FormatAmount(first.Value), normalize.FormatAmount(second.Value))
	}
}
