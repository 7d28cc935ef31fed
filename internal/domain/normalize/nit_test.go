package normalize_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/onboarding-contable/internal/domain/normalize"
)

func TestParseNIT(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		base      string
		canonical string
		heuristic string
		mismatch  bool
	}{
		{"solo base", "900123456", "900123456", "900123456-8", normalize.HeuristicNITBaseOnly, false},
		{"DV explícito", "900.123.456-8", "900123456", "900123456-8", normalize.HeuristicNITExplicitDV, false},
		{"DV pegado", "9001234568", "900123456", "900123456-8", normalize.HeuristicNITTrailingDV, false},
		{"DV incorrecto", "900123456-1", "900123456", "900123456-8", normalize.HeuristicNITExplicitDV, true},
		{"cédula de 10 dígitos", "1020304050", "1020304050", "", normalize.HeuristicNITBaseOnly, false},
		{"exportado como float", "900123456.0", "900123456", "900123456-8", normalize.HeuristicNITFloat, false},
		{"con prefijo", "NIT 800.197.268-4", "800197268", "800197268-4", normalize.HeuristicNITExplicitDV, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := normalize.ParseNIT(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.base, n.Base)
			if tc.canonical != "" {
				assert.Equal(t, tc.canonical, n.String())
			}
			assert.Equal(t, tc.heuristic, n.Heuristic)
			assert.Equal(t, tc.mismatch, n.Mismatch())
		})
	}
}

func TestParseNIT_Errores(t *testing.T) {
	for _, raw := range []string{"", "   ", "N/A", "000-0"} {
		_, err := normalize.ParseNIT(raw)
		require.Error(t, err, raw)
		var nerr *normalize.Error
		require.True(t, errors.As(err, &nerr))
		assert.Equal(t, normalize.KindNIT, nerr.Kind)
		assert.Equal(t, raw, nerr.Raw)
	}
}

// normalize(normalize(x)) == normalize(x)
func TestParseNIT_Idempotente(t *testing.T) {
	for _, raw := range []string{"900123456", "900.123.456-8", "900123456-1", "9001234568", "1020304050", "71.650.321", "CC 1 234 567"} {
		first, err := normalize.ParseNIT(raw)
		require.NoError(t, err, raw)
		second, err := normalize.ParseNIT(first.String())
		require.NoError(t, err, raw)
		assert.Equal(t, first.String(), second.String(), raw)
		assert.Equal(t, first.Base, second.Base, raw)
	}
}

func TestParsePUC(t *testing.T) {
	p, err := normalize.ParsePUC("5105.01")
	require.NoError(t, err)
	assert.Equal(t, "510501", p.Code)
	assert.Equal(t, "5", p.Class())
	assert.Equal(t, "5105", p.Parent())
	assert.True(t, p.Standard())
	assert.Empty(t, p.Tags)

	p, err = normalize.ParsePUC("51050")
	require.NoError(t, err)
	assert.Contains(t, p.Tags, normalize.TagNonStandardDepth)
	assert.Equal(t, "5105", p.Parent())

	p, err = normalize.ParsePUC("513525.0")
	require.NoError(t, err)
	assert.Equal(t, "513525", p.Code)

	p, err = normalize.ParsePUC("5")
	require.NoError(t, err)
	assert.Equal(t, "", p.Parent())

	for _, raw := range []string{"", "51A5", "0510"} {
		_, err := normalize.ParsePUC(raw)
		assert.Error(t, err, raw)
	}
}

func TestPUCParent(t *testing.T) {
	assert.Equal(t, "51", normalize.PUCParent("5105"))
	assert.Equal(t, "5", normalize.PUCParent("51"))
	assert.Equal(t, "51", normalize.PUCParent("510"))
	assert.Equal(t, "51050101", normalize.PUCParent("5105010101"))
}
