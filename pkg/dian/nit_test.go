package dian_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/onboarding-contable/pkg/dian"
)

func TestComputeNITVerificationDigit(t *testing.T) {
	cases := []struct {
		base string
		want byte
	}{
		{"900123456", '8'},
		{"800197268", '4'}, // NIT de la DIAN
		{"860034313", '7'},
		{"900.123.456", '8'},
	}
	for _, tc := range cases {
		t.Run(tc.base, func(t *testing.T) {
			got, err := dian.ComputeNITVerificationDigit(tc.base)
			require.NoError(t, err)
			assert.Equal(t, string(tc.want), string(got))
		})
	}
}

func TestComputeNITVerificationDigit_Vacio(t *testing.T) {
	_, err := dian.ComputeNITVerificationDigit("--")
	assert.Error(t, err)
}

func TestComputeNITVerificationDigit_DemasiadoLargo(t *testing.T) {
	_, err := dian.ComputeNITVerificationDigit("1234567890123456")
	assert.Error(t, err)
}

func TestValidateNITVerificationDigit(t *testing.T) {
	assert.NoError(t, dian.ValidateNITVerificationDigit("900123456-8"))
	assert.NoError(t, dian.ValidateNITVerificationDigit("900.123.456-8"))
	assert.Error(t, dian.ValidateNITVerificationDigit("900123456-1"))
	assert.Error(t, dian.ValidateNITVerificationDigit("9"))
}

func TestSplitFiscalCodes(t *testing.T) {
	got := dian.SplitFiscalCodes("0-13; O-15,o-13\nR-99-PN")
	assert.Equal(t, []string{"O-13", "O-15", "R-99-PN"}, got)
	for _, c := range got {
		assert.True(t, dian.ValidFiscalResponsibilityCodes[c], c)
	}
}
