package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 0.85, cfg.Recon.AcceptThreshold)
	assert.Equal(t, 0.15, cfg.Recon.Margin)
	assert.Equal(t, 0.5, cfg.Recon.MinScore)
	assert.Equal(t, 0.92, cfg.Recon.MergeThreshold)
	assert.Equal(t, 30, cfg.Recon.DateWindowDays)
	assert.Equal(t, []string{"5", "6"}, cfg.Recon.PUCClasses)
	assert.False(t, cfg.DB.Enabled())
	assert.Equal(t, "results", cfg.Data.ResultsDir)
}

func TestFromViper_Entorno(t *testing.T) {
	v := viper.New()
	v.Set("RECON_ACCEPT_THRESHOLD", "0.9")
	v.Set("RECON_WORKERS", "8")
	v.Set("RECON_PUC_CLASSES", "5, 6,7")
	v.Set("DB_HOST", "db")
	v.Set("DB_PASSWORD", "p@ss:word")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Recon.AcceptThreshold)
	assert.Equal(t, 8, cfg.Recon.Workers)
	assert.Equal(t, []string{"5", "6", "7"}, cfg.Recon.PUCClasses)
	assert.True(t, cfg.DB.Enabled())
	assert.Equal(t, "postgres://postgres:p%40ss%3Aword@db:5432/onboarding?sslmode=disable", cfg.DB.ConnectionString())
}

func TestFromViper_UmbralesInvalidos(t *testing.T) {
	cases := map[string]string{
		"RECON_ACCEPT_THRESHOLD": "1.5",
		"RECON_MIN_SCORE":        "0.95",
		"RECON_AMOUNT_TOL_NEAR":  "0.2",
		"RECON_WORKERS":          "0",
		"RECON_PUC_CLASSES":      "5,AB",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, value)
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}
