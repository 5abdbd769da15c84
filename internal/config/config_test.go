package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VESSEL_PLACEHOLDER", "Unknown_Vessel")
	t.Setenv("SLIP_FONT_SIZE", "not-a-number")
	t.Setenv("SLIP_BOLD", "yes")
	t.Setenv("OUTPUT_DIR", "/tmp/out")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Unknown_Vessel", cfg.VesselPlaceholder)
	assert.Equal(t, 10.0, cfg.SlipFontSize)
	assert.True(t, cfg.SlipBold)
	assert.Equal(t, filepath.Join("/tmp/out", "payslips"), cfg.PayslipDir())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLIP_FONT", "Calibri")
	t.Setenv("SLIP_FONT_SIZE", "11.5")
	t.Setenv("HTTP_MAX_UPLOAD_MB", "8")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Calibri", cfg.SlipFont)
	assert.Equal(t, 11.5, cfg.SlipFontSize)
	assert.Equal(t, 8, cfg.HTTPMaxUploadMB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestRequire(t *testing.T) {
	cfg := Config{}
	assert.NoError(t, cfg.Require("IMAP_HOST", "mail.example.com"))
	assert.EqualError(t, cfg.Require("IMAP_HOST", "  "), "missing required env var: IMAP_HOST")
}
