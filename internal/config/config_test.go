package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidate_NegativeFPSCap(t *testing.T) {
	c := Defaults()
	c.FPSCap = -1
	require.Error(t, Validate(c))
}

func TestValidate_ZeroFPSCapAllowed(t *testing.T) {
	c := Defaults()
	c.FPSCap = 0
	require.NoError(t, Validate(c))
}

func TestValidate_NonPositiveMaxEventBytes(t *testing.T) {
	c := Defaults()
	c.MaxEventBytes = 0
	require.Error(t, Validate(c))
}

func TestValidate_NonPositiveMaxDrawlistBytes(t *testing.T) {
	c := Defaults()
	c.MaxDrawlistBytes = 0
	require.Error(t, Validate(c))
}

func TestValidate_NonPositiveMaxFramesInFlight(t *testing.T) {
	c := Defaults()
	c.MaxFramesInFlight = 0
	require.Error(t, Validate(c))
}

func TestValidate_NegativeRootPadding(t *testing.T) {
	c := Defaults()
	c.RootPadding = -1
	require.Error(t, Validate(c))
}

func TestValidateBreakpoints_NonMonotonic(t *testing.T) {
	err := ValidateBreakpoints(BreakpointsConfig{SmMax: 100, MdMax: 90, LgMax: 200})
	require.Error(t, err)
}

func TestValidateBreakpoints_NonPositiveSmMax(t *testing.T) {
	err := ValidateBreakpoints(BreakpointsConfig{SmMax: 0, MdMax: 10, LgMax: 20})
	require.Error(t, err)
}

func TestValidateBreakpoints_Default(t *testing.T) {
	require.NoError(t, ValidateBreakpoints(DefaultBreakpoints()))
}

func TestValidateDrawlistValidate_NegativeCacheCap(t *testing.T) {
	err := ValidateDrawlistValidate(DrawlistValidateConfig{EncodedStringCacheCap: -1})
	require.Error(t, err)
}

func TestValidateTracing_InvalidExporter(t *testing.T) {
	err := ValidateTracing(TracingConfig{Exporter: "carrier-pigeon"})
	require.Error(t, err)
}

func TestValidateTracing_OTLPRequiresEndpoint(t *testing.T) {
	err := ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp", OTLPEndpoint: ""})
	require.Error(t, err)
}

func TestValidateTracing_SampleRateOutOfRange(t *testing.T) {
	require.Error(t, ValidateTracing(TracingConfig{SampleRate: -0.1}))
	require.Error(t, ValidateTracing(TracingConfig{SampleRate: 1.1}))
}

func TestTurnBudget_Uncapped(t *testing.T) {
	c := Defaults()
	c.FPSCap = 0
	require.Equal(t, int64(0), int64(c.TurnBudget()))
}

func TestTurnBudget_Capped(t *testing.T) {
	c := Defaults()
	c.FPSCap = 60
	require.Greater(t, int64(c.TurnBudget()), int64(0))
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "fps_cap: 60")
}
