package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSaveBreakpoints_NewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SaveBreakpoints(path, BreakpointsConfig{SmMax: 70, MdMax: 110, LgMax: 220}))

	var doc map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &doc))

	bp, ok := doc["breakpoints"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 70, bp["sm_max"])
	require.Equal(t, 110, bp["md_max"])
	require.Equal(t, 220, bp["lg_max"])
}

func TestSaveBreakpoints_PreservesOtherSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte("fps_cap: 30\n# a comment\nroot_padding: 2\n"), 0o600))

	require.NoError(t, SaveBreakpoints(path, DefaultBreakpoints()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Equal(t, 30, doc["fps_cap"])
	require.Equal(t, 2, doc["root_padding"])
	require.Contains(t, string(data), "a comment")
}

func TestSaveBreakpoints_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SaveBreakpoints(path, BreakpointsConfig{SmMax: 1, MdMax: 2, LgMax: 3}))
	require.NoError(t, SaveBreakpoints(path, BreakpointsConfig{SmMax: 10, MdMax: 20, LgMax: 30}))

	var doc map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &doc))

	bp := doc["breakpoints"].(map[string]any)
	require.Equal(t, 10, bp["sm_max"])
}

func TestSaveTracing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := TracingConfig{Enabled: true, Exporter: "otlp", OTLPEndpoint: "localhost:4317", SampleRate: 0.5}
	require.NoError(t, SaveTracing(path, cfg))

	var doc map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &doc))

	tr := doc["tracing"].(map[string]any)
	require.Equal(t, true, tr["enabled"])
	require.Equal(t, "otlp", tr["exporter"])
}

func TestSaveDrawlistValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SaveDrawlistValidate(path, DrawlistValidateConfig{
		Params:                false,
		ReuseOutputBuffer:     false,
		EncodedStringCacheCap: 0,
	}))

	var doc map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &doc))

	dv := doc["drawlist_validate"].(map[string]any)
	require.Equal(t, false, dv["params"])
}

func TestWriteAtomic_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	require.NoError(t, writeAtomic(path, []byte("fps_cap: 1\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "fps_cap: 1\n", string(data))
}
