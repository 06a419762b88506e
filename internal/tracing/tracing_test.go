package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tuicore/internal/config"
)

func TestNoopSink_IsZeroOverhead(t *testing.T) {
	var s NoopSink
	ctx, turnID := s.BeginTurn(context.Background())
	require.Empty(t, turnID)

	phaseCtx := s.BeginPhase(ctx, PhaseCommit)
	require.Equal(t, ctx, phaseCtx)

	s.EndPhase(phaseCtx, PhaseCommit, map[string]any{"duration_ms": 1.0}, nil)
	s.EndTurn(ctx, nil)
}

func TestNewProvider_DisabledYieldsNoopTracer(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_StdoutExporterEnablesTracing(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1.0})
	require.NoError(t, err)
	require.True(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_RejectsUnknownExporter(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	require.Error(t, err)
}

// recordingSink counts calls to each TraceSink method, standing in for a
// concrete sink (otel or tracestore) in fan-out tests.
type recordingSink struct {
	begins, ends, phaseBegins, phaseEnds int
	lastErr                              error
}

func (r *recordingSink) BeginTurn(ctx context.Context) (context.Context, string) {
	r.begins++
	return ctx, "rec"
}
func (r *recordingSink) EndTurn(ctx context.Context, err error) {
	r.ends++
	r.lastErr = err
}
func (r *recordingSink) BeginPhase(ctx context.Context, phase Phase) context.Context {
	r.phaseBegins++
	return ctx
}
func (r *recordingSink) EndPhase(ctx context.Context, phase Phase, attrs map[string]any, err error) {
	r.phaseEnds++
}

func TestMultiSink_FansOutToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMultiSink(a, nil, b)

	ctx, _ := m.BeginTurn(context.Background())
	ctx = m.BeginPhase(ctx, PhaseRender)
	m.EndPhase(ctx, PhaseRender, nil, nil)
	m.EndTurn(ctx, errors.New("boom"))

	require.Equal(t, 1, a.begins)
	require.Equal(t, 1, b.begins)
	require.Equal(t, 1, a.phaseBegins)
	require.Equal(t, 1, a.phaseEnds)
	require.ErrorContains(t, a.lastErr, "boom")
}

func TestMultiSink_DropsNilSinks(t *testing.T) {
	m := NewMultiSink(nil, nil)
	require.Empty(t, m.sinks)
}

func TestAttributeFor_MapsGoTypesToAttributeKinds(t *testing.T) {
	require.Equal(t, "42", attributeFor("n", 42).Value.Emit())
	require.Equal(t, "true", attributeFor("b", true).Value.Emit())
	require.Equal(t, "x", attributeFor("s", "x").Value.Emit())
}
