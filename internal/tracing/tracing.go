// Package tracing wires per-turn OpenTelemetry spans around the commit,
// layout, and render phases of internal/app's turn pipeline. It mirrors
// the provider/sink shape used elsewhere in this codebase for
// orchestration tracing, adapted to the core's turn/commit/layout/render
// phase boundaries instead of command handling.
package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/tuicore/internal/config"
)

// Phase names one of the turn pipeline's traced sub-spans.
type Phase string

const (
	PhaseTurn   Phase = "turn"
	PhaseCommit Phase = "commit"
	PhaseLayout Phase = "layout"
	PhaseRender Phase = "render"
)

// TraceSink receives turn phase boundaries. internal/app calls Begin/End
// around each phase of every turn; implementations must tolerate being
// called from a single goroutine only (the turn pipeline is not
// reentrant) and must not block it for long.
type TraceSink interface {
	// BeginTurn starts a new turn span and returns a context carrying it,
	// along with the turn's correlation id.
	BeginTurn(ctx context.Context) (context.Context, string)
	// EndTurn closes the turn span opened by BeginTurn.
	EndTurn(ctx context.Context, err error)
	// BeginPhase starts a child span for one turn sub-phase.
	BeginPhase(ctx context.Context, phase Phase) context.Context
	// EndPhase closes the span opened by BeginPhase, recording attrs.
	EndPhase(ctx context.Context, phase Phase, attrs map[string]any, err error)
}

// Provider manages the OpenTelemetry tracer provider backing an OtelSink.
// Disabled configurations yield a zero-overhead no-op tracer, matching
// the pattern used by the orchestration tracer this package is adapted
// from.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// NewProvider builds a Provider from cfg. A disabled config returns a
// Provider wrapping a no-op tracer.
func NewProvider(cfg config.TracingConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
	case "otlp":
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		exporter, err = otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
	case "none", "":
		exporter = nil
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}

	res := resource.NewSchemaless(attribute.String("service.name", "tuicore"))

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Provider{provider: provider, tracer: provider.Tracer("tuicore"), enabled: true}, nil
}

// Enabled reports whether this Provider holds a live (non-noop) tracer.
func (p *Provider) Enabled() bool { return p.enabled }

// Shutdown flushes and tears down the underlying tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// NoopSink is a TraceSink with zero overhead, the default when no tracing
// or tracestore sink has been configured.
type NoopSink struct{}

func (NoopSink) BeginTurn(ctx context.Context) (context.Context, string) { return ctx, "" }
func (NoopSink) EndTurn(ctx context.Context, err error)                  {}
func (NoopSink) BeginPhase(ctx context.Context, phase Phase) context.Context { return ctx }
func (NoopSink) EndPhase(ctx context.Context, phase Phase, attrs map[string]any, err error) {}

type turnSpanKey struct{}

// OtelSink is a TraceSink backed by a Provider's tracer. Each turn becomes
// one root span with one child span per traced phase.
type OtelSink struct {
	tracer trace.Tracer
}

// NewOtelSink returns a TraceSink that emits otel spans via p's tracer.
func NewOtelSink(p *Provider) *OtelSink {
	return &OtelSink{tracer: p.tracer}
}

func (s *OtelSink) BeginTurn(ctx context.Context) (context.Context, string) {
	turnID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "turn", trace.WithAttributes(attribute.String("turn.id", turnID)))
	return context.WithValue(ctx, turnSpanKey{}, span), turnID
}

func (s *OtelSink) EndTurn(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	recordOutcome(span, err)
	span.End()
}

func (s *OtelSink) BeginPhase(ctx context.Context, phase Phase) context.Context {
	ctx, _ = s.tracer.Start(ctx, string(phase))
	return ctx
}

func (s *OtelSink) EndPhase(ctx context.Context, phase Phase, attrs map[string]any, err error) {
	span := trace.SpanFromContext(ctx)
	for k, v := range attrs {
		span.SetAttributes(attributeFor(k, v))
	}
	recordOutcome(span, err)
	span.End()
}

func recordOutcome(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func attributeFor(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case bool:
		return attribute.Bool(key, val)
	case string:
		return attribute.String(key, val)
	default:
		return attribute.String(key, fmt.Sprintf("%v", val))
	}
}

// MultiSink fans a turn's phase boundaries out to every sink it wraps, in
// order. Used to drive both the OtelSink and a tracestore sink from the
// same turn pipeline without internal/app knowing about either concretely.
type MultiSink struct {
	sinks []TraceSink
}

// NewMultiSink returns a TraceSink that fans out to every non-nil sink
// given.
func NewMultiSink(sinks ...TraceSink) *MultiSink {
	filtered := make([]TraceSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

func (m *MultiSink) BeginTurn(ctx context.Context) (context.Context, string) {
	turnID := uuid.NewString()
	for _, s := range m.sinks {
		ctx, _ = s.BeginTurn(ctx)
	}
	return ctx, turnID
}

func (m *MultiSink) EndTurn(ctx context.Context, err error) {
	for _, s := range m.sinks {
		s.EndTurn(ctx, err)
	}
}

func (m *MultiSink) BeginPhase(ctx context.Context, phase Phase) context.Context {
	for _, s := range m.sinks {
		ctx = s.BeginPhase(ctx, phase)
	}
	return ctx
}

func (m *MultiSink) EndPhase(ctx context.Context, phase Phase, attrs map[string]any, err error) {
	for _, s := range m.sinks {
		s.EndPhase(ctx, phase, attrs, err)
	}
}
