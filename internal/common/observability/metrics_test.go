package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInstrument_RecordsOutcome(t *testing.T) {
	reg := promclient.NewRegistry()
	o, err := NewWithRegisterer("meme-workers-test", reg)
	require.NoError(t, err)
	defer o.Shutdown(context.Background())

	require.NoError(t, o.Instrument(context.Background(), "parse_message", func(ctx context.Context) (string, error) {
		return "rejected", nil
	}))

	boom := errors.New("boom")
	err = o.Instrument(context.Background(), "generate_meme", func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	families, err := reg.Gather()
	require.NoError(t, err)

	statuses := map[string]bool{}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "jobs_processed") {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" {
					statuses[l.GetValue()] = true
				}
			}
		}
	}
	assert.True(t, statuses["rejected"])
	assert.True(t, statuses["error"])
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(context.Background(), "x", "ok")
		_ = o.Shutdown(context.Background())
	})
}

func TestInstrument_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	o, err := NewWithRegisterer("meme-workers-test", promclient.NewRegistry(), sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer o.Shutdown(context.Background())

	var traceID string
	err = o.Instrument(context.Background(), "generate_meme", func(ctx context.Context) (string, error) {
		traceID = TraceID(ctx)
		return "", errors.New("upstream down")
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "tool.generate_meme", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)
	assert.NotEmpty(t, traceID)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
