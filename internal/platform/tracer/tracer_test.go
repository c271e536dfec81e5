package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"roster/internal/platform/tracer"
)

func TestNoopTracer(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanPass, tracer.String(tracer.AttrPassID, "p1"))
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Int(tracer.AttrTotal, 3))
	span.AddEvent(tracer.EventMissingImage, tracer.String(tracer.AttrUserID, "42"))
	span.End(errors.New("boom"))
}

func TestOTelTracerWithNoopProvider(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	ctx, span := tr.Start(context.Background(), tracer.SpanFile,
		tracer.String(tracer.AttrObject, "42.csv"),
		tracer.Bool("flag", true),
		tracer.Duration("elapsed", 150*time.Millisecond),
	)
	require.NotNil(t, ctx)
	span.SetAttributes(tracer.String(tracer.AttrAction, "inserted"))
	span.End(nil)
}

func TestAttributeConstructors(t *testing.T) {
	assert.Equal(t, tracer.Attribute{Key: "k", Value: "v"}, tracer.String("k", "v"))
	assert.Equal(t, tracer.Attribute{Key: "n", Value: 3}, tracer.Int("n", 3))
	assert.Equal(t, int64(150), tracer.Duration("d", 150*time.Millisecond).Value)
}
