package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WithoutExporterStillRecordsSpans(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), Options{Service: "fulfillment", Env: "test"})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "UC.CreateOrder")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.IsRecording())
}
