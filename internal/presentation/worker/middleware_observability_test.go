package workerpresentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/observabilitytest"
)

func TestWithEventContext(t *testing.T) {
	rec := observabilitytest.New()
	ctx, logger := WithEventContext(context.Background(), rec.Logger(), "order.created", "", map[string]string{
		"order_id": "o1",
		"empty":    "",
	})
	require.Same(t, logger, logctx.From(ctx))

	logger.Info("relayed")
	entries := rec.Entries("relayed")
	require.Len(t, entries, 1)
	f := entries[0].Fields
	assert.Equal(t, "order.created", f["event"])
	assert.Equal(t, "o1", f["order_id"])
	assert.NotEmpty(t, f["event_id"])
	assert.NotContains(t, f, "empty")
	assert.NotContains(t, f, "trace_id")
}
