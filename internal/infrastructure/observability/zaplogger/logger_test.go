package zaplogger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

func TestLogger_CarriesFieldsThroughWith(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core), observability.F("component", "test"))

	l.With(observability.F("use_case", "order.create")).Info("use_case_done",
		observability.F("status", "OK"),
		observability.Err(errors.New("boom")),
	)

	entries := logs.FilterMessage("use_case_done").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "test", fields["component"])
	assert.Equal(t, "order.create", fields["use_case"])
	assert.Equal(t, "OK", fields["status"])
	assert.Equal(t, "boom", fields["error"])
}
