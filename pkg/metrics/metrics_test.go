package metrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNoApplicationIsNoop(t *testing.T) {
	ctx := NewContext(context.Background(), nil)
	assert.Nil(t, ctx.Value(NewRelicContextKey))

	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", time.Second)
	RecordEvent(ctx, "event", map[string]interface{}{"key": "value"})

	txnCtx, end := StartTransaction(ctx, "background")
	assert.Equal(t, ctx, txnCtx)
	end()

	tracer := TraceMethodCall(ctx, "struct", "method")
	assert.Nil(t, tracer)
	tracer.AddAttribute("key", "value")
	tracer.OnError(errors.New("failure"))
	tracer.End()
}

func TestForwardedMessage(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	entry.Message = "subscription cancelled"
	assert.Equal(t, "subscription cancelled", forwardedMessage(entry))

	entry = entry.WithFields(logrus.Fields{
		"user":  "alice",
		"count": 2,
		"ratio": math.Inf(1),
	}).WithError(errors.New("unavailable"))
	entry.Message = "subscription cancelled"

	assert.Equal(
		t,
		`message="subscription cancelled", error="unavailable", data={"count":2,"ratio":"+Inf","user":"alice"}`,
		forwardedMessage(entry),
	)
}
