package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTracing_DisabledReturnsNoopTracer(t *testing.T) {
	tracer, cleanup, err := SetupTracing(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	defer cleanup()

	_, span := tracer.Start(context.Background(), "test")
	span.End()
	assert.False(t, span.SpanContext().IsValid(), "a disabled setup must hand out no-op spans")
}

func TestLoadTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PUBSUB_TRACING_ENABLED", "true")
	t.Setenv("PUBSUB_TRACING_SERVICE_NAME", "talkio-test")
	t.Setenv("PUBSUB_TRACING_ZIPKIN_URL", "http://zipkin:9411/api/v2/spans")

	config := LoadTracingConfigFromEnv()
	assert.True(t, config.Enabled)
	assert.Equal(t, "talkio-test", config.ServiceName)
	assert.Equal(t, "http://zipkin:9411/api/v2/spans", config.ZipkinURL)
}

func TestLoadTracingConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("PUBSUB_TRACING_ENABLED", "")
	t.Setenv("PUBSUB_TRACING_SERVICE_NAME", "")
	t.Setenv("PUBSUB_TRACING_ZIPKIN_URL", "")

	config := LoadTracingConfigFromEnv()
	assert.False(t, config.Enabled)
	assert.Equal(t, "talkio", config.ServiceName)
}

func TestWatermillBridgeWithTracer_DeliveryStillWorks(t *testing.T) {
	tracer, cleanup, err := SetupTracing(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	defer cleanup()

	bridge := NewWatermillBridgeWithTracer(tracer)
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	require.NoError(t, bridge.Subscribe(ctx, "traced.topic", func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	}))

	require.NoError(t, bridge.Publish(ctx, Message{
		Topic:   "traced.topic",
		UserID:  "alice",
		Payload: []byte(`{"k":"v"}`),
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "alice", msg.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for traced message")
	}
}
