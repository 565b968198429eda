package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/clientpulse/pkg/config"
)

func TestNilReceiverIsSafe(t *testing.T) {
	var m *RunMetrics

	m.ObserveStage("aggregate", time.Second)
	m.AddOrders(10)
	m.AddSkipped(1)
	m.SetCustomers(5)
	if err := m.Push(context.Background()); err != nil {
		t.Fatalf("nil Push: %v", err)
	}
}

func TestRecordingWithoutGateway(t *testing.T) {
	m := NewRunMetrics(config.MetricsConfig{JobName: "test"})

	m.ObserveStage("aggregate", 250*time.Millisecond)
	m.ObserveStage("", time.Millisecond) // empty stage label normalized
	m.AddOrders(100)
	m.AddSkipped(3)
	m.SetCustomers(42)

	if err := m.Push(context.Background()); err != nil {
		t.Fatalf("Push without gateway must be a no-op: %v", err)
	}
}
