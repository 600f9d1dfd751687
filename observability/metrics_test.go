package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"vester/core/types"
)

type stubEvent struct {
	evt *types.Event
}

func (e stubEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e stubEvent) Event() *types.Event { return e.evt }

func TestEmitCountsEvents(t *testing.T) {
	m := NewEngineMetrics(prometheus.NewRegistry())

	m.Emit(stubEvent{evt: &types.Event{Type: "grant.created"}})
	m.Emit(stubEvent{evt: &types.Event{Type: "grant.created"}})
	m.Emit(stubEvent{evt: &types.Event{Type: "grant.cancelled"}})

	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("grant.created")); got != 2 {
		t.Fatalf("expected 2 created events, got %v", got)
	}
	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("grant.cancelled")); got != 1 {
		t.Fatalf("expected 1 cancelled event, got %v", got)
	}
}

func TestEmitTracksAmounts(t *testing.T) {
	m := NewEngineMetrics(prometheus.NewRegistry())

	m.Emit(stubEvent{evt: &types.Event{
		Type: "grant.redeemed",
		Attributes: map[string]string{
			"asset":  "vest1qqqq",
			"amount": "2500",
		},
	}})
	m.Emit(stubEvent{evt: &types.Event{
		Type: "grant.redeemed",
		Attributes: map[string]string{
			"asset":  "vest1qqqq",
			"amount": "5000",
		},
	}})
	// Malformed amounts are ignored rather than poisoning the series.
	m.Emit(stubEvent{evt: &types.Event{
		Type: "grant.redeemed",
		Attributes: map[string]string{
			"asset":  "vest1qqqq",
			"amount": "not-a-number",
		},
	}})

	if got := testutil.ToFloat64(m.amountsTotal.WithLabelValues("grant.redeemed", "vest1qqqq")); got != 7500 {
		t.Fatalf("expected 7500 units, got %v", got)
	}
	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("grant.redeemed")); got != 3 {
		t.Fatalf("expected 3 events counted, got %v", got)
	}
}
