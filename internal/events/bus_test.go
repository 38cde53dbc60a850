package events

import (
	"fmt"
	"testing"

	"github.com/mtlprog/wealth/internal/domain"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus(10)
	var got []string
	bus.Subscribe(func(e domain.Event) { got = append(got, e.AssetID) })

	bus.Publish(
		domain.Event{Type: domain.EventPaymentProcessed, AssetID: "a"},
		domain.Event{Type: domain.EventLiabilityPaidOff, AssetID: "b"},
	)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("delivered = %v, want [a b]", got)
	}
}

func TestRecentIsBounded(t *testing.T) {
	bus := NewBus(3)
	for i := range 5 {
		bus.Publish(domain.Event{Type: domain.EventRefreshFailed, AssetID: fmt.Sprint(i)})
	}

	recent := bus.Recent()
	if len(recent) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(recent))
	}
	if recent[0].AssetID != "2" || recent[2].AssetID != "4" {
		t.Errorf("Recent = %v, want events 2..4", recent)
	}
}

func TestRecentReturnsCopy(t *testing.T) {
	bus := NewBus(0)
	bus.Publish(domain.Event{AssetID: "x"})

	r := bus.Recent()
	r[0].AssetID = "changed"
	if bus.Recent()[0].AssetID != "x" {
		t.Error("Recent exposed the internal buffer")
	}
}
