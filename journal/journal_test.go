package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vester/core/types"
)

type testEvent struct {
	evt *types.Event
}

func (e testEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e testEvent) Event() *types.Event { return e.evt }

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	jnl, err := Open(filepath.Join(t.TempDir(), "events.journal"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { jnl.Close() })
	jnl.SetNowFunc(func() time.Time { return time.Unix(1_000_000, 0).UTC() })
	return jnl
}

func TestAppendAssignsSequences(t *testing.T) {
	jnl := openTestJournal(t)

	for want := uint64(1); want <= 3; want++ {
		seq, err := jnl.Append(testEvent{evt: &types.Event{
			Type:       "grant.created",
			Attributes: map[string]string{"id": "0"},
		}})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if seq != want {
			t.Fatalf("expected sequence %d, got %d", want, seq)
		}
	}
	n, err := jnl.Len()
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
}

func TestAppendRejectsPayloadlessEvents(t *testing.T) {
	jnl := openTestJournal(t)
	if _, err := jnl.Append(bareEvent{}); err == nil {
		t.Fatal("expected payloadless append to fail")
	}
	if _, err := jnl.Append(testEvent{}); err == nil {
		t.Fatal("expected nil-payload append to fail")
	}
	if n, _ := jnl.Len(); n != 0 {
		t.Fatalf("rejected appends left %d records", n)
	}
}

func TestReplayInOrder(t *testing.T) {
	jnl := openTestJournal(t)
	kinds := []string{"grant.created", "grant.redeemed", "grant.cancelled"}
	for _, kind := range kinds {
		if _, err := jnl.Append(testEvent{evt: &types.Event{
			Type:       kind,
			Attributes: map[string]string{"id": "7"},
		}}); err != nil {
			t.Fatalf("append %s: %v", kind, err)
		}
	}

	var replayed []Record
	if err := jnl.Replay(func(r Record) error {
		replayed = append(replayed, r)
		return nil
	}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replayed) != len(kinds) {
		t.Fatalf("expected %d records, got %d", len(kinds), len(replayed))
	}
	for i, r := range replayed {
		if r.Sequence != uint64(i+1) {
			t.Fatalf("record %d: sequence %d", i, r.Sequence)
		}
		if r.Type != kinds[i] {
			t.Fatalf("record %d: type %s, want %s", i, r.Type, kinds[i])
		}
		if r.Attributes["id"] != "7" {
			t.Fatalf("record %d: attributes %v", i, r.Attributes)
		}
		if !r.RecordedAt.Equal(time.Unix(1_000_000, 0).UTC()) {
			t.Fatalf("record %d: timestamp %s", i, r.RecordedAt)
		}
	}
}

func TestReplayStopsOnCallbackError(t *testing.T) {
	jnl := openTestJournal(t)
	for i := 0; i < 3; i++ {
		if _, err := jnl.Append(testEvent{evt: &types.Event{Type: "grant.created"}}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	stop := errors.New("stop")
	var seen int
	err := jnl.Replay(func(Record) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if seen != 2 {
		t.Fatalf("walk continued after error, saw %d", seen)
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")
	jnl, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := jnl.Append(testEvent{evt: &types.Event{Type: "grant.created"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := jnl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := jnl.Append(testEvent{evt: &types.Event{Type: "grant.created"}}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if n, _ := reopened.Len(); n != 1 {
		t.Fatalf("expected 1 record after reopen, got %d", n)
	}
	// Sequences continue where the previous session stopped.
	seq, err := reopened.Append(testEvent{evt: &types.Event{Type: "grant.redeemed"}})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if seq != 2 {
		t.Fatalf("expected sequence 2, got %d", seq)
	}
}
