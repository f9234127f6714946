package session

import (
	"fmt"
	"testing"

	"github.com/vizdbg/bridge/internal/protocol"
	"github.com/vizdbg/bridge/internal/testutil/testlog"
)

func TestQueuePushPopFIFO(t *testing.T) {
	testlog.Start(t)
	q := newQueueTable()
	q.push(protocol.PlotRequest{VariableName: "a"})
	q.push(protocol.PlotRequest{VariableName: "b"})
	q.push(protocol.PlotRequest{VariableName: "c"})

	for _, want := range []string{"a", "b", "c"} {
		msg := q.pop(protocol.PlotBufferRequest)
		if msg == nil {
			t.Fatalf("queue drained early, want %q", want)
		}
		if got := msg.(protocol.PlotRequest).VariableName; got != want {
			t.Fatalf("pop order: got %q want %q", got, want)
		}
	}
	if msg := q.pop(protocol.PlotBufferRequest); msg != nil {
		t.Fatalf("expected empty queue, got %#v", msg)
	}
}

func TestQueueDuplicateMovesToTail(t *testing.T) {
	testlog.Start(t)
	q := newQueueTable()
	q.push(protocol.PlotRequest{VariableName: "a"})
	q.push(protocol.PlotRequest{VariableName: "b"})
	q.push(protocol.PlotRequest{VariableName: "a"})

	if depth := q.depth(protocol.PlotBufferRequest); depth != 2 {
		t.Fatalf("depth after duplicate: got %d want 2", depth)
	}
	for _, want := range []string{"b", "a"} {
		if got := q.pop(protocol.PlotBufferRequest).(protocol.PlotRequest).VariableName; got != want {
			t.Fatalf("pop order: got %q want %q", got, want)
		}
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	testlog.Start(t)
	q := newQueueTable()
	const total = 600
	for i := 0; i < total; i++ {
		q.push(protocol.PlotRequest{VariableName: fmt.Sprintf("v%03d", i)})
	}

	limit := queueSizeLimit(protocol.PlotBufferRequest)
	if depth := q.depth(protocol.PlotBufferRequest); depth != limit {
		t.Fatalf("depth after overflow: got %d want %d", depth, limit)
	}
	// The survivors are the newest `limit` entries, still oldest-first.
	first := q.pop(protocol.PlotBufferRequest).(protocol.PlotRequest)
	if want := fmt.Sprintf("v%03d", total-limit); first.VariableName != want {
		t.Fatalf("oldest survivor: got %q want %q", first.VariableName, want)
	}
}

func TestQueueSnapshotKindKeepsLatestOnly(t *testing.T) {
	testlog.Start(t)
	if limit := queueSizeLimit(protocol.GetObservedSymbolsResponse); limit != 1 {
		t.Fatalf("snapshot limit: got %d want 1", limit)
	}

	q := newQueueTable()
	q.push(protocol.ObservedSymbolsResponse{Symbols: []string{"old"}})
	q.push(protocol.ObservedSymbolsResponse{Symbols: []string{"new"}})

	if depth := q.depth(protocol.GetObservedSymbolsResponse); depth != 1 {
		t.Fatalf("depth: got %d want 1", depth)
	}
	msg := q.pop(protocol.GetObservedSymbolsResponse).(protocol.ObservedSymbolsResponse)
	if len(msg.Symbols) != 1 || msg.Symbols[0] != "new" {
		t.Fatalf("expected latest snapshot, got %q", msg.Symbols)
	}
}

func TestQueueKindsIsolated(t *testing.T) {
	testlog.Start(t)
	q := newQueueTable()
	q.push(protocol.PlotRequest{VariableName: "a"})
	q.push(protocol.ObservedSymbolsResponse{Symbols: []string{"a"}})

	if msg := q.pop(protocol.PlotBufferRequest); msg == nil {
		t.Fatalf("plot request missing")
	}
	if msg := q.pop(protocol.GetObservedSymbolsResponse); msg == nil {
		t.Fatalf("observed response missing")
	}
}
