package session

import (
	"github.com/vizdbg/bridge/internal/observability"
	"github.com/vizdbg/bridge/internal/protocol"
)

// queueSizeLimit bounds one kind's receive queue.
func queueSizeLimit(kind protocol.MessageKind) int {
	switch kind {
	// State snapshots: only the latest answer matters.
	case protocol.GetObservedSymbolsResponse:
		return 1
	// Repeatable commands: every one matters, bounded against a rapid-fire
	// UI.
	default:
		return 512
	}
}

// queueTable maps message kinds to FIFO queues of decoded messages awaiting
// consumption. It is owned by one Session and only touched under the session
// mutex.
type queueTable struct {
	queues map[protocol.MessageKind][]protocol.Message
}

func newQueueTable() *queueTable {
	return &queueTable{
		queues: make(map[protocol.MessageKind][]protocol.Message),
	}
}

// push applies the insertion policy: drop any queued entry equal to msg
// under its kind's predicate, append msg at the tail, then drop from the
// head until the kind's bound holds.
func (t *queueTable) push(msg protocol.Message) {
	kind := msg.Kind()
	queue := t.queues[kind]

	kept := queue[:0]
	for _, queued := range queue {
		if msg.Same(queued) {
			observability.RecordQueueEviction(kind.String(), "duplicate")
			continue
		}
		kept = append(kept, queued)
	}
	kept = append(kept, msg)

	limit := queueSizeLimit(kind)
	for len(kept) > limit {
		kept = kept[1:]
		observability.RecordQueueEviction(kind.String(), "overflow")
	}

	t.queues[kind] = kept
	observability.SetQueueDepth(kind.String(), len(kept))
}

// pop removes and returns the oldest queued message of the kind, or nil.
func (t *queueTable) pop(kind protocol.MessageKind) protocol.Message {
	queue := t.queues[kind]
	if len(queue) == 0 {
		return nil
	}
	msg := queue[0]
	t.queues[kind] = queue[1:]
	observability.SetQueueDepth(kind.String(), len(queue)-1)
	return msg
}

func (t *queueTable) depth(kind protocol.MessageKind) int {
	return len(t.queues[kind])
}
