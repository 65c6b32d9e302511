package runtime

import "github.com/roach88/sdb/internal/behavior"

// ChangeRecord is one observed mutation: a state of a context changed.
//
// Records for the same (context, state) pair may repeat within a tick;
// each is processed once.
type ChangeRecord struct {
	Seq    int64
	Handle Handle
	State  string
}

// changeBuffer is the ordered buffer of pending change records.
//
// Records are appended in mutation order and drained all at once, so
// records appended while a drained batch is processed wait for the next
// drain.
type changeBuffer struct {
	records []ChangeRecord
}

func newChangeBuffer() *changeBuffer {
	return &changeBuffer{records: make([]ChangeRecord, 0, 64)}
}

// Append adds a record at the back.
func (b *changeBuffer) Append(rec ChangeRecord) {
	b.records = append(b.records, rec)
}

// Drain returns every buffered record and leaves the buffer empty.
// The returned slice is owned by the caller.
func (b *changeBuffer) Drain() []ChangeRecord {
	out := b.records
	b.records = make([]ChangeRecord, 0, cap(out))
	return out
}

// Len returns the number of buffered records.
func (b *changeBuffer) Len() int {
	return len(b.records)
}

// factoryQueue is a FIFO of factories awaiting assembly.
// A factory is queued at most once at a time.
type factoryQueue struct {
	items  []*behavior.Factory
	queued map[*behavior.Factory]bool
}

func newFactoryQueue() *factoryQueue {
	return &factoryQueue{queued: make(map[*behavior.Factory]bool)}
}

// Push queues f unless it is already queued.
func (q *factoryQueue) Push(f *behavior.Factory) {
	if q.queued[f] {
		return
	}
	q.queued[f] = true
	q.items = append(q.items, f)
}

// Pop removes and returns the front factory.
func (q *factoryQueue) Pop() (*behavior.Factory, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	f := q.items[0]

	// Clear the slot so the backing array does not pin the factory.
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	delete(q.queued, f)
	return f, true
}

// Len returns the number of queued factories.
func (q *factoryQueue) Len() int {
	return len(q.items)
}
