// Package runtime wires the upload pipeline together: the pending-item queue,
// the event mailbox, the confirmation slot, and the orchestrator owning the
// worker lifecycle. It contains no webhook or persistence logic.
package runtime

import (
	"sync"

	"vrc-uploader/domain"
)

// UploadQueue is the FIFO of pending upload items. The presentation side
// enqueues, the single upload worker dequeues. Clear exists so cancellation
// can drop the remaining work atomically.
type UploadQueue struct {
	mu    sync.Mutex
	items []domain.UploadItem
}

func NewUploadQueue() *UploadQueue {
	return &UploadQueue{}
}

func (q *UploadQueue) Enqueue(item domain.UploadItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

func (q *UploadQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TryDequeue pops the oldest item. ok is false when the queue is empty,
// which is how the worker knows the run is over.
func (q *UploadQueue) TryDequeue() (domain.UploadItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.UploadItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Clear drops every pending item. Called by cancellation so no stale work
// resumes if a new run starts later.
func (q *UploadQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
