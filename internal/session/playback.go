package session

import "sync"

// PlaybackQueue is the unbounded queue between the provider receive loop and
// the audio device. Pushes never block, so a slow device cannot stall
// protocol processing; dropping happens explicitly via Clear on interrupt or
// stop, never via bounded blocking.
type PlaybackQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	chunks []string
	closed bool
}

// NewPlaybackQueue creates an empty queue
func NewPlaybackQueue() *PlaybackQueue {
	q := &PlaybackQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends one base64 PCM16 chunk. No-op after Close.
func (q *PlaybackQueue) Push(chunk string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.chunks = append(q.chunks, chunk)
	q.cond.Signal()
}

// Pop blocks until a chunk is available or the queue is closed. Returns
// ok=false only when the queue is closed and drained.
func (q *PlaybackQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.chunks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.chunks) == 0 {
		return "", false
	}
	chunk := q.chunks[0]
	q.chunks = q.chunks[1:]
	return chunk, true
}

// Clear drops every queued chunk immediately
func (q *PlaybackQueue) Clear() {
	q.mu.Lock()
	q.chunks = nil
	q.mu.Unlock()
}

// Len returns the number of queued chunks
func (q *PlaybackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Close wakes the consumer and stops accepting pushes
func (q *PlaybackQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.chunks = nil
	q.cond.Broadcast()
	q.mu.Unlock()
}
