package syncer

import "sync"

// ProgressFunc receives aggregate progress across all transfers.
type ProgressFunc func(loaded, total int64)

// progress aggregates per-transfer byte counts into one monotonic stream
// bounded by the sum of declared sizes.
//
// Transports may report transfer-encoded byte counts. When a transfer
// announces a total that differs from the entry's declared size, its deltas
// are rescaled by size/announced. Each transfer is credited at most its
// declared size and is topped up to exactly that size when it completes, so
// the stream always ends at total. The intermediate values are an estimate.
type progress struct {
	mu     sync.Mutex
	loaded int64
	total  int64
	emit   ProgressFunc
}

type transfer struct {
	p        *progress
	size     int64
	credited int64
	lastRaw  int64
}

func newProgress(total int64, emit ProgressFunc) *progress {
	return &progress{total: total, emit: emit}
}

func (p *progress) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.send()
}

func (p *progress) track(size int64) *transfer {
	return &transfer{p: p, size: size}
}

// observe is a transport.ProgressFunc.
func (t *transfer) observe(loaded, announced int64) {
	p := t.p
	p.mu.Lock()
	defer p.mu.Unlock()

	delta := loaded - t.lastRaw
	if delta <= 0 {
		return
	}
	t.lastRaw = loaded

	if announced > 0 && announced != t.size {
		delta = int64(float64(delta) * float64(t.size) / float64(announced))
	}
	if t.credit(delta) {
		p.send()
	}
}

// done credits whatever the transfer has not yet reported.
func (t *transfer) done() {
	p := t.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.credit(t.size - t.credited) {
		p.send()
	}
}

// credit must be called with p.mu held.
func (t *transfer) credit(n int64) bool {
	if remaining := t.size - t.credited; n > remaining {
		n = remaining
	}
	if n <= 0 {
		return false
	}
	t.credited += n
	t.p.loaded += n
	return true
}

// send must be called with p.mu held; callbacks are therefore serialized.
func (p *progress) send() {
	if p.emit != nil {
		p.emit(p.loaded, p.total)
	}
}
