package integrity

import (
	"sync"

	"github.com/wingolabs/roundcore/pkg/types"
)

// Finding retention bounds: the ring keeps the most recent ringCapacity
// findings, reports expose the most recent reportWindow of those.
const (
	ringCapacity = 200
	reportWindow = 50
)

// findingLog is a bounded append-only ring of findings.
type findingLog struct {
	mu       sync.Mutex
	buf      []types.ValidationFinding
	capacity int
	window   int
}

func newFindingLog(capacity, window int) *findingLog {
	return &findingLog{
		buf:      make([]types.ValidationFinding, 0, capacity),
		capacity: capacity,
		window:   window,
	}
}

// append records a finding, evicting the oldest when full.
func (l *findingLog) append(f types.ValidationFinding) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, f)
	if len(l.buf) > l.capacity {
		l.buf = l.buf[len(l.buf)-l.capacity:]
	}
}

// recent returns up to the report window of findings, newest first.
func (l *findingLog) recent() []types.ValidationFinding {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.buf)
	count := n
	if count > l.window {
		count = l.window
	}

	out := make([]types.ValidationFinding, 0, count)
	for i := n - 1; i >= n-count; i-- {
		out = append(out, l.buf[i])
	}
	return out
}

// size returns the number of retained findings.
func (l *findingLog) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}
