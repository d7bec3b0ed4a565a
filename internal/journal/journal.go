package journal

import (
	"sync"
	"time"
)

const DefaultCapacity = 500

// Record is one line of the operator message log.
type Record struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Journal keeps the most recent records in arrival order.
type Journal struct {
	mu       sync.Mutex
	capacity int
	records  []Record
	dropped  uint64
}

func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{capacity: capacity, records: make([]Record, 0, capacity)}
}

// Append adds a record, evicting the oldest once full.
func (j *Journal) Append(at time.Time, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.records) == j.capacity {
		copy(j.records, j.records[1:])
		j.records = j.records[:len(j.records)-1]
		j.dropped++
	}
	j.records = append(j.records, Record{Time: at, Text: text})
}

func (j *Journal) Snapshot() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// Dropped counts records evicted since the last Clear.
func (j *Journal) Dropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = j.records[:0]
	j.dropped = 0
}

// ErrorPrefix starts every record written through Report.
const ErrorPrefix = "error: "

// Report logs an operator-facing failure as a record, so a journal can
// stand in for the error dialog.
func (j *Journal) Report(message string) {
	j.Append(time.Now(), ErrorPrefix+message)
}
