package book

import (
	"container/heap"
)

// Merge returns a new book whose weight for every (key, move) is the sum of
// the inputs' weights. Inputs are not modified. The result is always in the
// accumulating state, whatever the inputs' states.
func Merge(books ...*Book) *Book {
	merged := New()
	for _, b := range books {
		merged.MergeFrom(b)
	}
	return merged
}

// MergeFrom adds every (key, move, weight) of other into b.
func (b *Book) MergeFrom(other *Book) {
	if other == nil {
		return
	}
	for key, e := range other.positions {
		for _, wm := range e.moves {
			b.Add(key, wm.Move, wm.Weight)
		}
	}
}

// RecordIterator yields records in (key, move) order.
type RecordIterator interface {
	// Next returns the next record, or nil if exhausted
	Next() *Record
}

// SliceIterator wraps a sorted slice of Records as an iterator
type SliceIterator struct {
	records []Record
	pos     int
}

// NewSliceIterator creates an iterator from a sorted slice of records
func NewSliceIterator(records []Record) *SliceIterator {
	return &SliceIterator{records: records}
}

// Next returns the next record, or nil if exhausted
func (s *SliceIterator) Next() *Record {
	if s.pos >= len(s.records) {
		return nil
	}
	rec := &s.records[s.pos]
	s.pos++
	return rec
}

// heapItem wraps an iterator with its current record for heap operations
type heapItem struct {
	iter    RecordIterator
	current *Record
	index   int // source index for stable ordering
}

// mergeHeap implements heap.Interface for k-way merge
type mergeHeap []*heapItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := *h[i].current, *h[j].current
	if a.Key != b.Key || a.Move != b.Move {
		return recordLess(a, b)
	}
	return h[i].index < h[j].index
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// KWayMergeIterator merges sorted record streams into one sorted stream,
// summing the weights of records that share (key, move).
type KWayMergeIterator struct {
	heap mergeHeap
}

// NewKWayMergeIterator creates a new k-way merge iterator from multiple sources
func NewKWayMergeIterator(iters []RecordIterator) *KWayMergeIterator {
	h := make(mergeHeap, 0, len(iters))
	for i, iter := range iters {
		if rec := iter.Next(); rec != nil {
			h = append(h, &heapItem{iter: iter, current: rec, index: i})
		}
	}
	heap.Init(&h)
	return &KWayMergeIterator{heap: h}
}

// Next returns the next (key, move) with its summed weight. ok is false when
// all sources are exhausted. The weight is not clamped.
func (m *KWayMergeIterator) Next() (key PositionKey, field uint16, weight uint64, ok bool) {
	if len(m.heap) == 0 {
		return 0, 0, 0, false
	}

	item := heap.Pop(&m.heap).(*heapItem)
	rec := *item.current
	weight = uint64(rec.Weight)
	m.advance(item)

	for len(m.heap) > 0 && m.heap[0].current.Key == rec.Key && m.heap[0].current.Move == rec.Move {
		other := heap.Pop(&m.heap).(*heapItem)
		weight = saturatingAdd64(weight, uint64(other.current.Weight))
		m.advance(other)
	}

	return rec.Key, rec.Move, weight, true
}

func (m *KWayMergeIterator) advance(item *heapItem) {
	if next := item.iter.Next(); next != nil {
		item.current = next
		heap.Push(&m.heap, item)
	}
}
