package heap

import "github.com/crytic/symheap/events"

// HeapEvents defines event emitters for a Heap.
type HeapEvents struct {
	// Forked emits events when the Heap is forked into a new execution state.
	Forked events.EventEmitter[HeapForkedEvent]
}

// HeapForkedEvent describes an event where a Heap was forked.
type HeapForkedEvent struct {
	// Parent represents the heap which was forked. It keeps its contents under a fresh ownership token.
	Parent *Heap

	// Child represents the newly created heap.
	Child *Heap
}
