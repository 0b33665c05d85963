// Package util
//
// This file provides a priority queue with key based access.
//
// The implementation combines a binary heap with a hash map. Items are ordered
// by priority (lowest first) and can also be found, updated or removed by key.
// The transport uses it to track request deadlines: the key is the correlation
// id and the priority is the deadline in unix nanoseconds, so the item at the
// top of the heap is always the next request to expire.
//
//   - O(log n) for priority operations (Push, Pop, Update)
//   - O(1) for key-based lookups and existence checks
//   - O(log n) for key-based removal
//
// This implementation is not thread-safe, callers must synchronize access.
//
// Example usage:
//
//	deadlines := NewMapHeap[string]()
//	deadlines.AddItem("a1b2", time.Now().Add(time.Second).UnixNano())
//
//	for {
//	    next, ok := deadlines.Peek()
//	    if !ok || next.Priority > time.Now().UnixNano() {
//	        break
//	    }
//	    heap.Pop(deadlines)
//	}
package util

import (
	"container/heap"
	"fmt"
	"strconv"
)

// Item is an entry of the MapHeap
type Item[K comparable] struct {
	Key      K     // Unique identifier for the item
	Priority int64 // Priority used for ordering in the heap
	index    int   // Index in the heap, maintained by the heap package
}

func (i *Item[K]) String() string {
	return "{Key: " + fmt.Sprint(i.Key) + ", Priority: " + strconv.FormatInt(i.Priority, 10) + "}"
}

// MapHeap implements a min priority queue with key-based access
type MapHeap[K comparable] struct {
	items    []*Item[K]     // The actual heap slice
	itemsMap map[K]*Item[K] // Map for O(1) access by key
}

// NewMapHeap creates a new, initialized MapHeap
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{
		items:    make([]*Item[K], 0),
		itemsMap: make(map[K]*Item[K]),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (mh *MapHeap[K]) Len() int { return len(mh.items) }

// Less compares items by priority (part of heap.Interface)
func (mh *MapHeap[K]) Less(i, j int) bool {
	return mh.items[i].Priority < mh.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap[K]) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (mh *MapHeap[K]) Push(x interface{}) {
	n := len(mh.items)
	item := x.(*Item[K])
	item.index = n
	mh.items = append(mh.items, item)
	mh.itemsMap[item.Key] = item
}

// Pop removes and returns the minimum item (part of heap.Interface)
func (mh *MapHeap[K]) Pop() interface{} {
	old := mh.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	mh.items = old[:n-1]
	delete(mh.itemsMap, item.Key)
	return item
}

// AddItem adds a new item to the queue or updates the priority of an existing one
func (mh *MapHeap[K]) AddItem(key K, priority int64) {
	// Check if item already exists
	if item, exists := mh.itemsMap[key]; exists {
		item.Priority = priority
		heap.Fix(mh, item.index)
		return
	}

	heap.Push(mh, &Item[K]{
		Key:      key,
		Priority: priority,
	})
}

// RemoveByKey removes an item by its key and returns its priority
func (mh *MapHeap[K]) RemoveByKey(key K) (int64, bool) {
	item, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}

	heap.Remove(mh, item.index)
	return item.Priority, true
}

// Peek returns the minimum item without removing it
func (mh *MapHeap[K]) Peek() (*Item[K], bool) {
	if len(mh.items) == 0 {
		return nil, false
	}
	return mh.items[0], true
}

// PopItem removes and returns the minimum item
func (mh *MapHeap[K]) PopItem() (*Item[K], bool) {
	if len(mh.items) == 0 {
		return nil, false
	}
	return heap.Pop(mh).(*Item[K]), true
}

// Contains checks if a key exists in the queue
func (mh *MapHeap[K]) Contains(key K) bool {
	_, exists := mh.itemsMap[key]
	return exists
}

// GetByKey retrieves an item by its key without removing it
func (mh *MapHeap[K]) GetByKey(key K) (*Item[K], bool) {
	item, exists := mh.itemsMap[key]
	return item, exists
}

// Clear removes all items
func (mh *MapHeap[K]) Clear() {
	mh.items = mh.items[:0]
	clear(mh.itemsMap)
}
