/*
Copyright (C) 2026  Flatscan Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import "sync"

// Row is a fixed-width vector of string fields. Missing trailing fields are
// empty strings; extra fields are merged into the last one by splitRecord's
// bounded split.
type Row []string

// RowCache is a bounded ring buffer of recently-read rows shared by every
// iterator scanning the same handle. Rather than track a physical ring index
// directly, each appended row is given a monotonically increasing logical
// sequence number; a row is still resident exactly when its sequence number
// is one of the most recent `capacity` assigned. This lets an iterator's
// cache position be a plain comparable integer instead of a wrapped index.
// Alongside each row the cache keeps the file offset immediately following
// it, so an iterator resuming from a cache slot (or falling off the end of
// the resident window) knows exactly where in the file to continue reading
// instead of re-seeking to the start.
type RowCache struct {
	mu       sync.Mutex
	capacity int
	rows     []Row
	offsets  []int64
	seqAt    []int64
	nextSeq  int64
}

// NewRowCache creates a cache holding at most capacity rows.
func NewRowCache(capacity int) *RowCache {
	if capacity < 1 {
		capacity = 1
	}
	c := &RowCache{capacity: capacity, rows: make([]Row, capacity), offsets: make([]int64, capacity), seqAt: make([]int64, capacity)}
	for i := range c.seqAt {
		c.seqAt[i] = -1
	}
	return c
}

// Invalidate marks every slot empty and resets the insertion sequence to
// zero. Every seek must be paired with a call to this.
func (c *RowCache) Invalidate() {
	c.mu.Lock()
	for i := range c.seqAt {
		c.seqAt[i] = -1
	}
	c.nextSeq = 0
	c.mu.Unlock()
}

// Append writes row into the slot the current insertion sequence maps to,
// evicting whatever row (if any) previously lived there, records the file
// offset immediately following row, and returns the sequence number
// assigned to row.
func (c *RowCache) Append(row Row, nextOffset int64) int64 {
	c.mu.Lock()
	seq := c.nextSeq
	slot := int(seq % int64(c.capacity))
	c.rows[slot] = row
	c.offsets[slot] = nextOffset
	c.seqAt[slot] = seq
	c.nextSeq++
	c.mu.Unlock()
	return seq
}

// At returns the row at logical sequence seq and the file offset immediately
// following it, if seq is still resident (not yet evicted by the ring and
// not past the insertion point).
func (c *RowCache) At(seq int64) (Row, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < 0 || seq >= c.nextSeq {
		return nil, 0, false
	}
	slot := int(seq % int64(c.capacity))
	if c.seqAt[slot] != seq {
		return nil, 0, false
	}
	return c.rows[slot], c.offsets[slot], true
}

// NextSeq returns the sequence number that will be assigned to the next
// appended row; it doubles as "cache is exhausted when index == NextSeq()".
func (c *RowCache) NextSeq() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextSeq
}

// OldestResident returns the lowest sequence number still in the cache.
func (c *RowCache) OldestResident() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextSeq <= int64(c.capacity) {
		return 0
	}
	return c.nextSeq - int64(c.capacity)
}

// Len reports how many rows are currently resident (at most capacity).
func (c *RowCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextSeq > int64(c.capacity) {
		return c.capacity
	}
	return int(c.nextSeq)
}
