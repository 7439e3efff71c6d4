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

import (
	"sort"
	"time"

	"github.com/jtolds/gls"
)

// handleOverheadBytes is the per-handle cost charged against the budget: a
// fixed estimate (read buffer, cache rows, fsnotify watch) rather than an
// exact accounting, the same simple-stupid approach the source's
// CacheManager takes for its own soft-reference entries.
const handleOverheadBytes = 64 * 1024

type budgetItem struct {
	h        *handle
	lastUsed time.Time
}

// HandleBudget is a process-wide soft memory budget over open file handles,
// generalizing the source's memory-budgeted CacheManager (there, a cache of
// computed column blobs; here, a cache of open handles) into a single
// goroutine serializing all tracking decisions.
type HandleBudget struct {
	opChan chan handleBudgetOp

	budget  int64
	current int64
	items   []budgetItem
	index   map[*handle]int
}

type handleBudgetOp struct {
	track    *handle
	untrack  *handle
	touch    *handle
	setBytes int64
	closeAll bool
	done     chan struct{}
}

// NewHandleBudget creates a budget and starts its background goroutine.
func NewHandleBudget(budgetBytes int64) *HandleBudget {
	hb := &HandleBudget{
		opChan: make(chan handleBudgetOp, 1024),
		budget: budgetBytes,
		index:  make(map[*handle]int),
	}
	gls.Go(hb.run)
	return hb
}

func (hb *HandleBudget) run() {
	for op := range hb.opChan {
		switch {
		case op.track != nil:
			hb.track(op.track)
		case op.untrack != nil:
			hb.untrack(op.untrack)
		case op.touch != nil:
			hb.touch(op.touch)
		case op.setBytes > 0:
			hb.budget = op.setBytes
			hb.evict()
		case op.closeAll:
			hb.closeAll()
		}
		if op.done != nil {
			close(op.done)
		}
	}
}

// Track registers a newly-opened handle with the budget, evicting the
// least-recently-used idle handle if this pushes usage over budget.
func (hb *HandleBudget) Track(h *handle) {
	done := make(chan struct{})
	hb.opChan <- handleBudgetOp{track: h, done: done}
	<-done
}

// Untrack removes a handle the caller is closing on its own (refcount hit
// zero through the ordinary release path).
func (hb *HandleBudget) Untrack(h *handle) {
	done := make(chan struct{})
	hb.opChan <- handleBudgetOp{untrack: h, done: done}
	<-done
}

// Touch records recent activity so the handle isn't picked first for
// eviction purely for being old.
func (hb *HandleBudget) Touch(h *handle) {
	hb.opChan <- handleBudgetOp{touch: h}
}

// SetBudget changes the budget at runtime and evicts if now over it.
func (hb *HandleBudget) SetBudget(budgetBytes int64) {
	done := make(chan struct{})
	hb.opChan <- handleBudgetOp{setBytes: budgetBytes, done: done}
	<-done
}

// CloseAll force-closes every tracked handle, used by the process-exit hook.
func (hb *HandleBudget) CloseAll() {
	done := make(chan struct{})
	hb.opChan <- handleBudgetOp{closeAll: true, done: done}
	<-done
}

func (hb *HandleBudget) track(h *handle) {
	if _, ok := hb.index[h]; ok {
		return
	}
	hb.index[h] = len(hb.items)
	hb.items = append(hb.items, budgetItem{h: h, lastUsed: time.Now()})
	hb.current += handleOverheadBytes
	hb.evict()
}

func (hb *HandleBudget) untrack(h *handle) {
	idx, ok := hb.index[h]
	if !ok {
		return
	}
	hb.removeAt(idx)
	hb.current -= handleOverheadBytes
}

func (hb *HandleBudget) touch(h *handle) {
	if idx, ok := hb.index[h]; ok {
		hb.items[idx].lastUsed = time.Now()
	}
}

func (hb *HandleBudget) removeAt(idx int) {
	removed := hb.items[idx].h
	last := len(hb.items) - 1
	hb.items[idx] = hb.items[last]
	hb.index[hb.items[idx].h] = idx
	hb.items = hb.items[:last]
	delete(hb.index, removed)
}

// evict closes idle handles oldest-first until usage is back under 75% of
// budget, matching the source's "free until 75% of budget" cleanup target.
func (hb *HandleBudget) evict() {
	if hb.current <= hb.budget {
		return
	}
	target := hb.budget * 75 / 100
	sort.Slice(hb.items, func(i, j int) bool { return hb.items[i].lastUsed.Before(hb.items[j].lastUsed) })

	survivors := make([]budgetItem, 0, len(hb.items))
	for _, item := range hb.items {
		if hb.current > target {
			item.h.mu.Lock()
			idle := item.h.refCount == 0 && item.h.f != nil
			item.h.mu.Unlock()
			if idle {
				item.h.closeNow()
				hb.current -= handleOverheadBytes
				continue
			}
		}
		survivors = append(survivors, item)
	}
	hb.items = survivors
	hb.index = make(map[*handle]int, len(hb.items))
	for idx, item := range hb.items {
		hb.index[item.h] = idx
	}
}

func (hb *HandleBudget) closeAll() {
	for _, item := range hb.items {
		item.h.mu.Lock()
		open := item.h.f != nil
		item.h.mu.Unlock()
		if open {
			item.h.closeNow()
		}
	}
	hb.items = nil
	hb.index = make(map[*handle]int)
	hb.current = 0
}
