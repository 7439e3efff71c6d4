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
	"io"
	"sync"
	"time"
)

// compiledPredicate pairs a column index with the comparator compiled for it.
type compiledPredicate struct {
	col int
	cmp *comparator
}

// CompiledQuery is what compileQuery produces: an ordered predicate list plus the
// index of the last comparator covering the leading sort prefix with no gap
// in constraint coverage. L == -1 means no early-termination leverage.
type CompiledQuery struct {
	predicates []compiledPredicate
	L          int
}

// orderedColumns walks sort-order columns first (in declared order), then
// every remaining column in physical order, per the compilation rule.
func orderedColumns(view *SchemaView) []string {
	seen := make(map[string]bool, len(view.Columns))
	ordered := make([]string, 0, len(view.Columns))
	for _, c := range view.SortOrder {
		if !seen[c] {
			ordered = append(ordered, c)
			seen[c] = true
		}
	}
	for _, c := range view.Columns {
		if !seen[c] {
			ordered = append(ordered, c)
			seen[c] = true
		}
	}
	return ordered
}

// compileQuery projects cond onto view's columns and builds the ordered
// comparator list plus the sorted-prefix index L, binding every comparator
// to cur so the iterator can mutate one reference cell per row.
func compileQuery(view *SchemaView, cond Condition, types PropertyTypes, cur *Row) (*CompiledQuery, error) {
	cols := orderedColumns(view)
	sortSet := make(map[string]bool, len(view.SortOrder))
	for _, c := range view.SortOrder {
		sortSet[c] = true
	}

	q := &CompiledQuery{L: -1}
	prefixOpen := true
	for _, name := range cols {
		isSort := sortSet[name]
		constrained := cond.Constrains(name)
		if constrained {
			colIdx := view.ColumnIndex(name)
			op := cond.Operator(name)
			args := cond.Arguments(name)
			numeric := false
			if pt := types.PropertyType(name); pt != nil {
				numeric = pt.IsNumeric()
			}
			cmp, err := newComparator(cur, colIdx, op, args, numeric)
			if err != nil {
				return nil, err
			}
			q.predicates = append(q.predicates, compiledPredicate{col: colIdx, cmp: cmp})
			if isSort && prefixOpen {
				q.L = len(q.predicates) - 1
			}
		}
		if isSort && !constrained {
			prefixOpen = false
		}
	}
	return q, nil
}

// Iterator is the visible product: a pull-driven, forward-only row stream
// over one Schema View.
type Iterator struct {
	mu sync.Mutex

	view  *SchemaView
	path  string
	h     *handle
	query *CompiledQuery
	cur   Row

	fingerprint  int64
	resumeOffset int64
	atStart      bool
	cacheIdx     int64

	closed          bool
	startTime       time.Time
	firstRowEmitted bool
}

// NewScan compiles cond against view, resolves and lazily opens the
// underlying file, and chooses a starting position. Misconfigured,
// UnknownOperator, and IOError on initial open all surface here, before any
// row is yielded.
func NewScan(view *SchemaView, cond Condition, types PropertyTypes) (*Iterator, error) {
	path, err := view.path()
	if err != nil {
		return nil, err
	}
	if _, err := view.delimiterPattern(); err != nil {
		return nil, err
	}

	h, err := GlobalRegistry.getOrCreate(path, view.resolvedCacheSize())
	if err != nil {
		return nil, err
	}

	// Acquire before opening: this holds the handle's live-iterator count
	// above zero while it opens, so the handle budget never mistakes a
	// brand-new handle for an idle eviction candidate.
	fingerprint := h.acquire()
	if err := h.ensureOpen(); err != nil {
		h.release()
		return nil, err
	}

	it := &Iterator{view: view, path: path, h: h, fingerprint: fingerprint, startTime: time.Now(), atStart: true}
	query, err := compileQuery(view, cond, types, &it.cur)
	if err != nil {
		h.release()
		return nil, err
	}
	it.query = query
	it.chooseStart()
	return it, nil
}

// chooseStart searches the shared cache backwards for a row the sorted
// prefix judges strictly below the target region; if found, scanning can
// resume from the cache without a seek. Otherwise the scan starts at file
// offset 0, which forces the first pull to seek and invalidate.
func (it *Iterator) chooseStart() {
	it.resumeOffset = 0
	if it.query.L < 0 {
		return
	}
	c := it.h.cache
	newest := c.NextSeq() - 1
	oldest := c.OldestResident()
	for seq := newest; seq >= oldest; seq-- {
		row, offset, ok := c.At(seq)
		if !ok {
			continue
		}
		if it.evalPrefixBelow(row) {
			it.cacheIdx = seq + 1
			it.resumeOffset = offset
			it.h.adopt(it.fingerprint)
			it.atStart = false
			return
		}
		// else: +1 on the prefix, or an exact match on the last sorted
		// comparator (treated as "keep going older" — see the
		// non-unique-sort-column note in the design ledger).
	}
}

// evalPrefixBelow evaluates comparators 0..L against row and reports
// whether any of them judged it strictly below the target region.
func (it *Iterator) evalPrefixBelow(row Row) bool {
	it.cur = row
	below := false
	for i := 0; i <= it.query.L; i++ {
		if it.query.predicates[i].cmp.Evaluate() == Below {
			below = true
		}
	}
	return below
}

// Next pulls the next matching row, or returns io.EOF once the scan has
// terminated (by exhaustion or by early termination on the sorted prefix).
func (it *Iterator) Next() (Row, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return nil, io.EOF
	}
	h := it.h

	for {
		if !h.fingerprintMatches(it.fingerprint) {
			if it.view.SkipFirstLine && it.atStart {
				_, next, eof, err := h.readRecordAt(0, it.view.recordSeparator())
				if err != nil {
					it.closeLocked()
					return nil, err
				}
				if !eof {
					it.resumeOffset = next
				}
			}
			it.atStart = false
			GlobalTelemetry.Emit("seek path=%s offset=%d", it.path, it.resumeOffset)
			h.cache.Invalidate()
			it.cacheIdx = 0
		}

		var row Row
		if cached, offset, ok := h.cache.At(it.cacheIdx); ok {
			row = cached
			it.resumeOffset = offset
		} else {
			h.adopt(it.fingerprint)
			rec, next, eof, err := h.readRecordAt(it.resumeOffset, it.view.recordSeparator())
			if err != nil {
				it.closeLocked()
				return nil, err
			}
			if eof {
				it.closeLocked()
				return nil, io.EOF
			}
			row = splitRecord(rec, it.view)
			it.resumeOffset = next
			seq := h.cache.Append(row, next)
			it.cacheIdx = seq
		}

		it.cur = it.withConstants(row)
		matched, terminate := it.evaluateAll()
		if terminate {
			it.closeLocked()
			return nil, io.EOF
		}
		it.cacheIdx++
		if matched {
			if !it.firstRowEmitted {
				GlobalTelemetry.Emit("first row elapsed=%s", time.Since(it.startTime))
				it.firstRowEmitted = true
			}
			return it.cur, nil
		}
	}
}

// withConstants extends row with the Schema View's constant-valued columns,
// so downstream row-to-object mapping sees them as additional fields.
func (it *Iterator) withConstants(row Row) Row {
	if len(it.view.ConstantValues) == 0 {
		return row
	}
	out := make(Row, 0, len(row)+len(it.view.ConstantValues))
	out = append(out, row...)
	out = append(out, it.view.ConstantValues...)
	return out
}

// evaluateAll walks predicates in order, stopping at the first non-zero
// verdict: a +1 on the sorted prefix terminates the scan outright, any
// other non-zero verdict just discards this candidate row.
func (it *Iterator) evaluateAll() (matched bool, terminate bool) {
	for i, p := range it.query.predicates {
		v := p.cmp.Evaluate()
		if v == Match {
			continue
		}
		if v == Above && i <= it.query.L {
			return false, true
		}
		return false, false
	}
	return true, false
}

// splitRecord splits rec into exactly len(view.Columns) fields using the
// compiled delimiter regex, a bounded split that merges excess separators
// into the last field and zero-fills any fields that never showed up.
func splitRecord(rec string, view *SchemaView) Row {
	re, _ := view.delimiterPattern() // validated at construction/NewScan
	n := len(view.Columns)
	parts := re.Split(rec, n)
	row := make(Row, n)
	copy(row, parts)
	return row
}

// Close releases this iterator's hold on the shared handle. Safe to call
// more than once, and safe to call without having exhausted the scan.
func (it *Iterator) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closeLocked()
}

func (it *Iterator) closeLocked() {
	if it.closed {
		return
	}
	it.closed = true
	GlobalTelemetry.Emit("scan complete path=%s elapsed=%s", it.path, time.Since(it.startTime))
	it.h.release()
}
