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

import "testing"

func TestRowCacheRingEviction(t *testing.T) {
	c := NewRowCache(3)
	for i := 0; i < 5; i++ {
		c.Append(Row{string(rune('a' + i))}, int64(i+1)*10)
	}
	if c.Len() != 3 {
		t.Fatalf("cache must hold at most 3 rows, got %d", c.Len())
	}
	if _, _, ok := c.At(0); ok {
		t.Error("row 0 should have been evicted by the ring")
	}
	if _, _, ok := c.At(1); ok {
		t.Error("row 1 should have been evicted by the ring")
	}
	row, offset, ok := c.At(4)
	if !ok || row[0] != "e" {
		t.Errorf("row 4 should still be resident, got %v ok=%v", row, ok)
	}
	if offset != 50 {
		t.Errorf("row 4's trailing offset should be 50, got %d", offset)
	}
}

func TestRowCacheInvalidateClearsEverything(t *testing.T) {
	c := NewRowCache(2)
	c.Append(Row{"x"}, 10)
	c.Append(Row{"y"}, 20)
	c.Invalidate()
	if c.Len() != 0 {
		t.Fatalf("invalidate must reset length to 0, got %d", c.Len())
	}
	if _, _, ok := c.At(0); ok {
		t.Error("row 0 must not be resident after invalidate")
	}
	seq := c.Append(Row{"z"}, 30)
	if seq != 0 {
		t.Errorf("insertion sequence must restart at 0 after invalidate, got %d", seq)
	}
}

func TestRowCacheOldestResident(t *testing.T) {
	c := NewRowCache(2)
	if c.OldestResident() != 0 {
		t.Fatal("empty cache's oldest resident index should be 0")
	}
	for i := 0; i < 5; i++ {
		c.Append(Row{"r"}, int64(i))
	}
	if got := c.OldestResident(); got != 3 {
		t.Errorf("with capacity 2 and 5 appends, oldest resident should be seq 3, got %d", got)
	}
}
