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

func mustComparator(t *testing.T, cur *Row, col int, op Operator, args []string, numeric bool) *comparator {
	t.Helper()
	c, err := newComparator(cur, col, op, args, numeric)
	if err != nil {
		t.Fatalf("newComparator(%s): %v", op, err)
	}
	return c
}

func TestEqualNumeric(t *testing.T) {
	var cur Row
	c := mustComparator(t, &cur, 0, OpEqual, []string{"3"}, true)
	cases := []struct {
		cell string
		want Verdict
	}{
		{"1", Below},
		{"3", Match},
		{"5", Above},
	}
	for _, tc := range cases {
		cur = Row{tc.cell}
		if got := c.Evaluate(); got != tc.want {
			t.Errorf("cell=%q: got %v want %v", tc.cell, got, tc.want)
		}
	}
}

func TestLessNeverReturnsBelow(t *testing.T) {
	var cur Row
	c := mustComparator(t, &cur, 0, OpLess, []string{"10"}, true)
	for _, cell := range []string{"1", "9", "10", "11"} {
		cur = Row{cell}
		if v := c.Evaluate(); v != Match && v != Above {
			t.Errorf("cell=%q: < verdict space must be {0,+1}, got %v", cell, v)
		}
	}
}

func TestBetweenNumeric(t *testing.T) {
	var cur Row
	c := mustComparator(t, &cur, 0, OpBetween, []string{"2", "4"}, true)
	cases := map[string]Verdict{"1": Below, "2": Match, "3": Match, "4": Match, "5": Above}
	for cell, want := range cases {
		cur = Row{cell}
		if got := c.Evaluate(); got != want {
			t.Errorf("between 2,4 cell=%q: got %v want %v", cell, got, want)
		}
	}
}

func TestBetweenDegenerateAlwaysAbove(t *testing.T) {
	var cur Row
	c := mustComparator(t, &cur, 0, OpBetween, []string{"9", "1"}, true)
	for _, cell := range []string{"-5", "0", "5", "100"} {
		cur = Row{cell}
		if v := c.Evaluate(); v != Above {
			t.Errorf("degenerate between must always report Above, cell=%q got %v", cell, v)
		}
	}
}

func TestInMembership(t *testing.T) {
	var cur Row
	c := mustComparator(t, &cur, 0, OpIn, []string{"2", "4", "6"}, true)
	cases := map[string]Verdict{"1": Below, "2": Match, "3": Below, "4": Match, "5": Below, "6": Match, "7": Above}
	for cell, want := range cases {
		cur = Row{cell}
		if got := c.Evaluate(); got != want {
			t.Errorf("in {2,4,6} cell=%q: got %v want %v", cell, got, want)
		}
	}
}

func TestInEmptySetIsDegenerate(t *testing.T) {
	var cur Row
	c := mustComparator(t, &cur, 0, OpIn, nil, true)
	cur = Row{"anything"}
	if v := c.Evaluate(); v != Above {
		t.Errorf("empty in-set must always report Above, got %v", v)
	}
}

func TestLikeNeverReturnsBelow(t *testing.T) {
	var cur Row
	c := mustComparator(t, &cur, 0, OpLike, []string{"^[AB]"}, false)
	cases := map[string]Verdict{"Alice": Match, "Bob": Match, "Carol": Above}
	for cell, want := range cases {
		cur = Row{cell}
		if got := c.Evaluate(); got != want {
			t.Errorf("like ^[AB] cell=%q: got %v want %v", cell, got, want)
		}
	}
}

func TestNumericFallsBackToStringWhenArgIsNotNumeric(t *testing.T) {
	var cur Row
	// numeric requested, but the argument doesn't parse as a number: must
	// fall back to byte-lexicographic comparison rather than erroring out.
	c := mustComparator(t, &cur, 0, OpEqual, []string{"abc"}, true)
	cur = Row{"abc"}
	if got := c.Evaluate(); got != Match {
		t.Errorf("string fallback equality: got %v want Match", got)
	}
}

func TestUnknownOperator(t *testing.T) {
	var cur Row
	if _, err := newComparator(&cur, 0, Operator("nope"), nil, false); !IsKind(err, KindUnknownOperator) {
		t.Fatalf("expected UnknownOperator, got %v", err)
	}
}

func TestTrueFalse(t *testing.T) {
	var cur Row
	truthy := mustComparator(t, &cur, 0, OpTrue, nil, false)
	falsy := mustComparator(t, &cur, 0, OpFalse, nil, false)
	cur = Row{"1"}
	if truthy.Evaluate() != Match {
		t.Error("true comparator should match a truthy cell")
	}
	if falsy.Evaluate() != Above {
		t.Error("false comparator should not match a truthy cell")
	}
	cur = Row{""}
	if truthy.Evaluate() != Above {
		t.Error("true comparator should not match an empty cell")
	}
	if falsy.Evaluate() != Match {
		t.Error("false comparator should match an empty cell")
	}
}
