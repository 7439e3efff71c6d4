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
	"regexp"
	"sort"
	"strings"

	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// Verdict is the three-valued result a comparator returns for one cell.
type Verdict int

const (
	Below Verdict = -1
	Match Verdict = 0
	Above Verdict = 1
)

// comparator is a closure over a reference cell holding the current row; the
// iterator mutates *cur before each evaluation so the same comparator object
// observes successive rows as the scan proceeds (no per-row allocation).
type comparator struct {
	cur  *Row
	col  int
	op   Operator
	eval func(cell string) Verdict
}

// Evaluate reads the current row through the shared reference cell and
// applies the compiled operator to the cell at col.
func (c *comparator) Evaluate() Verdict {
	row := *c.cur
	if c.col < 0 || c.col >= len(row) {
		// column not present in this row shape: never blocks the scan, and
		// never offers early-termination leverage either.
		return Match
	}
	return c.eval(row[c.col])
}

// newComparator builds a comparator for (numeric, col, op, args) per the
// operator table. numeric is honored only when every argument also parses
// as a number; otherwise byte-lexicographic string semantics are used.
func newComparator(cur *Row, col int, op Operator, args []string, numeric bool) (*comparator, error) {
	if numeric {
		for _, a := range args {
			if _, err := decimal.NewFromString(a); err != nil {
				numeric = false
				break
			}
		}
	}

	switch op {
	case OpEqual:
		return newScalarComparator(cur, col, op, args, numeric, func(cmp int) Verdict {
			switch {
			case cmp < 0:
				return Below
			case cmp > 0:
				return Above
			default:
				return Match
			}
		})
	case OpLess:
		return newScalarComparator(cur, col, op, args, numeric, func(cmp int) Verdict {
			if cmp < 0 {
				return Match
			}
			return Above
		})
	case OpLessEq:
		return newScalarComparator(cur, col, op, args, numeric, func(cmp int) Verdict {
			if cmp <= 0 {
				return Match
			}
			return Above
		})
	case OpGreater:
		return newScalarComparator(cur, col, op, args, numeric, func(cmp int) Verdict {
			if cmp > 0 {
				return Match
			}
			return Below
		})
	case OpGreEq:
		return newScalarComparator(cur, col, op, args, numeric, func(cmp int) Verdict {
			if cmp >= 0 {
				return Match
			}
			return Below
		})
	case OpBetween:
		return newBetweenComparator(cur, col, args, numeric)
	case OpIn:
		return newInComparator(cur, col, args, numeric)
	case OpLike:
		return newLikeComparator(cur, col, args)
	case OpTrue:
		return &comparator{cur: cur, col: col, op: op, eval: func(cell string) Verdict {
			if isTruthy(cell) {
				return Match
			}
			return Above
		}}, nil
	case OpFalse:
		return &comparator{cur: cur, col: col, op: op, eval: func(cell string) Verdict {
			if !isTruthy(cell) {
				return Match
			}
			return Above
		}}, nil
	default:
		return nil, unknownOperator(op)
	}
}

func isTruthy(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// compareValues returns -1/0/+1 comparing cell to arg, numerically when
// numeric is true, otherwise byte-lexicographically.
func compareValues(cell, arg string, numeric bool) int {
	if numeric {
		cd, err1 := decimal.NewFromString(strings.TrimSpace(cell))
		ad, err2 := decimal.NewFromString(strings.TrimSpace(arg))
		if err1 == nil && err2 == nil {
			return cd.Cmp(ad)
		}
		// cell itself doesn't parse: fall through to string compare so a
		// malformed numeric cell doesn't panic the scan.
	}
	return strings.Compare(cell, arg)
}

func newScalarComparator(cur *Row, col int, op Operator, args []string, numeric bool, verdict func(cmp int) Verdict) (*comparator, error) {
	if len(args) == 0 {
		return nil, misconfigured(string(op) + " requires an argument")
	}
	arg := args[0]
	return &comparator{cur: cur, col: col, op: op, eval: func(cell string) Verdict {
		return verdict(compareValues(cell, arg, numeric))
	}}, nil
}

func newBetweenComparator(cur *Row, col int, args []string, numeric bool) (*comparator, error) {
	if len(args) != 2 {
		return nil, misconfigured("between requires exactly two arguments")
	}
	lo, hi := args[0], args[1]
	if compareValues(lo, hi, numeric) > 0 {
		GlobalTelemetry.Warn("DegeneratePredicate: between lo=%q > hi=%q", lo, hi)
		return &comparator{cur: cur, col: col, op: OpBetween, eval: func(string) Verdict { return Above }}, nil
	}
	return &comparator{cur: cur, col: col, op: OpBetween, eval: func(cell string) Verdict {
		if compareValues(cell, lo, numeric) < 0 {
			return Below
		}
		if compareValues(cell, hi, numeric) > 0 {
			return Above
		}
		return Match
	}}, nil
}

// newInComparator loads the argument set into a btree for O(log n)
// membership and min/max lookups, presorting the slice first so the tree
// is built from an already-ordered sequence.
func newInComparator(cur *Row, col int, args []string, numeric bool) (*comparator, error) {
	if len(args) == 0 {
		GlobalTelemetry.Warn("DegeneratePredicate: in with empty argument set")
		return &comparator{cur: cur, col: col, op: OpIn, eval: func(string) Verdict { return Above }}, nil
	}
	sorted := append([]string(nil), args...)
	less := func(a, b string) bool { return compareValues(a, b, numeric) < 0 }
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	tr := btree.NewG(8, less)
	for _, a := range sorted {
		tr.ReplaceOrInsert(a)
	}
	min, _ := tr.Min()
	max, _ := tr.Max()

	return &comparator{cur: cur, col: col, op: OpIn, eval: func(cell string) Verdict {
		if compareValues(cell, min, numeric) < 0 {
			return Below
		}
		if compareValues(cell, max, numeric) > 0 {
			return Above
		}
		found := false
		tr.AscendGreaterOrEqual(cell, func(item string) bool {
			found = compareValues(item, cell, numeric) == 0
			return false
		})
		if found {
			return Match
		}
		return Below
	}}, nil
}

func newLikeComparator(cur *Row, col int, args []string) (*comparator, error) {
	if len(args) == 0 {
		return nil, misconfigured("like requires a pattern argument")
	}
	re, err := regexp.Compile(args[0])
	if err != nil {
		return nil, misconfigured("invalid like pattern: " + err.Error())
	}
	return &comparator{cur: cur, col: col, op: OpLike, eval: func(cell string) Verdict {
		// like can never report Below: a non-match only ever means "not
		// this row", never "not yet in the target region".
		if re.MatchString(cell) {
			return Match
		}
		return Above
	}}, nil
}
