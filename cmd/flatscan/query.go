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

// cmd/flatscan is the simplest possible query-construction collaborator the
// core storage package requires from outside: a one-line
// `col op arg [AND col op arg]*` grammar, kept strictly out of the storage
// package so its external-collaborator boundary stays intact.
package main

import (
	"fmt"
	"strings"

	"github.com/cph-oss/flatscan/storage"
)

// lineQuery is a fixed map from column to operator/arguments, built once by
// parseQuery per REPL line and then handed to storage.NewScan as a
// storage.Condition.
type lineQuery struct {
	ops  map[string]storage.Operator
	args map[string][]string
}

func (q *lineQuery) Constrains(col string) bool           { _, ok := q.ops[col]; return ok }
func (q *lineQuery) Operator(col string) storage.Operator { return q.ops[col] }
func (q *lineQuery) Arguments(col string) []string        { return q.args[col] }

var knownOps = map[string]storage.Operator{
	"=":       storage.OpEqual,
	"<":       storage.OpLess,
	"<=":      storage.OpLessEq,
	">":       storage.OpGreater,
	">=":      storage.OpGreEq,
	"between": storage.OpBetween,
	"in":      storage.OpIn,
	"like":    storage.OpLike,
	"true":    storage.OpTrue,
	"false":   storage.OpFalse,
}

// parseQuery parses "col op arg[,arg]* [AND col op arg...]*" into a
// lineQuery. Arguments for `between` are "lo,hi"; for `in` a comma-separated
// set; `true`/`false` take none.
func parseQuery(line string) (*lineQuery, error) {
	q := &lineQuery{ops: map[string]storage.Operator{}, args: map[string][]string{}}
	clauses := strings.Split(line, " AND ")
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		fields := strings.Fields(clause)
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed clause %q: want \"col op [arg]\"", clause)
		}
		col := fields[0]
		opTok := strings.ToLower(fields[1])
		op, ok := knownOps[opTok]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q in clause %q", fields[1], clause)
		}
		var args []string
		if len(fields) > 2 {
			raw := strings.Join(fields[2:], " ")
			args = splitArgs(raw)
		}
		q.ops[col] = op
		q.args[col] = args
	}
	return q, nil
}

func splitArgs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// cliPropertyType is a trivial storage.PropertyType backed by a bool.
type cliPropertyType bool

func (t cliPropertyType) IsNumeric() bool { return bool(t) }

// cliPropertyTypes resolves numeric-ness from the --numeric flag's column
// set; anything not named there is treated as a string column.
type cliPropertyTypes map[string]bool

func (m cliPropertyTypes) PropertyType(col string) storage.PropertyType {
	return cliPropertyType(m[col])
}
