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

// Operator is one of the small, closed set of predicate operators the
// comparator factory understands.
type Operator string

const (
	OpEqual   Operator = "="
	OpLess    Operator = "<"
	OpLessEq  Operator = "<="
	OpGreater Operator = ">"
	OpGreEq   Operator = ">="
	OpBetween Operator = "between"
	OpIn      Operator = "in"
	OpLike    Operator = "like"
	OpTrue    Operator = "true"
	OpFalse   Operator = "false"
)

// Condition is the query-construction contract consumed from outside the
// package. Flatscan never constructs one; a caller building a query over a
// Schema View implements it (cmd/flatscan has a minimal example).
type Condition interface {
	// Constrains reports whether the query restricts the named column.
	Constrains(column string) bool
	// Operator returns the operator the query applies to the named column.
	// Only called when Constrains(column) is true.
	Operator(column string) Operator
	// Arguments returns the operator's argument(s) as raw strings, in the
	// representation the column's PropertyType can parse.
	Arguments(column string) []string
}

// PropertyType is resolved per column from outside the package; class and
// property metadata resolution itself is not this package's concern.
type PropertyType interface {
	IsNumeric() bool
}

// PropertyTypes resolves a PropertyType by column name.
type PropertyTypes interface {
	PropertyType(column string) PropertyType
}
