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
	"os"
	"testing"
)

func TestNewSchemaViewRejectsEmptyColumns(t *testing.T) {
	if _, err := NewSchemaView(nil); !IsKind(err, KindMisconfigured) {
		t.Fatalf("expected Misconfigured for empty column list, got %v", err)
	}
}

func TestNewSchemaViewRejectsDuplicateColumns(t *testing.T) {
	if _, err := NewSchemaView([]string{"id", "id"}); !IsKind(err, KindMisconfigured) {
		t.Fatalf("expected Misconfigured for duplicate column name, got %v", err)
	}
}

func TestColumnIndex(t *testing.T) {
	v, err := NewSchemaView([]string{"id", "name", "age"})
	if err != nil {
		t.Fatal(err)
	}
	if v.ColumnIndex("name") != 1 {
		t.Errorf("expected name at index 1, got %d", v.ColumnIndex("name"))
	}
	if v.ColumnIndex("nope") != -1 {
		t.Errorf("expected -1 for unknown column, got %d", v.ColumnIndex("nope"))
	}
}

func TestPathRequiresServerOrFileList(t *testing.T) {
	v, _ := NewSchemaView([]string{"id"})
	if _, err := v.path(); !IsKind(err, KindMisconfigured) {
		t.Fatalf("expected Misconfigured when neither Server nor FileList is set, got %v", err)
	}
}

func TestPathPrefersServer(t *testing.T) {
	v, _ := NewSchemaView([]string{"id"})
	v.Server = "/tmp/people.csv"
	v.FileList = []string{"/tmp/a.csv", "/tmp/b.csv"}
	p, err := v.path()
	if err != nil || p != "/tmp/people.csv" {
		t.Fatalf("expected Server path, got %q err=%v", p, err)
	}
}

func TestPathFromFileListIsStableWithinProcess(t *testing.T) {
	v, _ := NewSchemaView([]string{"id"})
	v.FileList = []string{"/tmp/a.csv", "/tmp/b.csv", "/tmp/c.csv"}
	first, err := v.path()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		p, err := v.path()
		if err != nil || p != first {
			t.Fatalf("path() must be stable within one process, got %q then %q", first, p)
		}
	}
	want := v.FileList[os.Getpid()%len(v.FileList)]
	if first != want {
		t.Errorf("expected pid-modulo selection %q, got %q", want, first)
	}
}

func TestDelimiterPatternCachesAndRejectsInvalid(t *testing.T) {
	v, _ := NewSchemaView([]string{"id"})
	v.Delimiter = `\s*,\s*`
	re1, err := v.delimiterPattern()
	if err != nil {
		t.Fatal(err)
	}
	re2, _ := v.delimiterPattern()
	if re1 != re2 {
		t.Error("delimiterPattern must compile once and cache the result")
	}

	bad, _ := NewSchemaView([]string{"id"})
	bad.Delimiter = `(unterminated`
	if _, err := bad.delimiterPattern(); !IsKind(err, KindMisconfigured) {
		t.Fatalf("expected Misconfigured for invalid delimiter, got %v", err)
	}
}

func TestResolvedCacheSizeHonorsPerSchemaValue(t *testing.T) {
	v, _ := NewSchemaView([]string{"id"})
	v.CacheSize = 7
	if got := v.resolvedCacheSize(); got != 7 {
		t.Errorf("expected per-schema cache size 7, got %d", got)
	}
	v.CacheSize = 0
	if got := v.resolvedCacheSize(); got != Settings.CacheCapacityDefault {
		t.Errorf("expected default %d when unset, got %d", Settings.CacheCapacityDefault, got)
	}
	v.CacheSize = Settings.CacheCapacityMax + 1000
	if got := v.resolvedCacheSize(); got != Settings.CacheCapacityMax {
		t.Errorf("expected cache size capped at module max %d, got %d", Settings.CacheCapacityMax, got)
	}
}
