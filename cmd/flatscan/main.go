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
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cph-oss/flatscan/storage"
)

const (
	newprompt    = "\033[32m>\033[0m "
	resultprompt = "\033[31m=\033[0m "
)

func main() {
	var (
		file       = flag.String("file", "", "path to the delimited flat file (required)")
		columns    = flag.String("columns", "", "comma-separated column names in physical order (required)")
		sortOrder  = flag.String("sort", "", "comma-separated sort-order prefix")
		delimiter  = flag.String("delimiter", `\s*,\s*`, "field delimiter regex")
		separator  = flag.String("separator", "\n", "record separator")
		skipHeader = flag.Bool("skip-header", false, "discard the first record")
		numeric    = flag.String("numeric", "", "comma-separated columns with numeric semantics")
		monitor    = flag.Bool("monitor", false, "emit telemetry to stderr")
		cacheSize  = flag.Int("cache-size", 0, "per-schema row cache capacity (0 = process default)")
	)
	flag.Parse()

	if *file == "" || *columns == "" {
		fmt.Fprintln(os.Stderr, "flatscan: -file and -columns are required")
		flag.Usage()
		os.Exit(2)
	}

	if err := storage.ChangeSettings(*monitor, 0, 0, ""); err != nil {
		fmt.Fprintln(os.Stderr, "flatscan:", err)
		os.Exit(1)
	}

	view, err := storage.NewSchemaView(splitCSVList(*columns))
	if err != nil {
		fmt.Fprintln(os.Stderr, "flatscan:", err)
		os.Exit(1)
	}
	view.Server = *file
	view.Delimiter = *delimiter
	view.RecordSeparator = *separator
	view.SkipFirstLine = *skipHeader
	view.SortOrder = splitCSVList(*sortOrder)
	view.CacheSize = *cacheSize

	types := cliPropertyTypes{}
	for _, c := range splitCSVList(*numeric) {
		types[c] = true
	}

	fmt.Print(`flatscan Copyright (C) 2026  Flatscan Contributors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)
	repl(view, types)
}

func splitCSVList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// repl is a direct structural port of the teacher's scm.Repl: same history
// file, interrupt/EOF handling and anti-panic wrapper, adapted to the query
// line grammar instead of Scheme.
func repl(view *storage.SchemaView, types storage.PropertyTypes) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".flatscan-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runQuery(view, types, line)
	}
}

func runQuery(view *storage.SchemaView, types storage.PropertyTypes, line string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("panic:", r)
		}
	}()

	q, err := parseQuery(line)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	it, err := storage.NewScan(view, q, types)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer it.Close()

	count := 0
	for {
		row, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Print(resultprompt)
		fmt.Println(strings.Join(row, "\t"))
		count++
	}
	fmt.Printf("(%d rows)\n", count)
}
