package main

import (
	"fmt"
	"strings"

	"github.com/tuannm99/relic/internal/sql/executor"
)

// printResult renders a Result as a pipe-separated table, grounded on
// the teacher's client printResult.
func printResult(res *executor.Result) {
	if len(res.Columns) == 0 {
		fmt.Printf("OK (%d affected)\n", res.Affected)
		return
	}

	cols := res.Columns
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	cellStrings := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cellStrings[r] = make([]string, len(cols))
		for i := range cols {
			s := "NULL"
			if i < len(row) && !row[i].IsNull() {
				s = row[i].String()
			}
			cellStrings[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Print(" | ")
			}
			fmt.Print(padRight(values[i], widths[i]))
		}
		fmt.Println()
	}

	printRow(cols)
	for i := range cols {
		if i > 0 {
			fmt.Print("-+-")
		}
		fmt.Print(strings.Repeat("-", widths[i]))
	}
	fmt.Println()
	for _, row := range cellStrings {
		printRow(row)
	}
	fmt.Printf("(%d rows)\n", int64(len(res.Rows)))
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
