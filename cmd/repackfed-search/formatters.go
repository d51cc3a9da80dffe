package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pevans/repackfed/repack"
)

// Titles wider than this many terminal cells are truncated.
const maxTitleWidth = 100

// printResults prints matches in the numbered block format.
func printResults(w io.Writer, results []repack.Record) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	for i, result := range results {
		fmt.Fprintf(w, "Result %d:\n", i+1)
		fmt.Fprintf(w, "Title: %s\n", runewidth.Truncate(result.Title, maxTitleWidth, "..."))
		fmt.Fprintf(w, "Genres/Tags: %s\n", formatList(result.Genre))
		fmt.Fprintf(w, "Company: %s\n", formatList(result.Companies))
		fmt.Fprintf(w, "Repack Size: %s\n", orNone(result.RepackSize))
		fmt.Fprintf(w, "Original Size: %s\n", orNone(result.OriginalSize))
		fmt.Fprintln(w, "-------------")
	}
}

func formatList(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}
