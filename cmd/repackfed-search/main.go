// Command repackfed-search looks up records in a collection written by
// repackfed-scrape.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pevans/repackfed/repack"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	dataPath := flag.String("data", getEnv("REPACKFED_OUTPUT", "data.json"), "Path to the JSON collection (REPACKFED_OUTPUT)")
	flag.Parse()

	records, err := repack.LoadCollection(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// A query on the command line skips the prompt
	query := strings.Join(flag.Args(), " ")
	if query == "" {
		query, err = prompt(os.Stdin, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read search term: %v\n", err)
			os.Exit(1)
		}
	}

	printResults(os.Stdout, repack.Search(query, records))
}

// prompt asks for a search term and returns the trimmed line.
func prompt(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter search term: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
