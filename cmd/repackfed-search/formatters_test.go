package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pevans/repackfed/repack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPrintResults verifies the numbered block format
func TestPrintResults(t *testing.T) {
	first := repack.NewRecord("Great Game")
	first.Genre = []string{"Action", "RPG"}
	first.Companies = []string{"Studio A"}
	first.OriginalSize = "20 GB"
	first.RepackSize = "9 GB"
	second := repack.NewRecord("Other Game")

	var buf bytes.Buffer
	printResults(&buf, []repack.Record{first, second})

	expected := `Result 1:
Title: Great Game
Genres/Tags: Action, RPG
Company: Studio A
Repack Size: 9 GB
Original Size: 20 GB
-------------
Result 2:
Title: Other Game
Genres/Tags: (none)
Company: (none)
Repack Size: (none)
Original Size: (none)
-------------
`
	assert.Equal(t, expected, buf.String())
}

// TestPrintResults_Empty verifies the no-match message
func TestPrintResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []repack.Record{})

	assert.Equal(t, "No results found.\n", buf.String())
}

// TestPrintResults_LongTitle verifies wide titles are truncated by cell width
func TestPrintResults_LongTitle(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []repack.Record{repack.NewRecord(strings.Repeat("界", 80))})

	line := strings.Split(buf.String(), "\n")[1]
	title := strings.TrimPrefix(line, "Title: ")
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.LessOrEqual(t, len([]rune(title)), 52)
}

// TestPrompt verifies the prompt text and trimming
func TestPrompt(t *testing.T) {
	var out bytes.Buffer

	query, err := prompt(strings.NewReader("  repack \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "repack", query)
	assert.Equal(t, "Enter search term: ", out.String())
}

// TestPrompt_NoNewline verifies input ending without a newline is accepted
func TestPrompt_NoNewline(t *testing.T) {
	query, err := prompt(strings.NewReader("rpg"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "rpg", query)
}
