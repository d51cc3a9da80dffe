package repack

import "strings"

// Search returns the records whose title contains query, or whose genre list
// holds query exactly. Both comparisons ignore case. Collection order is
// preserved and an empty slice is returned when nothing matches.
func Search(query string, records []Record) []Record {
	results := []Record{}
	q := strings.ToLower(query)

	for _, record := range records {
		if strings.Contains(strings.ToLower(record.Title), q) || hasGenre(record, query) {
			results = append(results, record)
		}
	}

	return results
}

// hasGenre checks if any genre equals query, ignoring case
func hasGenre(record Record, query string) bool {
	for _, genre := range record.Genre {
		if strings.EqualFold(genre, query) {
			return true
		}
	}
	return false
}
