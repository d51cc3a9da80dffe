package repack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// SaveCollection writes records to path as an indented JSON array,
// replacing any existing file. Non-ASCII and HTML characters are written
// literally.
func SaveCollection(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write collection: %w", err)
	}

	return nil
}

// LoadCollection reads a collection written by SaveCollection.
func LoadCollection(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collection: %w", err)
	}

	for i := range records {
		records[i].normalize()
	}

	return records, nil
}
