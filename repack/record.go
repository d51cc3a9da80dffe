// Package repack holds the extracted release records and the JSON
// collection they are persisted in.
package repack

// Record is one release extracted from a listing page. Slice fields are
// never nil so they encode as empty JSON arrays.
type Record struct {
	Title         string   `json:"title"`
	Date          string   `json:"date"`
	DownloadLinks []string `json:"download_links"`
	Screenshots   []string `json:"screenshots"`
	Features      []string `json:"features"`
	Genre         []string `json:"genre"`
	Companies     []string `json:"companies"`
	Languages     []string `json:"languages"`
	OriginalSize  string   `json:"original_size"`
	RepackSize    string   `json:"repack_size"`
	Categories    []string `json:"categories,omitempty"`
}

// NewRecord returns a record with the given title and every list field
// initialized to an empty slice.
func NewRecord(title string) Record {
	return Record{
		Title:         title,
		DownloadLinks: []string{},
		Screenshots:   []string{},
		Features:      []string{},
		Genre:         []string{},
		Companies:     []string{},
		Languages:     []string{},
	}
}

// normalize replaces nil slices so a record decoded from a hand-edited file
// behaves like one built with NewRecord.
func (r *Record) normalize() {
	if r.DownloadLinks == nil {
		r.DownloadLinks = []string{}
	}
	if r.Screenshots == nil {
		r.Screenshots = []string{}
	}
	if r.Features == nil {
		r.Features = []string{}
	}
	if r.Genre == nil {
		r.Genre = []string{}
	}
	if r.Companies == nil {
		r.Companies = []string{}
	}
	if r.Languages == nil {
		r.Languages = []string{}
	}
}
