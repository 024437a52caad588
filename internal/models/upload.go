package models

// UploadSummary is the server's accounting for one bulk upload.
type UploadSummary struct {
	Status   string `json:"status"`
	Imported int    `json:"imported"`
	Updated  int    `json:"updated"`
	Ignored  int    `json:"ignored"`
	Deleted  int    `json:"deleted"`
}

// Total returns the number of values the server acknowledged.
func (s UploadSummary) Total() int {
	return s.Imported + s.Updated + s.Ignored + s.Deleted
}
