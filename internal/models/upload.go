package models

// SpooledFile is an uploaded file written to the spool directory for the duration of one request.
type SpooledFile struct {
	OriginalName string `json:"original_name"`
	StoredPath   string `json:"stored_path"`
	Extension    string `json:"extension"`
	Size         int64  `json:"size"`
}
