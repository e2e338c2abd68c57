package model

import "time"

// Artifact is a fetched source document (PDF or HTML) from which Records
// are extracted. Stored once; multiple extractions may reference it.
type Artifact struct {
	ID            string    `json:"id"`
	OperatorKey   string    `json:"operator_key"`
	SourceURL     string    `json:"source_url"`
	MIME          string    `json:"mime"`
	FetchedAt     time.Time `json:"fetched_at"`
	Hash          string    `json:"hash"`
	SizeBytes     int64     `json:"size_bytes"`
	StorageHandle string    `json:"storage_handle"`
}
