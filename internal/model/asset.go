package model

import "time"

// AssetRecord is a finalized upload as the catalog knows it. Records are
// immutable once created; the only mutation is removal.
type AssetRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	UploadedAt   time.Time `json:"uploaded_at"`

	// StorageKey is the backend object key the bytes live under.
	StorageKey string `json:"storage_key"`

	// Checksum is the hex-encoded blake3 hash of the content. Nil when the
	// record was recovered by boot reconciliation and the hash is unknown.
	Checksum *string `json:"checksum,omitempty"`
}
