package model

import (
	"time"
)

// UploadSession tracks one in-progress resumable upload. The session id doubles
// as the temp-area blob name. Offset is the number of bytes durably written so
// far and never exceeds TotalLength.
type UploadSession struct {
	ID          string    `json:"id"`
	TotalLength int64     `json:"total_length"`
	Offset      int64     `json:"offset"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Complete reports whether every declared byte has been written.
func (s *UploadSession) Complete() bool {
	return s.Offset == s.TotalLength
}
