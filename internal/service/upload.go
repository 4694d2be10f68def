package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/smithy-go/ptr"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/mkrett/shuttle/internal/metadata"
	"github.com/mkrett/shuttle/internal/model"
	"github.com/mkrett/shuttle/internal/utils/ioutil"
)

type CreateUploadParams struct {
	// Length is the declared total byte length, fixed for the session's life.
	Length int64
	// MetadataHeader is the raw creation-metadata header; filename and
	// filetype are recognized, everything else is ignored.
	MetadataHeader string
}

// CreateUpload starts a new resumable upload session: an empty temp blob is
// allocated and the session registered with offset 0.
func (s *Service) CreateUpload(ctx context.Context, params CreateUploadParams) (model.UploadSession, error) {
	if params.Length <= 0 || params.Length > s.maxUploadSize {
		return model.UploadSession{}, model.ErrPayloadTooLarge.Fmt(params.Length, s.maxUploadSize)
	}

	meta, err := metadata.Parse(params.MetadataHeader)
	if err != nil {
		return model.UploadSession{}, model.ErrValidation.Fmt(err.Error())
	}

	filename := metadata.SanitizeFilename(meta["filename"])
	contentType := meta["filetype"]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New().String()
	if err := s.temp.Create(id); err != nil {
		return model.UploadSession{}, model.ErrInternal.Fmt(err.Error())
	}

	sess := &session{
		id:          id,
		totalLength: params.Length,
		filename:    filename,
		contentType: contentType,
		createdAt:   time.Now(),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	slog.Info("upload session created", "session_id", id, "length", params.Length, "filename", filename)

	return sess.snapshot(), nil
}

// Offset reports the resume position for a session. Read-only; resuming
// clients call this to learn where to continue.
func (s *Service) Offset(ctx context.Context, id string) (model.UploadSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return model.UploadSession{}, model.ErrSessionNotFound.Fmt(id)
	}
	return sess.snapshot(), nil
}

// AppendChunk writes a chunk at exactly claimedOffset and returns the new
// offset. Appends on one session queue behind its mutex; interleaved writes
// would corrupt the blob. When the final byte lands the session finalizes
// synchronously before the call returns.
func (s *Service) AppendChunk(ctx context.Context, id string, claimedOffset int64, content io.Reader) (int64, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return 0, model.ErrSessionNotFound.Fmt(id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// The session may have finalized or expired while this call waited for
	// the lock.
	s.mu.RLock()
	_, ok = s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return 0, model.ErrSessionNotFound.Fmt(id)
	}

	offset := sess.offset.Load()
	if claimedOffset != offset {
		return offset, model.ErrOffsetConflict.Fmt(claimedOffset, offset)
	}

	// Never let a stream run past the declared length.
	remaining := sess.totalLength - offset
	n, err := s.temp.Append(ctx, id, offset, io.LimitReader(content, remaining))

	// Confirmed bytes count even when the stream died mid-chunk; the client
	// resumes from the durable offset.
	offset = sess.offset.Add(n)

	if err != nil {
		slog.Error("chunk append failed", "session_id", id, "offset", offset, "error", err)
		return offset, model.ErrInternal.Fmt(err.Error())
	}

	if offset == sess.totalLength {
		if err := s.finalize(ctx, sess); err != nil {
			return offset, err
		}
	}

	return offset, nil
}

// finalize promotes the temp blob into the object store and registers the
// asset. Caller holds sess.mu. On failure the session stays intact and
// resumable; a zero-length append at offset == totalLength retries
// finalization.
func (s *Service) finalize(ctx context.Context, sess *session) error {
	if sess.assetID == "" {
		sess.assetID = uuid.New().String()
	}

	rec := model.AssetRecord{
		ID:           sess.assetID,
		OriginalName: sess.filename,
		Size:         sess.totalLength,
		ContentType:  sess.contentType,
		UploadedAt:   time.Now(),
		StorageKey:   storageKey(sess.assetID, sess.filename),
	}

	// Journal first: if the process dies after promotion but before the
	// catalog persists, boot reconciliation finds this record.
	if err := s.catalog.PutPending(rec); err != nil {
		return model.ErrInternal.Fmt(err.Error())
	}

	checksum, err := s.promote(ctx, sess, rec.StorageKey)
	if err != nil {
		// Promotion failed; unwind the journal entry so reconciliation does
		// not resurrect an upload that never made it.
		if clearErr := s.catalog.ClearPending(rec.ID); clearErr != nil {
			slog.Error("failed to clear pending record", "asset_id", rec.ID, "error", clearErr)
		}
		slog.Error("finalization failed, session stays resumable", "session_id", sess.id, "error", err)
		return model.ErrInternal.Fmt(err.Error())
	}
	rec.Checksum = ptr.String(checksum)

	if err := s.catalog.Put(rec); err != nil {
		// The blob is promoted but not catalogued: the acknowledged risk
		// window. The pending record stays so reconciliation can finish the
		// registration after a crash; a live client may also retry.
		slog.Error("catalog persist failed after promotion", "asset_id", rec.ID, "error", err)
		return model.ErrInternal.Fmt(err.Error())
	}

	if err := s.catalog.ClearPending(rec.ID); err != nil {
		slog.Error("failed to clear pending record", "asset_id", rec.ID, "error", err)
	}

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()

	if err := s.temp.Remove(sess.id); err != nil {
		slog.Warn("failed to remove temp blob after finalization", "session_id", sess.id, "error", err)
	}

	slog.Info("upload finalized", "session_id", sess.id, "asset_id", rec.ID, "size", rec.Size, "key", rec.StorageKey)

	return nil
}

// promote streams the temp blob into the object store and returns the blake3
// checksum of the promoted content.
func (s *Service) promote(ctx context.Context, sess *session, key string) (string, error) {
	reader, err := s.temp.Open(sess.id)
	if err != nil {
		return "", fmt.Errorf("open temp blob: %w", err)
	}
	defer reader.Close()

	// Hash and count while the upload streams.
	hasher := blake3.New()
	counted := ioutil.NewSizeReader(io.TeeReader(reader, hasher))

	if err := s.store.Upload(ctx, key, counted); err != nil {
		return "", fmt.Errorf("promote blob: %w", err)
	}

	if counted.Size != sess.totalLength {
		// The temp blob changed size under us; do not leave the short object
		// behind.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			slog.Error("failed to delete short promoted blob", "key", key, "error", delErr)
		}
		return "", fmt.Errorf("promoted %d bytes, expected %d", counted.Size, sess.totalLength)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// storageKey derives a collision-resistant permanent key: the asset id
// namespaces the sanitized original name.
func storageKey(assetID, filename string) string {
	return fmt.Sprintf("files/%s/%s", assetID, filename)
}
