package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/mkrett/shuttle/internal/client/objectstore"
	"github.com/mkrett/shuttle/internal/model"
)

type ListAssetsParams struct {
	// Search filters by case-insensitive substring of the original name.
	Search null.String
}

// ListAssets returns the finalized assets. Order is not specified.
func (s *Service) ListAssets(ctx context.Context, params ListAssetsParams) ([]model.AssetRecord, error) {
	records := s.catalog.List()
	if !params.Search.Valid {
		return records, nil
	}

	needle := strings.ToLower(params.Search.String)
	filtered := records[:0]
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.OriginalName), needle) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// DownloadAsset streams a finalized asset. A catalog hit whose blob is gone is
// a consistency violation: logged loudly, surfaced to the caller as not found.
func (s *Service) DownloadAsset(ctx context.Context, id string) (model.AssetRecord, io.ReadCloser, error) {
	rec, ok := s.catalog.Get(id)
	if !ok {
		return model.AssetRecord{}, nil, model.ErrAssetNotFound.Fmt(id)
	}

	reader, err := s.store.Download(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			slog.Error("consistency violation: catalog entry has no backing blob",
				"asset_id", rec.ID, "key", rec.StorageKey)
			return model.AssetRecord{}, nil, model.ErrConsistency.Fmt(id)
		}
		return model.AssetRecord{}, nil, model.ErrInternal.Fmt(err.Error())
	}

	return rec, reader, nil
}

// DeleteAsset removes the backend blob first, then the catalog entry. A blob
// delete failure keeps the catalog entry so nothing is silently orphaned.
func (s *Service) DeleteAsset(ctx context.Context, id string) error {
	rec, ok := s.catalog.Get(id)
	if !ok {
		return model.ErrAssetNotFound.Fmt(id)
	}

	if err := s.store.Delete(ctx, rec.StorageKey); err != nil {
		slog.Error("blob delete failed, catalog entry retained", "asset_id", id, "error", err)
		return model.ErrInternal.Fmt(err.Error())
	}

	if err := s.catalog.Remove(id); err != nil {
		// Blob gone, entry still present: the next download logs the
		// consistency violation. The documented risk window.
		slog.Error("catalog remove failed after blob delete", "asset_id", id, "error", err)
		return model.ErrInternal.Fmt(err.Error())
	}

	slog.Info("asset deleted", "asset_id", id, "key", rec.StorageKey)

	return nil
}
