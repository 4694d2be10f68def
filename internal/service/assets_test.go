package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/guregu/null/v6"

	"github.com/mkrett/shuttle/internal/model"
)

// uploadAsset pushes content through a full session and returns the record.
func uploadAsset(t *testing.T, svc *Service, name, content string) model.AssetRecord {
	t.Helper()
	ctx := context.Background()

	sess, err := svc.CreateUpload(ctx, CreateUploadParams{
		Length:         int64(len(content)),
		MetadataHeader: metaHeader(name, "text/plain"),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := svc.AppendChunk(ctx, sess.ID, 0, strings.NewReader(content)); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := svc.ListAssets(ctx, ListAssetsParams{Search: null.StringFrom(name)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, rec := range records {
		if rec.OriginalName == name {
			return rec
		}
	}
	t.Fatalf("asset %q not found after upload", name)
	return model.AssetRecord{}
}

func TestListAssets(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	uploadAsset(t, svc, "report.pdf", "pdf-bytes")
	uploadAsset(t, svc, "notes.txt", "note-bytes")

	t.Run("lists everything", func(t *testing.T) {
		records, err := svc.ListAssets(ctx, ListAssetsParams{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 assets, got %d", len(records))
		}
	})

	t.Run("search filters by name substring", func(t *testing.T) {
		records, err := svc.ListAssets(ctx, ListAssetsParams{Search: null.StringFrom("REPORT")})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(records) != 1 || records[0].OriginalName != "report.pdf" {
			t.Fatalf("expected only report.pdf, got %+v", records)
		}
	})

	t.Run("search with no match is empty", func(t *testing.T) {
		records, err := svc.ListAssets(ctx, ListAssetsParams{Search: null.StringFrom("zzz")})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(records) != 0 {
			t.Fatalf("expected no assets, got %+v", records)
		}
	})
}

func TestDownloadAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("streams content and metadata", func(t *testing.T) {
		svc := newTestService(t, nil)
		rec := uploadAsset(t, svc, "a.txt", "hello world")

		got, reader, err := svc.DownloadAsset(ctx, rec.ID)
		if err != nil {
			t.Fatalf("download: %v", err)
		}
		defer reader.Close()

		if got.OriginalName != "a.txt" || got.Size != 11 {
			t.Errorf("unexpected record: %+v", got)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(data) != "hello world" {
			t.Errorf("expected %q, got %q", "hello world", string(data))
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := newTestService(t, nil)
		_, _, err := svc.DownloadAsset(ctx, "ghost")
		isCode(t, err, model.ErrAssetNotFound)
	})

	t.Run("missing blob is a consistency violation surfaced as not found", func(t *testing.T) {
		svc := newTestService(t, nil)
		rec := uploadAsset(t, svc, "b.txt", "data")

		// Pull the blob out from under the catalog.
		if err := svc.store.Delete(ctx, rec.StorageKey); err != nil {
			t.Fatalf("delete blob: %v", err)
		}

		_, _, err := svc.DownloadAsset(ctx, rec.ID)
		isCode(t, err, model.ErrConsistency)
	})
}

func TestDeleteAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("removes blob and catalog entry together", func(t *testing.T) {
		svc := newTestService(t, nil)
		rec := uploadAsset(t, svc, "a.txt", "hello")

		if err := svc.DeleteAsset(ctx, rec.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		records, _ := svc.ListAssets(ctx, ListAssetsParams{})
		if len(records) != 0 {
			t.Fatalf("expected empty listing, got %+v", records)
		}
		_, _, err := svc.DownloadAsset(ctx, rec.ID)
		isCode(t, err, model.ErrAssetNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := newTestService(t, nil)
		err := svc.DeleteAsset(ctx, "ghost")
		isCode(t, err, model.ErrAssetNotFound)
	})

	t.Run("second delete is not found", func(t *testing.T) {
		svc := newTestService(t, nil)
		rec := uploadAsset(t, svc, "a.txt", "hello")
		if err := svc.DeleteAsset(ctx, rec.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		err := svc.DeleteAsset(ctx, rec.ID)
		isCode(t, err, model.ErrAssetNotFound)
	})
}
