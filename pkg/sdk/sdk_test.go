package sdk

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkrett/shuttle/config"
	"github.com/mkrett/shuttle/internal/service"
	"github.com/mkrett/shuttle/internal/transport"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := &config.Config{
		Env: "test",
		Log: config.Log{Level: "error", Format: "text"},
		App: config.App{Name: "shuttle", Port: 0},
		Upload: config.Upload{
			MaxSize:       1 << 20,
			TempDir:       t.TempDir(),
			SweepInterval: time.Hour,
			Retention:     24 * time.Hour,
		},
		Catalog: config.Catalog{Path: filepath.Join(t.TempDir(), "catalog.json")},
		Objectstore: config.Objectstore{
			Type:  "local",
			Local: config.LocalObjectstore{Root: t.TempDir()},
		},
	}

	svc, err := service.NewService(cfg)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	e, err := transport.NewEcho(svc)
	if err != nil {
		t.Fatalf("create echo: %v", err)
	}

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return NewClientWithHTTPClient(srv.URL, srv.Client())
}

func TestUpload(t *testing.T) {
	t.Run("chunked upload with progress", func(t *testing.T) {
		client := newTestClient(t)

		content := strings.Repeat("shuttle", 100) // 700 bytes
		var progress []int64
		_, err := client.Upload(UploadRequest{
			Content:     strings.NewReader(content),
			Length:      int64(len(content)),
			Filename:    "payload.bin",
			ContentType: "application/octet-stream",
			ChunkSize:   256,
			OnProgress: func(sent, total int64) {
				if total != int64(len(content)) {
					t.Errorf("expected total %d, got %d", len(content), total)
				}
				progress = append(progress, sent)
			},
		})
		if err != nil {
			t.Fatalf("upload: %v", err)
		}

		// 700 bytes in 256-byte chunks means three acknowledgements.
		want := []int64{256, 512, 700}
		if len(progress) != len(want) {
			t.Fatalf("expected %d progress calls, got %v", len(want), progress)
		}
		for i, sent := range want {
			if progress[i] != sent {
				t.Errorf("progress[%d]: expected %d, got %d", i, sent, progress[i])
			}
		}

		files, err := client.Files("")
		if err != nil {
			t.Fatalf("list files: %v", err)
		}
		if len(files) != 1 {
			t.Fatalf("expected 1 file, got %d", len(files))
		}
		if files[0].Name != "payload.bin" || files[0].Size != int64(len(content)) {
			t.Errorf("unexpected summary: %+v", files[0])
		}
		if files[0].Checksum == nil {
			t.Error("expected a checksum on the finalized asset")
		}
	})

	t.Run("resumes after a stale offset", func(t *testing.T) {
		client := newTestClient(t)

		uploadURL, err := client.CreateUpload(CreateUploadRequest{
			Length:   10,
			Filename: "resume.txt",
		})
		if err != nil {
			t.Fatalf("create upload: %v", err)
		}

		if _, err := client.AppendChunk(uploadURL, 0, strings.NewReader("hello ")); err != nil {
			t.Fatalf("first chunk: %v", err)
		}

		// A stale claim is rejected without moving the offset.
		_, err = client.AppendChunk(uploadURL, 0, strings.NewReader("again"))
		if !errors.Is(err, ErrOffsetConflict) {
			t.Fatalf("expected ErrOffsetConflict, got %v", err)
		}

		offset, length, err := client.Offset(uploadURL)
		if err != nil {
			t.Fatalf("offset: %v", err)
		}
		if offset != 6 || length != 10 {
			t.Fatalf("expected offset 6 of 10, got %d of %d", offset, length)
		}

		if _, err := client.AppendChunk(uploadURL, offset, strings.NewReader("wrld")); err != nil {
			t.Fatalf("final chunk: %v", err)
		}
	})
}

func TestDownload(t *testing.T) {
	client := newTestClient(t)

	content := "round trip payload"
	_, err := client.Upload(UploadRequest{
		Content:  strings.NewReader(content),
		Length:   int64(len(content)),
		Filename: "trip.txt",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	files, err := client.Files("")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	var buf bytes.Buffer
	if err := client.Download(files[0].ID, &buf); err != nil {
		t.Fatalf("download: %v", err)
	}
	if buf.String() != content {
		t.Errorf("expected %q, got %q", content, buf.String())
	}
}

func TestFilesSearch(t *testing.T) {
	client := newTestClient(t)

	for _, name := range []string{"report.pdf", "notes.txt"} {
		content := "content of " + name
		if _, err := client.Upload(UploadRequest{
			Content:  strings.NewReader(content),
			Length:   int64(len(content)),
			Filename: name,
		}); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}

	files, err := client.Files("report")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 || files[0].Name != "report.pdf" {
		t.Fatalf("expected only report.pdf, got %+v", files)
	}
}

func TestDelete(t *testing.T) {
	client := newTestClient(t)

	content := "to be deleted"
	if _, err := client.Upload(UploadRequest{
		Content:  strings.NewReader(content),
		Length:   int64(len(content)),
		Filename: "victim.txt",
	}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	files, err := client.Files("")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	if err := client.Delete(files[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	files, err = client.Files("")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty listing, got %+v", files)
	}

	if err := client.Delete("missing"); err == nil {
		t.Error("expected an error deleting a missing asset")
	}
}
