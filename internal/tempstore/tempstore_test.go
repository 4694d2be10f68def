package tempstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestCreate(t *testing.T) {
	t.Run("allocates empty blob", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create("sess-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		size, err := s.Size("sess-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if size != 0 {
			t.Errorf("expected size 0, got %d", size)
		}
	})

	t.Run("duplicate id fails", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create("sess-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := s.Create("sess-1"); err == nil {
			t.Fatal("expected error for duplicate id")
		}
	})
}

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("sequential appends accumulate", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create("sess-1"); err != nil {
			t.Fatalf("create: %v", err)
		}

		n, err := s.Append(ctx, "sess-1", 0, strings.NewReader("hello "))
		if err != nil {
			t.Fatalf("first append: %v", err)
		}
		if n != 6 {
			t.Errorf("expected 6 bytes written, got %d", n)
		}

		n, err = s.Append(ctx, "sess-1", 6, strings.NewReader("world"))
		if err != nil {
			t.Fatalf("second append: %v", err)
		}
		if n != 5 {
			t.Errorf("expected 5 bytes written, got %d", n)
		}

		r, err := s.Open("sess-1")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(data) != "hello world" {
			t.Errorf("expected %q, got %q", "hello world", string(data))
		}
	})

	t.Run("offset mismatch is rejected", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create("sess-1"); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.Append(ctx, "sess-1", 5, strings.NewReader("x")); err == nil {
			t.Fatal("expected error for mismatched offset")
		}
		size, _ := s.Size("sess-1")
		if size != 0 {
			t.Errorf("expected blob untouched, got size %d", size)
		}
	})

	t.Run("unknown id fails", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Append(ctx, "ghost", 0, strings.NewReader("x")); err == nil {
			t.Fatal("expected error for unknown id")
		}
	})

	t.Run("partial write reports written bytes", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create("sess-1"); err != nil {
			t.Fatalf("create: %v", err)
		}

		failing := io.MultiReader(strings.NewReader("abc"), &errReader{})
		n, err := s.Append(ctx, "sess-1", 0, failing)
		if err == nil {
			t.Fatal("expected error from failing reader")
		}
		if n != 3 {
			t.Errorf("expected 3 bytes reported written, got %d", n)
		}
		size, _ := s.Size("sess-1")
		if size != 3 {
			t.Errorf("expected durable size 3, got %d", size)
		}

		// The session can resume from the durable size.
		if _, err := s.Append(ctx, "sess-1", 3, strings.NewReader("def")); err != nil {
			t.Fatalf("resume append: %v", err)
		}
	})

	t.Run("cancelled context stops the copy", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create("sess-1"); err != nil {
			t.Fatalf("create: %v", err)
		}
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Append(cancelled, "sess-1", 0, strings.NewReader("abc")); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRemove(t *testing.T) {
	s := newStore(t)
	if err := s.Create("sess-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Remove("sess-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Removing again is not an error.
	if err := s.Remove("sess-1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if _, err := s.Size("sess-1"); err == nil {
		t.Fatal("expected stat error after remove")
	}
}

func TestEntries(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"a", "b"} {
		if err := s.Create(id); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, err := s.Append(context.Background(), "a", 0, strings.NewReader("12345")); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	if byID["a"].Size != 5 {
		t.Errorf("expected entry a size 5, got %d", byID["a"].Size)
	}
	if byID["b"].Size != 0 {
		t.Errorf("expected entry b size 0, got %d", byID["b"].Size)
	}
	if time.Since(byID["a"].ModTime) > time.Minute {
		t.Errorf("mod time looks stale: %v", byID["a"].ModTime)
	}
}

func TestPathConfinement(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Create("../escape"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape")); err != nil {
		t.Errorf("expected blob confined to root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escape")); !os.IsNotExist(err) {
		t.Error("blob escaped the temp root")
	}
}

type errReader struct{}

func (*errReader) Read([]byte) (int, error) {
	return 0, errors.New("stream interrupted")
}
