package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkrett/shuttle/config"
	"github.com/mkrett/shuttle/internal/catalog"
	"github.com/mkrett/shuttle/internal/client/objectstore"
	"github.com/mkrett/shuttle/internal/client/objectstore/cache"
	"github.com/mkrett/shuttle/internal/client/objectstore/local"
	"github.com/mkrett/shuttle/internal/client/objectstore/stoj"
	syncstore "github.com/mkrett/shuttle/internal/client/objectstore/sync"
	"github.com/mkrett/shuttle/internal/model"
	"github.com/mkrett/shuttle/internal/tempstore"
)

// session is the in-memory upload state. Appends and finalization are
// serialized behind mu; offset is atomic so HEAD requests can read it without
// queueing behind a chunk write.
type session struct {
	mu sync.Mutex

	id          string
	totalLength int64
	filename    string
	contentType string
	createdAt   time.Time

	offset atomic.Int64

	// assetID is allocated on the first finalization attempt and reused on
	// retries, so a retried promotion targets the same storage key.
	assetID string
}

func (s *session) snapshot() model.UploadSession {
	return model.UploadSession{
		ID:          s.id,
		TotalLength: s.totalLength,
		Offset:      s.offset.Load(),
		Filename:    s.filename,
		ContentType: s.contentType,
		CreatedAt:   s.createdAt,
	}
}

// Service owns the active-session set, the catalog and the storage clients.
// It is the explicit store object the process wires at startup; nothing here
// is ambient global state.
type Service struct {
	maxUploadSize int64
	sweepInterval time.Duration
	retention     time.Duration

	store   objectstore.Client
	temp    *tempstore.Store
	catalog *catalog.Catalog

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewService(cfg *config.Config) (*Service, error) {
	temp, err := tempstore.New(cfg.Upload.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create temp store: %w", err)
	}

	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	store, err := newObjectStore(cfg, cat)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		maxUploadSize: cfg.Upload.MaxSize,
		sweepInterval: cfg.Upload.SweepInterval,
		retention:     cfg.Upload.Retention,
		store:         store,
		temp:          temp,
		catalog:       cat,
		sessions:      make(map[string]*session),
	}

	if err := svc.reconcile(context.Background()); err != nil {
		return nil, fmt.Errorf("reconcile pending finalizations: %w", err)
	}

	return svc, nil
}

func newObjectStore(cfg *config.Config, cat *catalog.Catalog) (objectstore.Client, error) {
	var client objectstore.Client

	switch cfg.Objectstore.Type {
	case "local":
		localStore, err := local.NewClient(local.LocalConfig{Root: cfg.Objectstore.Local.Root})
		if err != nil {
			return nil, fmt.Errorf("create local store: %w", err)
		}
		client = localStore

	case "storj":
		storjStore, err := stoj.NewClient(context.Background(), stoj.StorjConfig{
			Bucket:      cfg.Objectstore.Storj.Bucket,
			AccessGrant: cfg.Objectstore.Storj.AccessGrant,
		})
		if err != nil {
			return nil, fmt.Errorf("create storj store: %w", err)
		}
		client = storjStore

		if cfg.Objectstore.Cache.Enabled {
			cacheDisk, err := local.NewClient(local.LocalConfig{Root: cfg.Objectstore.Cache.Dir})
			if err != nil {
				return nil, fmt.Errorf("create cache store: %w", err)
			}
			// Max size is configured in MB.
			maxSizeBytes := cfg.Objectstore.Cache.MaxSize * 1024 * 1024
			client, err = cache.NewCacheClient(cache.CacheConfig{
				Cache:          cacheDisk,
				Primary:        storjStore,
				EvictionPolicy: NewLRUEvictionPolicy(cat, maxSizeBytes),
			})
			if err != nil {
				return nil, fmt.Errorf("create cache client: %w", err)
			}
		}

	default:
		return nil, fmt.Errorf("unknown objectstore type %q", cfg.Objectstore.Type)
	}

	synced, err := syncstore.NewSyncClient(syncstore.SyncConfig{Client: client})
	if err != nil {
		return nil, fmt.Errorf("create sync client: %w", err)
	}
	return synced, nil
}

// reconcile resolves pending-finalization journal entries left by a crash
// between blob promotion and catalog persistence. A promoted blob with no
// catalog entry is registered (without a checksum, the hash died with the
// process); an entry whose blob never made it is dropped.
func (s *Service) reconcile(ctx context.Context) error {
	pending, err := s.catalog.Pending()
	if err != nil {
		return err
	}

	for _, rec := range pending {
		if _, ok := s.catalog.Get(rec.ID); ok {
			if err := s.catalog.ClearPending(rec.ID); err != nil {
				return err
			}
			continue
		}

		reader, err := s.store.Download(ctx, rec.StorageKey)
		switch {
		case err == nil:
			reader.Close()
			rec.Checksum = nil
			if err := s.catalog.Put(rec); err != nil {
				return err
			}
			slog.Warn("recovered orphaned asset into catalog", "asset_id", rec.ID, "key", rec.StorageKey)
		case errors.Is(err, objectstore.ErrNotExist):
			// Promotion never completed; the upload is lost and the client
			// will retry from scratch.
			slog.Warn("dropping pending record without a blob", "asset_id", rec.ID, "key", rec.StorageKey)
		default:
			return fmt.Errorf("check blob for pending record %s: %w", rec.ID, err)
		}

		if err := s.catalog.ClearPending(rec.ID); err != nil {
			return err
		}
	}

	return nil
}

// Stats reports liveness counters for the health endpoint.
type Stats struct {
	Assets         int `json:"assets"`
	ActiveSessions int `json:"active_sessions"`
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	active := len(s.sessions)
	s.mu.RUnlock()

	return Stats{
		Assets:         s.catalog.Len(),
		ActiveSessions: active,
	}
}

// MaxUploadSize is the configured ceiling for declared upload lengths.
func (s *Service) MaxUploadSize() int64 {
	return s.maxUploadSize
}
