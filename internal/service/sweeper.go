package service

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper reclaims abandoned upload state until ctx is cancelled. Each pass
// expires sessions past the retention threshold (session and temp blob go
// together), then removes orphan temp blobs with no active session.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(time.Now())
		}
	}
}

func (s *Service) sweepOnce(now time.Time) {
	cutoff := now.Add(-s.retention)

	// Expire abandoned sessions. Candidates are snapshotted first so the
	// session lock is never taken while holding the map lock.
	s.mu.RLock()
	candidates := make([]*session, 0)
	for _, sess := range s.sessions {
		if sess.createdAt.Before(cutoff) {
			candidates = append(candidates, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range candidates {
		// Taking the session lock first keeps expiry from racing an in-flight
		// append on the same blob.
		sess.mu.Lock()
		s.mu.Lock()
		_, stillActive := s.sessions[sess.id]
		if stillActive {
			delete(s.sessions, sess.id)
		}
		s.mu.Unlock()

		if stillActive {
			if err := s.temp.Remove(sess.id); err != nil {
				slog.Warn("failed to remove expired temp blob", "session_id", sess.id, "error", err)
			} else {
				slog.Info("expired upload session", "session_id", sess.id, "age", now.Sub(sess.createdAt))
			}
		}
		sess.mu.Unlock()
	}

	// Remove orphan temp blobs: old enough and referenced by no session.
	// Blobs with a live session are never touched regardless of age.
	entries, err := s.temp.Entries()
	if err != nil {
		slog.Error("temp sweep failed", "error", err)
		return
	}

	for _, entry := range entries {
		if !entry.ModTime.Before(cutoff) {
			continue
		}

		s.mu.RLock()
		_, active := s.sessions[entry.ID]
		s.mu.RUnlock()
		if active {
			continue
		}

		if err := s.temp.Remove(entry.ID); err != nil {
			slog.Warn("failed to remove orphan temp blob", "id", entry.ID, "error", err)
		} else {
			slog.Info("removed orphan temp blob", "id", entry.ID, "size", entry.Size)
		}
	}
}
