// Package scanner implements the Scanner Reconciler (spec.md §4.3): a
// single-pass walk of a library's source root that upserts every recognized
// media file through the dirty-detection rule and reports files that have
// disappeared since the last scan.
//
// The walk is intentionally sequential, not the fan-out worker-pool shape
// some media scanners use (see DESIGN.md) — spec.md's cooperative
// cancellation contract ("poll should_stop() at least once per directory and
// after every ~100 entries") reads naturally as a single cursor over
// filepath.WalkDir, and nothing in the Scanner Reconciler's contract asks
// for throughput parallelism the way the Proxy/AI stages' claim fan-out
// does.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
)

// imageExts and videoExts are the recognized extensions from spec.md §4.3,
// lowercased and with the leading dot for direct comparison against
// filepath.Ext's output.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true,
	".tif": true, ".tiff": true,
	".cr2": true, ".cr3": true, ".crw": true, ".nef": true, ".nrw": true,
	".arw": true, ".sr2": true, ".srf": true, ".raf": true, ".orf": true,
	".rw2": true, ".raw": true, ".rwl": true, ".dng": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".mov": true,
}

// classify returns the MediaKind for path's extension, or ok=false for an
// unrecognized extension (the file is skipped entirely).
func classify(path string) (models.MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if imageExts[ext] {
		return models.MediaKindImage, true
	}
	if videoExts[ext] {
		return models.MediaKindVideo, true
	}
	return "", false
}

// ErrAlreadyScanning is returned when the library's scan lock is already
// held (spec.md §4.3 "Claims the library at start... to prevent concurrent
// scans of the same library").
var ErrAlreadyScanning = errors.New("scanner: library is already being scanned")

// Stats is the scanner's progress, surfaced through the worker heartbeat
// (spec.md §4.3 "Progress ... exposed via heartbeat stats").
type Stats struct {
	DirsVisited   int `json:"dirs_visited"`
	FilesSeen     int `json:"files_seen"`
	FilesCreated  int `json:"files_created"`
	FilesDirtied  int `json:"files_dirtied"`
	FilesVanished int `json:"files_vanished"`
}

type Scanner struct {
	assets    repos.AssetRepo
	libraries repos.LibraryRepo
	log       *logger.Logger
}

func New(assets repos.AssetRepo, libraries repos.LibraryRepo, log *logger.Logger) *Scanner {
	return &Scanner{assets: assets, libraries: libraries, log: log.With("component", "Scanner")}
}

// Run walks slug's source root to completion (or until shouldStop fires),
// upserting every recognized file and reporting vanished ones. onProgress,
// if non-nil, is called after each processed entry with a running Stats
// snapshot. The library is always returned to idle on every exit path,
// including an error or a cooperative-cancellation abort (spec.md §4.3
// "respects pause/shutdown by returning the library to idle in all exit
// paths").
func (s *Scanner) Run(ctx context.Context, slug string, shouldStop func() bool, onProgress func(Stats)) (Stats, error) {
	var stats Stats

	claimed, err := s.libraries.ClaimForScan(ctx, slug)
	if err != nil {
		return stats, err
	}
	if !claimed {
		return stats, ErrAlreadyScanning
	}
	defer func() {
		if setErr := s.libraries.SetScanStatus(ctx, slug, models.ScanStatusIdle); setErr != nil {
			s.log.Error("failed to return library to idle after scan", "library", slug, "error", setErr)
		}
	}()

	lib, err := s.libraries.GetBySlug(ctx, slug, false)
	if err != nil {
		return stats, err
	}

	seen := make([]string, 0, 4096)
	entriesSinceCheck := 0
	cancelled := false

	walkErr := filepath.WalkDir(lib.SourceRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Permission error or a vanished dir mid-walk: skip, don't abort
			// the whole scan over one unreadable entry.
			return nil
		}
		if d.IsDir() {
			stats.DirsVisited++
			if shouldStop() {
				cancelled = true
				return fs.SkipAll
			}
			return nil
		}

		entriesSinceCheck++
		if entriesSinceCheck >= 100 {
			entriesSinceCheck = 0
			if shouldStop() {
				cancelled = true
				return fs.SkipAll
			}
		}

		kind, ok := classify(path)
		if !ok {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(lib.SourceRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		mtimeSec := float64(info.ModTime().UnixNano()) / 1e9
		created, dirtied, upsertErr := s.assets.UpsertScanned(ctx, slug, rel, kind, mtimeSec, info.Size())
		if upsertErr != nil {
			s.log.Warn("upsert failed, skipping file", "library", slug, "rel_path", rel, "error", upsertErr)
			return nil
		}

		seen = append(seen, rel)
		stats.FilesSeen++
		if created {
			stats.FilesCreated++
		}
		if dirtied {
			stats.FilesDirtied++
		}
		if onProgress != nil {
			onProgress(stats)
		}
		return nil
	})
	if walkErr != nil {
		return stats, walkErr
	}
	if cancelled {
		return stats, nil
	}

	vanished, err := s.assets.VanishedRelPaths(ctx, slug, seen)
	if err != nil {
		s.log.Warn("vanished-file detection failed", "library", slug, "error", err)
		return stats, nil
	}
	stats.FilesVanished = len(vanished)
	if len(vanished) > 0 {
		s.log.Warn("files present in the database but absent on disk",
			"library", slug, "count", len(vanished))
	}
	return stats, nil
}

// AsClaimError lets callers that want a single categorized error (rather
// than matching on ErrAlreadyScanning directly) fold it into the standard
// apperr taxonomy: a busy scan lock is a transient condition, not a worker
// fault.
func AsClaimError(err error) error {
	if errors.Is(err, ErrAlreadyScanning) {
		return apperr.ErrNoWork
	}
	return err
}
