package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediasearch/core/internal/logger"
	"github.com/mediasearch/core/internal/models"
	"github.com/mediasearch/core/internal/repos"
)

type fakeAssets struct {
	repos.AssetRepo
	upserts  map[string]bool // rel_path -> dirtied
	created  map[string]bool
	existing []string
}

func (f *fakeAssets) UpsertScanned(ctx context.Context, libSlug, relPath string, kind models.MediaKind, mtimeSec float64, sizeBytes int64) (bool, bool, error) {
	created := !contains(f.existing, relPath)
	dirtied := f.upserts[relPath]
	return created, dirtied, nil
}

func (f *fakeAssets) VanishedRelPaths(ctx context.Context, libSlug string, seen []string) ([]string, error) {
	seenSet := map[string]bool{}
	for _, s := range seen {
		seenSet[s] = true
	}
	var vanished []string
	for _, e := range f.existing {
		if !seenSet[e] {
			vanished = append(vanished, e)
		}
	}
	return vanished, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

type fakeLibraries struct {
	repos.LibraryRepo
	lib      *models.Library
	claimed  bool
	claimOK  bool
	statuses []models.ScanStatus
}

func (f *fakeLibraries) ClaimForScan(ctx context.Context, slug string) (bool, error) {
	f.claimed = true
	return f.claimOK, nil
}

func (f *fakeLibraries) GetBySlug(ctx context.Context, slug string, includeDeleted bool) (*models.Library, error) {
	return f.lib, nil
}

func (f *fakeLibraries) SetScanStatus(ctx context.Context, slug string, status models.ScanStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestRun_UpsertsRecognizedFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "photo.jpg"))
	writeFile(t, filepath.Join(root, "clip.mp4"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, "sub", "raw.cr2"))

	assets := &fakeAssets{upserts: map[string]bool{}}
	libs := &fakeLibraries{lib: &models.Library{Slug: "alpha", SourceRoot: root}, claimOK: true}
	s := New(assets, libs, logger.Nop())

	stats, err := s.Run(context.Background(), "alpha", func() bool { return false }, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FilesSeen)
	assert.True(t, libs.claimed)
	assert.Equal(t, []models.ScanStatus{models.ScanStatusIdle}, libs.statuses)
}

func TestRun_AlreadyScanningReturnsError(t *testing.T) {
	root := t.TempDir()
	assets := &fakeAssets{upserts: map[string]bool{}}
	libs := &fakeLibraries{lib: &models.Library{Slug: "alpha", SourceRoot: root}, claimOK: false}
	s := New(assets, libs, logger.Nop())

	_, err := s.Run(context.Background(), "alpha", func() bool { return false }, nil)
	assert.ErrorIs(t, err, ErrAlreadyScanning)
	// Never claimed successfully, so idle is never re-set by this run.
	assert.Empty(t, libs.statuses)
}

func TestRun_CooperativeCancellationStillReturnsLibraryToIdle(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 150; i++ {
		writeFile(t, filepath.Join(root, "dir"+string(rune('a'+i%26)), "f"+time.Now().Format("150405.000000000")+".jpg"))
	}

	assets := &fakeAssets{upserts: map[string]bool{}}
	libs := &fakeLibraries{lib: &models.Library{Slug: "alpha", SourceRoot: root}, claimOK: true}
	s := New(assets, libs, logger.Nop())

	calls := 0
	stop := func() bool {
		calls++
		return calls > 1 // stop shortly after the first directory check
	}

	_, err := s.Run(context.Background(), "alpha", stop, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.ScanStatus{models.ScanStatusIdle}, libs.statuses)
}

func TestRun_ReportsVanishedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))

	assets := &fakeAssets{upserts: map[string]bool{}, existing: []string{"a.jpg", "gone.jpg"}}
	libs := &fakeLibraries{lib: &models.Library{Slug: "alpha", SourceRoot: root}, claimOK: true}
	s := New(assets, libs, logger.Nop())

	stats, err := s.Run(context.Background(), "alpha", func() bool { return false }, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesVanished)
}
