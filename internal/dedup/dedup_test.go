package dedup

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/store"
)

func setupTestService(t *testing.T) (*Service, *store.DB, string) {
	dir := t.TempDir()
	db, err := store.NewSQLiteDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("db.Close error: %v", err)
		}
	})

	downloads := filepath.Join(dir, "downloads")
	if err := os.MkdirAll(downloads, 0755); err != nil {
		t.Fatalf("Failed to create downloads dir: %v", err)
	}
	return NewService(db, logger.Default(), downloads), db, downloads
}

func writeTestFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "helloworld"},
		{"Hello, World!", "helloworld"},
		{"  HELLO   world  ", "helloworld"},
		{"Song (Official Video) [HD]", "songofficialvideohd"},
		{"AC/DC - T.N.T.", "acdctnt"},
		{"넬 - 기억을 걷는 시간", "넬기억을걷는시간"},
		{"café", "café"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestService_FindDuplicate(t *testing.T) {
	svc, db, downloads := setupTestService(t)

	path := writeTestFile(t, downloads, "song.mp3", 128)
	file := &domain.File{
		ID:        "f1",
		Title:     "Hello, World!",
		Artist:    "The Band",
		FileType:  "mp3",
		Path:      path,
		FileSize:  128,
		CreatedAt: time.Now(),
	}
	if err := svc.AddEntry(file, false); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	// Different spelling of the same track hits.
	hit, err := svc.FindDuplicate("hello world", "the band", "mp3")
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if hit == nil {
		t.Fatal("Expected cache hit")
	}
	if hit.Path != path {
		t.Errorf("Expected path %s, got %s", path, hit.Path)
	}

	// Same track, different container misses.
	miss, err := svc.FindDuplicate("hello world", "the band", "mp4")
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if miss != nil {
		t.Error("Expected miss for different file type")
	}

	// Hits and misses are both counted.
	stats, err := db.ListCacheStats(10)
	if err != nil {
		t.Fatalf("ListCacheStats failed: %v", err)
	}
	if len(stats) != 1 || stats[0].Hits != 1 || stats[0].Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss recorded, got %+v", stats)
	}
}

func TestService_FindDuplicateSelfHeals(t *testing.T) {
	svc, db, downloads := setupTestService(t)

	path := writeTestFile(t, downloads, "gone.mp3", 64)
	file := &domain.File{
		ID:        "f1",
		Title:     "Vanishing Song",
		Artist:    "Artist",
		FileType:  "mp3",
		Path:      path,
		FileSize:  64,
		CreatedAt: time.Now(),
	}
	if err := svc.AddEntry(file, false); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	// Delete the backing file out from under the cache.
	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	hit, err := svc.FindDuplicate("Vanishing Song", "Artist", "mp3")
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if hit != nil {
		t.Error("Expected miss for vanished file")
	}

	// The stale entry must be gone from the cache table.
	entry, err := db.FindCacheEntry(Normalize("Vanishing Song"), Normalize("Artist"), "mp3")
	if err != nil {
		t.Fatalf("FindCacheEntry failed: %v", err)
	}
	if entry != nil {
		t.Error("Expected stale entry to be evicted")
	}
}

func TestService_CopyFromCache(t *testing.T) {
	svc, db, downloads := setupTestService(t)

	path := writeTestFile(t, downloads, "cached.mp3", 256)
	file := &domain.File{
		ID:        "f1",
		Title:     "Cached Song",
		Artist:    "Artist",
		FileType:  "mp3",
		Path:      path,
		FileSize:  256,
		Duration:  200,
		CreatedAt: time.Now(),
	}
	if err := svc.AddEntry(file, false); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	entry, err := db.FindCacheEntry(Normalize("Cached Song"), Normalize("Artist"), "mp3")
	if err != nil || entry == nil {
		t.Fatalf("FindCacheEntry failed: %v, %v", entry, err)
	}

	copied, err := svc.CopyFromCache(entry.ID, "playlist", "My Mix", 4)
	if err != nil {
		t.Fatalf("CopyFromCache failed: %v", err)
	}

	wantPath := filepath.Join(downloads, "My Mix", "cached.mp3")
	if copied.Path != wantPath {
		t.Errorf("Expected path %s, got %s", wantPath, copied.Path)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("Copied file missing: %v", err)
	}
	if copied.GroupName != "My Mix" || copied.GroupType != "playlist" || copied.Rank != 4 {
		t.Errorf("Group metadata not applied: %+v", copied)
	}
	if copied.FileSize != 256 {
		t.Errorf("Expected size 256, got %d", copied.FileSize)
	}

	// The copy is recorded as a file row.
	stored, err := db.GetFile(copied.ID)
	if err != nil || stored == nil {
		t.Fatalf("Copied file not recorded: %v, %v", stored, err)
	}
}

func TestService_CleanupTemporaryKeepsBudget(t *testing.T) {
	svc, db, downloads := setupTestService(t)
	svc.maxTemporary = 5

	// Disable the automatic cleanup during seeding by inserting directly.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		path := writeTestFile(t, downloads, fmt.Sprintf("tmp-%d.mp3", i), 100)
		entry := &domain.CacheEntry{
			ID:          fmt.Sprintf("c%d", i),
			Title:       fmt.Sprintf("Song %d", i),
			NormTitle:   fmt.Sprintf("song%d", i),
			FileType:    "mp3",
			Path:        path,
			FileSize:    100,
			IsTemporary: true,
			LastUsedAt:  base.Add(time.Duration(i) * time.Minute),
			CreatedAt:   base,
		}
		if err := db.CreateCacheEntry(entry); err != nil {
			t.Fatalf("CreateCacheEntry failed: %v", err)
		}
	}

	report, err := svc.CleanupTemporary()
	if err != nil {
		t.Fatalf("CleanupTemporary failed: %v", err)
	}
	if report.Entries != 3 {
		t.Errorf("Expected 3 evictions, got %d", report.Entries)
	}
	if report.BytesFreed != 300 {
		t.Errorf("Expected 300 bytes freed, got %d", report.BytesFreed)
	}

	count, err := db.CountTemporaryEntries()
	if err != nil {
		t.Fatalf("CountTemporaryEntries failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 entries left, got %d", count)
	}

	// Oldest were evicted, newest survive.
	for i := 0; i < 3; i++ {
		if entry, _ := db.GetCacheEntry(fmt.Sprintf("c%d", i)); entry != nil {
			t.Errorf("Expected c%d to be evicted", i)
		}
	}
	for i := 3; i < 8; i++ {
		if entry, _ := db.GetCacheEntry(fmt.Sprintf("c%d", i)); entry == nil {
			t.Errorf("Expected c%d to survive", i)
		}
	}

	// Under budget, cleanup is a no-op.
	report, err = svc.CleanupTemporary()
	if err != nil {
		t.Fatalf("CleanupTemporary failed: %v", err)
	}
	if report.Entries != 0 {
		t.Errorf("Expected no evictions under budget, got %d", report.Entries)
	}
}

func TestService_EvictCountsThumbnailBytes(t *testing.T) {
	svc, _, downloads := setupTestService(t)

	path := writeTestFile(t, downloads, "tmp.mp3", 100)
	thumb := writeTestFile(t, downloads, "tmp.jpg", 40)
	file := &domain.File{
		ID:            "f1",
		Title:         "Temp Song",
		FileType:      "mp3",
		Path:          path,
		ThumbnailPath: thumb,
		FileSize:      100,
		CreatedAt:     time.Now(),
	}
	if err := svc.AddEntry(file, true); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	report, err := svc.DeleteAllTemporary()
	if err != nil {
		t.Fatalf("DeleteAllTemporary failed: %v", err)
	}
	if report.Entries != 1 {
		t.Errorf("Expected 1 eviction, got %d", report.Entries)
	}
	if report.BytesFreed != 140 {
		t.Errorf("Expected 140 bytes freed including thumbnail, got %d", report.BytesFreed)
	}
	for _, p := range []string{path, thumb} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be removed, got %v", p, err)
		}
	}
}

func TestService_DeleteAllTemporary(t *testing.T) {
	svc, db, downloads := setupTestService(t)

	for i := 0; i < 3; i++ {
		path := writeTestFile(t, downloads, fmt.Sprintf("tmp-%d.mp3", i), 50)
		file := &domain.File{
			ID:        fmt.Sprintf("f%d", i),
			Title:     fmt.Sprintf("Temp %d", i),
			FileType:  "mp3",
			Path:      path,
			FileSize:  50,
			CreatedAt: time.Now(),
		}
		if err := svc.AddEntry(file, true); err != nil {
			t.Fatalf("AddEntry failed: %v", err)
		}
	}

	// One permanent entry must survive.
	keepPath := writeTestFile(t, downloads, "keep.mp3", 50)
	keep := &domain.File{ID: "keep", Title: "Keeper", FileType: "mp3", Path: keepPath, FileSize: 50, CreatedAt: time.Now()}
	if err := svc.AddEntry(keep, false); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	report, err := svc.DeleteAllTemporary()
	if err != nil {
		t.Fatalf("DeleteAllTemporary failed: %v", err)
	}
	if report.Entries != 3 {
		t.Errorf("Expected 3 deletions, got %d", report.Entries)
	}
	if report.BytesFreed != 150 {
		t.Errorf("Expected 150 bytes freed, got %d", report.BytesFreed)
	}

	count, _ := db.CountTemporaryEntries()
	if count != 0 {
		t.Errorf("Expected 0 temporary entries, got %d", count)
	}
	if hit, _ := svc.FindDuplicate("Keeper", "", "mp3"); hit == nil {
		t.Error("Permanent entry must survive")
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Errorf("Permanent file must survive: %v", err)
	}
}
